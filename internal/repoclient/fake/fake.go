// Package fake provides a filesystem-backed repoclient.Client for tests
// and local runs, standing in for the external source-of-truth
// repository this engine reacts to. Every entity is persisted as one
// JSON file under a root directory so a developer can inspect or seed
// state between runs without a database (spec.md §C "supplemented
// feature": a fake filesystem-backed repository client").
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/repoclient"
)

// Client is an in-process, mutex-guarded, filesystem-persisted
// repoclient.Client. CompareAndSwapDeposit compares by Go value equality
// against the caller-supplied expected snapshot; CompareAndSwapSubmission
// compares only the fields submissionEqual lists. These are the
// semantics internal/cri's retry loop relies on.
type Client struct {
	mu   sync.Mutex
	root string

	submissions      map[string]domain.Submission
	deposits         map[string]domain.Deposit
	repositories     map[string]domain.Repository
	files            map[string]domain.File
	repositoryCopies map[string]domain.RepositoryCopy
	publications     map[string]domain.Publication
	journals         map[string]domain.Journal
	publishers       map[string]domain.Publisher
	grants           map[string]domain.Grant
	users            map[string]domain.User
}

// New returns a Client rooted at dir, loading any entities already
// persisted there from a previous run.
func New(dir string) (*Client, error) {
	c := &Client{
		root:             dir,
		submissions:      make(map[string]domain.Submission),
		deposits:         make(map[string]domain.Deposit),
		repositories:     make(map[string]domain.Repository),
		files:            make(map[string]domain.File),
		repositoryCopies: make(map[string]domain.RepositoryCopy),
		publications:     make(map[string]domain.Publication),
		journals:         make(map[string]domain.Journal),
		publishers:       make(map[string]domain.Publisher),
		grants:           make(map[string]domain.Grant),
		users:            make(map[string]domain.User),
	}

	for _, sub := range []string{
		"submissions", "deposits", "repositories", "files", "repository-copies",
		"publications", "journals", "publishers", "grants", "users",
	} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("fake: creating %s: %w", sub, err)
		}
	}

	if err := c.loadAll(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) loadAll() error {
	loaders := []struct {
		dir string
		fn  func([]byte) error
	}{
		{"submissions", func(b []byte) error {
			var s domain.Submission
			if err := json.Unmarshal(b, &s); err != nil {
				return err
			}
			c.submissions[s.ID] = s
			return nil
		}},
		{"deposits", func(b []byte) error {
			var d domain.Deposit
			if err := json.Unmarshal(b, &d); err != nil {
				return err
			}
			c.deposits[d.ID] = d
			return nil
		}},
		{"repositories", func(b []byte) error {
			var r domain.Repository
			if err := json.Unmarshal(b, &r); err != nil {
				return err
			}
			c.repositories[r.ID] = r
			return nil
		}},
		{"files", func(b []byte) error {
			var f domain.File
			if err := json.Unmarshal(b, &f); err != nil {
				return err
			}
			c.files[f.ID] = f
			return nil
		}},
		{"repository-copies", func(b []byte) error {
			var rc domain.RepositoryCopy
			if err := json.Unmarshal(b, &rc); err != nil {
				return err
			}
			c.repositoryCopies[rc.ID] = rc
			return nil
		}},
		{"publications", func(b []byte) error {
			var p domain.Publication
			if err := json.Unmarshal(b, &p); err != nil {
				return err
			}
			c.publications[p.ID] = p
			return nil
		}},
		{"journals", func(b []byte) error {
			var j domain.Journal
			if err := json.Unmarshal(b, &j); err != nil {
				return err
			}
			c.journals[j.ID] = j
			return nil
		}},
		{"publishers", func(b []byte) error {
			var p domain.Publisher
			if err := json.Unmarshal(b, &p); err != nil {
				return err
			}
			c.publishers[p.ID] = p
			return nil
		}},
		{"grants", func(b []byte) error {
			var g domain.Grant
			if err := json.Unmarshal(b, &g); err != nil {
				return err
			}
			c.grants[g.ID] = g
			return nil
		}},
		{"users", func(b []byte) error {
			var u domain.User
			if err := json.Unmarshal(b, &u); err != nil {
				return err
			}
			c.users[u.ID] = u
			return nil
		}},
	}

	for _, l := range loaders {
		entries, err := os.ReadDir(filepath.Join(c.root, l.dir))
		if err != nil {
			return fmt.Errorf("fake: listing %s: %w", l.dir, err)
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}

			b, err := os.ReadFile(filepath.Join(c.root, l.dir, e.Name()))
			if err != nil {
				return fmt.Errorf("fake: reading %s/%s: %w", l.dir, e.Name(), err)
			}

			if err := l.fn(b); err != nil {
				return fmt.Errorf("fake: decoding %s/%s: %w", l.dir, e.Name(), err)
			}
		}
	}

	return nil
}

func (c *Client) persist(subdir, id string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(c.root, subdir, id+".json")
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// SeedSubmission and the other Seed* helpers below let tests populate the
// fake store directly, bypassing the CAS write path (there is no prior
// writer to be consistent with when seeding fixture state).

func (c *Client) SeedSubmission(s domain.Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.submissions[s.ID] = s
	return c.persist("submissions", s.ID, s)
}

func (c *Client) SeedDeposit(d domain.Deposit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deposits[d.ID] = d
	return c.persist("deposits", d.ID, d)
}

func (c *Client) SeedRepository(r domain.Repository) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repositories[r.ID] = r
	return c.persist("repositories", r.ID, r)
}

func (c *Client) SeedFile(f domain.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.files[f.ID] = f
	return c.persist("files", f.ID, f)
}

func (c *Client) SeedPublication(p domain.Publication) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.publications[p.ID] = p
	return c.persist("publications", p.ID, p)
}

func (c *Client) SeedJournal(j domain.Journal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.journals[j.ID] = j
	return c.persist("journals", j.ID, j)
}

func (c *Client) SeedPublisher(p domain.Publisher) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.publishers[p.ID] = p
	return c.persist("publishers", p.ID, p)
}

func (c *Client) SeedGrant(g domain.Grant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.grants[g.ID] = g
	return c.persist("grants", g.ID, g)
}

func (c *Client) SeedUser(u domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.users[u.ID] = u
	return c.persist("users", u.ID, u)
}

func (c *Client) GetSubmission(_ context.Context, id string) (domain.Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.submissions[id]
	if !ok {
		return domain.Submission{}, notFound("submission", id)
	}

	return s, nil
}

func (c *Client) GetDeposit(_ context.Context, id string) (domain.Deposit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deposits[id]
	if !ok {
		return domain.Deposit{}, notFound("deposit", id)
	}

	return d, nil
}

func (c *Client) GetRepository(_ context.Context, id string) (domain.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.repositories[id]
	if !ok {
		return domain.Repository{}, notFound("repository", id)
	}

	return r, nil
}

func (c *Client) GetFile(_ context.Context, id string) (domain.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.files[id]
	if !ok {
		return domain.File{}, notFound("file", id)
	}

	return f, nil
}

func (c *Client) GetRepositoryCopy(_ context.Context, id string) (domain.RepositoryCopy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rc, ok := c.repositoryCopies[id]
	if !ok {
		return domain.RepositoryCopy{}, notFound("repository-copy", id)
	}

	return rc, nil
}

func (c *Client) GetPublication(_ context.Context, id string) (domain.Publication, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.publications[id]
	if !ok {
		return domain.Publication{}, notFound("publication", id)
	}

	return p, nil
}

func (c *Client) GetJournal(_ context.Context, id string) (domain.Journal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.journals[id]
	if !ok {
		return domain.Journal{}, notFound("journal", id)
	}

	return j, nil
}

func (c *Client) GetPublisher(_ context.Context, id string) (domain.Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.publishers[id]
	if !ok {
		return domain.Publisher{}, notFound("publisher", id)
	}

	return p, nil
}

func (c *Client) GetGrant(_ context.Context, id string) (domain.Grant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.grants[id]
	if !ok {
		return domain.Grant{}, notFound("grant", id)
	}

	return g, nil
}

func (c *Client) GetUser(_ context.Context, id string) (domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[id]
	if !ok {
		return domain.User{}, notFound("user", id)
	}

	return u, nil
}

func (c *Client) ListDepositsBySubmission(_ context.Context, submissionID string) ([]domain.Deposit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.Deposit

	for _, d := range c.deposits {
		if d.SubmissionID == submissionID {
			out = append(out, d)
		}
	}

	return out, nil
}

func (c *Client) ListNonTerminalDeposits(_ context.Context) ([]domain.Deposit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.Deposit

	for _, d := range c.deposits {
		if !d.Status.IsTerminal() {
			out = append(out, d)
		}
	}

	return out, nil
}

func (c *Client) CompareAndSwapDeposit(_ context.Context, expected, next domain.Deposit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, exists := c.deposits[next.ID]

	if expected == (domain.Deposit{}) {
		if exists {
			return repoclient.ErrConflict
		}
	} else if !exists || current != expected {
		return repoclient.ErrConflict
	}

	c.deposits[next.ID] = next
	return c.persist("deposits", next.ID, next)
}

func (c *Client) CompareAndSwapSubmission(_ context.Context, expected, next domain.Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, exists := c.submissions[next.ID]
	if !exists || !submissionEqual(current, expected) {
		return repoclient.ErrConflict
	}

	c.submissions[next.ID] = next
	return c.persist("submissions", next.ID, next)
}

func (c *Client) PutRepositoryCopy(_ context.Context, copy domain.RepositoryCopy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repositoryCopies[copy.ID] = copy
	return c.persist("repository-copies", copy.ID, copy)
}

// submissionEqual compares the fields internal/cri actually mutates
// (AggregatedStatus, RequiresOperatorAttention) plus identity; Submission
// carries slice fields that are never CAS-written by this engine, so a
// field-by-field compare avoids Go's "slice in struct" incomparability
// rather than requiring reflect.DeepEqual for every field.
func submissionEqual(a, b domain.Submission) bool {
	return a.ID == b.ID &&
		a.AggregatedStatus == b.AggregatedStatus &&
		a.RequiresOperatorAttention == b.RequiresOperatorAttention
}

func notFound(entityType, id string) error {
	return errs.NotFoundError{EntityType: entityType, ID: id}
}
