// Package transport implements the Transport Adapters (spec.md C4): one
// Session per deposit attempt, each wrapping a protocol-specific
// connection (FTP, SWORDv2, or a local filesystem for tests), all
// satisfying the same Session contract so C7 never branches on protocol.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/model"
)

// Hints carries the per-attempt context a Session needs beyond the
// package bytes themselves: which repository it's targeting, the raw
// submission metadata (for SWORDv2's collection-hint routing), and the
// timestamp used to expand an FTP base-directory's %s date token.
type Hints struct {
	RepositoryID   string
	SubmissionMeta string
	Now            time.Time
}

// Response is what a target repository handed back for one send.
type Response struct {
	// Accepted is true once the target has durably accepted the bytes
	// (not yet necessarily "accepted" in the Deposit-status sense —
	// just that the transport-level transaction succeeded).
	Accepted bool

	// AccessURL and ExternalID populate a RepositoryCopy when the
	// target returns them synchronously (FTP: never; SWORDv2: on a
	// Location/edit-media link).
	AccessURL  string
	ExternalID string

	// StatusProbeURI is where internal/statusresolver should poll for
	// asynchronous status if the target doesn't resolve synchronously.
	StatusProbeURI string
}

// Session is a single-use, protocol-specific connection to one target
// repository. ErrSessionTainted is the hard, no-retry-within-session
// failure contract: once Send has tainted a session, every subsequent
// call (including Close) may return it, and the caller must open a new
// Session rather than retry on the same one.
type Session interface {
	Send(ctx context.Context, stream *model.PackageStream, hints Hints) (Response, error)
	Close() error
}

// ErrSessionTainted is returned by Send or Close once a prior operation
// on the same Session has failed irrecoverably. The resolution mandated
// by spec.md §9 is a hard one-shot contract: no adapter attempts
// in-session retry after a taint; C7 opens a fresh Session instead.
var ErrSessionTainted = errors.New("transport: session is tainted by a prior failure")

// Adapter opens a Session for one repository's transport configuration.
type Adapter interface {
	Open(ctx context.Context, cfg config.TransportConfig) (Session, error)
}

// Registry is a composition-root-built, fixed lookup of Adapter by
// protocol name, mirroring internal/assembler.Registry's replacement of
// dynamic dispatch with an explicit map (spec.md §9).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds a under protocol. Registering the same protocol twice is
// a programming error and panics.
func (r *Registry) Register(protocol string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[protocol]; exists {
		panic(fmt.Sprintf("transport: %q already registered", protocol))
	}

	r.adapters[protocol] = a
}

// Lookup returns the Adapter registered under protocol. cmd/depositengine's
// validateWiring calls this at startup for every configured repository so
// an unknown protocol fails before the engine starts listening.
func (r *Registry) Lookup(protocol string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[protocol]
	return a, ok
}
