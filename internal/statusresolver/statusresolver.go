// Package statusresolver implements the Status Resolver (spec.md C5):
// it fetches a Deposit's status-probe URI, parses the SWORDv2 Atom
// statement it returns, and maps the statement's state term to a
// canonical domain.DepositStatus via the repository's configured
// status-mapping.
package statusresolver

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/domain"
)

// stateScheme is the SWORDv2 Atom statement category scheme carrying the
// deposit's current state term.
const stateScheme = "http://purl.org/net/sword/terms/state"

// statement is the SWORDv2 Atom statement document returned by a
// status-probe URI.
type statement struct {
	XMLName    xml.Name   `xml:"feed"`
	Categories []category `xml:"category"`
}

type category struct {
	Scheme string `xml:"scheme,attr"`
	Term   string `xml:"term,attr"`
}

func (s statement) stateTerm() (string, bool) {
	for _, c := range s.Categories {
		if c.Scheme == stateScheme {
			return c.Term, true
		}
	}

	return "", false
}

// Resolver fetches and interprets status probes.
type Resolver struct {
	HTTPClient *http.Client
}

func (r *Resolver) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}

	return http.DefaultClient
}

// Resolve fetches probeURI and maps its reported state term through
// mapping. followRedirects gates spec.md §4.5's "when enabled by
// configuration" HEAD-then-redirect-follow-once probe; when false, probeURI
// is fetched directly via GET. ok is false when the state term can't be
// determined or the mapping has no applicable entry ("status unknown; try
// again later" — spec.md §4.5 — never an error in that case, since it is
// an expected, retry-worthy outcome rather than a fault).
func (r *Resolver) Resolve(ctx context.Context, probeURI string, mapping config.StatusMapping, followRedirects bool) (domain.DepositStatus, bool, error) {
	var (
		body []byte
		err  error
	)

	if followRedirects {
		body, err = r.fetch(ctx, probeURI)
	} else {
		body, err = r.get(ctx, probeURI)
	}

	if err != nil {
		return "", false, fmt.Errorf("statusresolver: fetching %s: %w", probeURI, err)
	}

	var st statement
	if err := xml.Unmarshal(body, &st); err != nil {
		return "", false, fmt.Errorf("statusresolver: parsing statement from %s: %w", probeURI, err)
	}

	term, ok := st.stateTerm()
	if !ok {
		return "", false, nil
	}

	status, ok := mapping.Resolve(term)
	return status, ok, nil
}

// fetch implements spec.md §4.5's optional HEAD-then-redirect-follow-once
// semantics: a HEAD probe that responds with a redirect status (300-307,
// excluding the non-redirecting 304 Not Modified and the rarely used 306)
// is followed exactly once via GET to its Location; otherwise the
// original URI is fetched directly via GET.
func (r *Resolver) fetch(ctx context.Context, probeURI string) ([]byte, error) {
	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURI, nil)
	if err != nil {
		return nil, err
	}

	headResp, err := r.client().Do(headReq)
	if err == nil {
		defer headResp.Body.Close()

		if isRedirect(headResp.StatusCode) {
			location := headResp.Header.Get("Location")
			if location != "" {
				return r.get(ctx, location)
			}
		}
	}

	return r.get(ctx, probeURI)
}

func (r *Resolver) get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func isRedirect(status int) bool {
	return status >= 300 && status <= 307 && status != http.StatusNotModified && status != 306
}
