// Package contentopener provides the composition root's production
// assembler.ContentOpener: it dereferences a File's opaque
// content-locator URI (spec.md §3) at package-assembly time, never
// earlier (spec.md §4.2 — internal/modelbuilder must not dereference
// it). Two schemes are supported: "file" for local/NFS-mounted
// custodial storage and "http"/"https" for a custodial file store
// reachable over the network, mirroring the outbound-request shape
// internal/platform/httpx already establishes for this engine's other
// HTTP clients.
package contentopener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/depositcore/engine/internal/platform/httpx"
)

// Opener resolves a content-locator URI to a readable stream.
type Opener struct {
	HTTPClient *http.Client
}

func (o *Opener) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}

	return http.DefaultClient
}

// Open dereferences locator. A "file"-scheme (or bare path) locator is
// read directly off disk; "http"/"https" locators are fetched with a
// correlation ID attached so the fetch can be traced alongside the rest
// of one deposit attempt's outbound calls.
func (o *Opener) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return o.openFile(locator)
	}

	switch u.Scheme {
	case "file":
		return o.openFile(u.Path)
	case "http", "https":
		return o.openHTTP(ctx, locator)
	default:
		return nil, fmt.Errorf("contentopener: unsupported locator scheme %q", u.Scheme)
	}
}

func (o *Opener) openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(strings.TrimPrefix(path, "file://"))
	if err != nil {
		return nil, fmt.Errorf("contentopener: opening %s: %w", path, err)
	}

	return f, nil
}

func (o *Opener) openHTTP(ctx context.Context, locator string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("contentopener: building request for %s: %w", locator, err)
	}

	httpx.WithCorrelationID(req, httpx.NewCorrelationID())

	resp, err := o.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentopener: fetching %s: %w", locator, err)
	}

	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("contentopener: fetching %s: unexpected status %d", locator, resp.StatusCode)
	}

	return resp.Body, nil
}
