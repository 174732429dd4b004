// Package swordv2 implements the SWORDv2 transport.Adapter (spec.md
// §4.4.2): service-document retrieval and caching, basic-auth plus
// On-Behalf-Of deposit construction, first-hint-wins collection
// routing, and response classification into accepted / rejected /
// retryable outcomes via the Atom Publishing Protocol wire format.
package swordv2

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/platform/httpx"
	"github.com/depositcore/engine/internal/transport"
)

// serviceDocument is the Atom Publishing Protocol document SWORDv2
// serves at a repository's service-doc-url, advertising its collections.
type serviceDocument struct {
	XMLName    xml.Name     `xml:"service"`
	Workspaces []workspace  `xml:"workspace"`
}

type workspace struct {
	Collections []collection `xml:"collection"`
}

type collection struct {
	Href string `xml:"href,attr"`
}

// depositReceipt is the Atom entry SWORDv2 returns on a successful (201)
// deposit: it carries the edit-media link (access URL) and statement
// link (status-probe URI).
type depositReceipt struct {
	XMLName xml.Name `xml:"entry"`
	ID      string   `xml:"id"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

func (d depositReceipt) linkByRel(rel string) string {
	for _, l := range d.Links {
		if l.Rel == rel {
			return l.Href
		}
	}

	return ""
}

// errorDocument is the Atom entry SWORDv2 returns on a rejected (4xx)
// deposit, per the sword error-document schema's summary element.
type errorDocument struct {
	XMLName xml.Name `xml:"error"`
	Summary string   `xml:"summary"`
}

// Adapter opens SWORDv2 Sessions. It owns the service-document cache,
// shared across every Session it opens, keyed by service-doc-url.
type Adapter struct {
	HTTPClient *http.Client

	mu    sync.Mutex
	cache map[string]serviceDocument
}

func (a *Adapter) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}

	return http.DefaultClient
}

func (a *Adapter) Open(ctx context.Context, cfg config.TransportConfig) (transport.Session, error) {
	if cfg.SWORDv2 == nil {
		return nil, fmt.Errorf("swordv2: transport config missing swordv2 settings")
	}

	doc, err := a.serviceDocument(ctx, cfg.SWORDv2.ServiceDocURL)
	if err != nil {
		return nil, fmt.Errorf("swordv2: retrieving service document: %w", err)
	}

	return &session{
		adapter: a,
		cfg:     *cfg.SWORDv2,
		realm:   cfg.PrimaryAuthRealm(),
		doc:     doc,
	}, nil
}

// serviceDocument returns the cached document for url, fetching and
// caching it on first use (spec.md §4.4.2's "service-document
// retrieval+caching").
func (a *Adapter) serviceDocument(ctx context.Context, url string) (serviceDocument, error) {
	a.mu.Lock()
	if a.cache == nil {
		a.cache = make(map[string]serviceDocument)
	}

	if doc, ok := a.cache[url]; ok {
		a.mu.Unlock()
		return doc, nil
	}
	a.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return serviceDocument{}, err
	}

	resp, err := a.client().Do(req)
	if err != nil {
		return serviceDocument{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serviceDocument{}, fmt.Errorf("unexpected status %d fetching service document", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return serviceDocument{}, err
	}

	var doc serviceDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return serviceDocument{}, fmt.Errorf("parsing service document: %w", err)
	}

	a.mu.Lock()
	a.cache[url] = doc
	a.mu.Unlock()

	return doc, nil
}

type session struct {
	adapter *Adapter
	cfg     config.SWORDv2Settings
	realm   config.AuthRealm
	doc     serviceDocument
	tainted bool
}

// collectionURL implements spec.md §9's "first configured hint wins":
// it scans cfg.CollectionHints in declared order and returns the URL of
// the first hint whose Tag appears in the submission's raw metadata,
// falling back to DefaultCollectionURL.
func (s *session) collectionURL(submissionMeta string) string {
	for _, hint := range s.cfg.CollectionHints {
		if hint.Tag != "" && strings.Contains(submissionMeta, hint.Tag) {
			return hint.URL
		}
	}

	return s.cfg.DefaultCollectionURL
}

func (s *session) Send(ctx context.Context, stream *model.PackageStream, hints transport.Hints) (transport.Response, error) {
	if s.tainted {
		return transport.Response{}, transport.ErrSessionTainted
	}

	collectionURL := s.collectionURL(hints.SubmissionMeta)

	rc, err := stream.Open()
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("swordv2: opening package stream: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("swordv2: reading package stream: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, collectionURL, bytes.NewReader(body))
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("swordv2: building request: %w", err)
	}

	req.Header.Set("Content-Type", stream.MIME)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, stream.Name))
	req.Header.Set("X-Packaging", stream.SpecURI)
	req.Header.Set("In-Progress", "false")

	if md5sum, ok := stream.Checksums[model.ChecksumMD5]; ok {
		if encoded, ok := contentMD5(md5sum); ok {
			req.Header.Set("Content-MD5", encoded)
		}
	}

	req = httpx.WithBasicAuth(req, s.realm.Username, s.realm.Password, s.cfg.OnBehalfOf)
	req = httpx.WithCorrelationID(req, httpx.NewCorrelationID())

	resp, err := s.adapter.client().Do(req)
	if err != nil {
		s.tainted = true
		return transport.Response{}, errs.TransportError{Protocol: "SWORDv2", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return s.classify(resp.StatusCode, respBody)
}

// classify implements spec.md §4.4.2's response classification: a 2xx
// carrying a parseable deposit receipt is accepted; a 4xx is a terminal
// rejection (ErrorResponse); anything else (5xx, or a 2xx the body
// doesn't parse as a receipt) is a retryable ThrowableResponse and
// taints the session, since SWORDv2 offers no well-defined recovery
// mid-session for a malformed or server-side failure.
func (s *session) classify(statusCode int, body []byte) (transport.Response, error) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		var receipt depositReceipt
		if err := xml.Unmarshal(body, &receipt); err != nil {
			s.tainted = true
			return transport.Response{}, errs.TransportError{
				Protocol: "SWORDv2", Retryable: true, StatusCode: statusCode,
				Body: string(body), Err: fmt.Errorf("unparseable deposit receipt: %w", err),
			}
		}

		return transport.Response{
			Accepted:       true,
			AccessURL:      receipt.linkByRel("edit-media"),
			ExternalID:     receipt.ID,
			StatusProbeURI: receipt.linkByRel("http://purl.org/net/sword/terms/statement"),
		}, nil

	case statusCode >= 400 && statusCode < 500:
		var errDoc errorDocument
		summary := string(body)

		if err := xml.Unmarshal(body, &errDoc); err == nil && errDoc.Summary != "" {
			summary = errDoc.Summary
		}

		return transport.Response{}, errs.ValidationError{
			EntityType: "swordv2-deposit",
			Message:    fmt.Sprintf("rejected (status %d): %s", statusCode, summary),
		}

	default:
		s.tainted = true

		return transport.Response{}, errs.TransportError{
			Protocol: "SWORDv2", Retryable: true, StatusCode: statusCode, Body: string(body),
			Err: fmt.Errorf("unexpected status %d", statusCode),
		}
	}
}

// contentMD5 re-encodes a hex MD5 digest (this package's internal
// checksum representation) into the base64 form RFC 1864's Content-MD5
// header requires.
func contentMD5(hexDigest string) (string, bool) {
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return "", false
	}

	return base64.StdEncoding.EncodeToString(raw), true
}

func (s *session) Close() error {
	if s.tainted {
		return transport.ErrSessionTainted
	}

	return nil
}

// probeDeadline is a 30-second bound for a status-probe HEAD-then-GET
// exchange. No code applies it: internal/statusresolver uses its own
// http.Client and does not read this constant.
const probeDeadline = 30 * time.Second
