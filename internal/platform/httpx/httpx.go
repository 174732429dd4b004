// Package httpx holds small outbound-HTTP helpers shared by the transport
// and status-resolver packages: correlation-ID propagation and basic-auth
// request decoration. It is the outbound counterpart of the teacher's
// Fiber-based inbound middleware of the same shape.
package httpx

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	// HeaderCorrelationID is attached to every outbound request the engine
	// makes so operators can trace one submission event through logs,
	// transport calls, and status probes.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderOnBehalfOf carries a SWORDv2 On-Behalf-Of identity.
	HeaderOnBehalfOf = "On-Behalf-Of"
)

// NewCorrelationID mints a fresh correlation identifier.
func NewCorrelationID() string {
	return uuid.New().String()
}

// WithBasicAuth decorates req with HTTP basic-auth credentials and, when
// onBehalfOf is non-empty, a SWORD On-Behalf-Of header.
func WithBasicAuth(req *http.Request, username, password, onBehalfOf string) *http.Request {
	if username != "" || password != "" {
		req.SetBasicAuth(username, password)
	}

	if onBehalfOf != "" {
		req.Header.Set(HeaderOnBehalfOf, onBehalfOf)
	}

	return req
}

// WithCorrelationID stamps req with the given correlation ID.
func WithCorrelationID(req *http.Request, correlationID string) *http.Request {
	req.Header.Set(HeaderCorrelationID, correlationID)
	return req
}
