// Package ingest implements the Event Filter (spec.md C1): the first
// component touching a raw inbound event, responsible for silently
// dropping everything that isn't a finalized, user-submitted submission
// notification from another agent.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// eventTypeCreated and eventTypeModified are the only two event types
// this engine reacts to (spec.md §4.1); anything else is dropped.
const (
	eventTypeCreated  = "created"
	eventTypeModified = "modified"
)

// submissionResourceURI is the resource-type URI identifying a
// Submission in the event stream's comma-delimited resource-type field.
const submissionResourceURI = "https://example.org/fedora/Submission"

// Event is the inbound notification envelope (spec.md §6's "inbound
// JSON event stream"). ResourceType is a comma-delimited list of type
// URIs describing the affected resource, matching the wire format the
// event source actually emits rather than a JSON array.
type Event struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"date"`
	EventType    string          `json:"eventType"`
	ResourceType string          `json:"resourceType"`
	ResourceURI  string          `json:"resourceURI"`
	AgentName    string          `json:"agentName"`
	Payload      json.RawMessage `json:"payload"`
}

// ParseEvent decodes a raw delivery body. A malformed body is reported
// back to the caller to log-and-reject; it is never retried or
// propagated further (spec.md §4.1 "malformed body handling").
func ParseEvent(body []byte) (Event, error) {
	var e Event

	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("ingest: malformed event body: %w", err)
	}

	if e.ID == "" {
		return Event{}, fmt.Errorf("ingest: event missing id")
	}

	return e, nil
}

// resourceTypes splits the comma-delimited ResourceType field, trimming
// whitespace around each URI.
func (e Event) resourceTypes() []string {
	parts := strings.Split(e.ResourceType, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

// describesSubmission reports whether e's resource-type list names a
// Submission.
func (e Event) describesSubmission() bool {
	for _, t := range e.resourceTypes() {
		if t == submissionResourceURI {
			return true
		}
	}

	return false
}

// isRelevantType reports whether e.EventType is one this engine acts on.
func (e Event) isRelevantType() bool {
	return e.EventType == eventTypeCreated || e.EventType == eventTypeModified
}
