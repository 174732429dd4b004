package ingest

import (
	"context"
	"strings"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/platform/logx"
	"github.com/depositcore/engine/internal/repoclient"
)

// Filter is the Event Filter (C1). It owns the self-agent name used to
// reject events this engine itself produced (avoiding a feedback loop)
// and the repoclient.Client used to resolve a candidate event's
// Submission to confirm it is genuinely user-submitted.
type Filter struct {
	SelfAgentName string
	Repo          repoclient.Client
	Logger        logx.Logger
}

// Evaluate applies spec.md §4.1's filter rules in order, short-circuiting
// on the first that fails, and returns the resolved Submission only when
// every rule passes:
//
//  1. event-type is "created" or "modified"
//  2. resource-type names a Submission
//  3. agent-name is not this engine's own
//  4. the referenced Submission resolves, is user-submitted, and its
//     source is "user"
//
// Every rejection is a silent drop: Evaluate logs at debug level and
// returns ok=false, never an error a caller should propagate or retry.
func (f *Filter) Evaluate(ctx context.Context, e Event) (domain.Submission, bool) {
	log := f.Logger
	if log == nil {
		log = &logx.NoneLogger{}
	}

	if !e.isRelevantType() {
		log.Debugf("ingest: dropping event %s: event-type %q not relevant", e.ID, e.EventType)
		return domain.Submission{}, false
	}

	if !e.describesSubmission() {
		log.Debugf("ingest: dropping event %s: resource-type %q is not a Submission", e.ID, e.ResourceType)
		return domain.Submission{}, false
	}

	if e.AgentName != "" && f.SelfAgentName != "" && e.AgentName == f.SelfAgentName {
		log.Debugf("ingest: dropping event %s: self-authored (agent %q)", e.ID, e.AgentName)
		return domain.Submission{}, false
	}

	submissionID := submissionIDFromURI(e.ResourceURI)
	if submissionID == "" {
		log.Debugf("ingest: dropping event %s: no resolvable submission id", e.ID)
		return domain.Submission{}, false
	}

	sub, err := f.Repo.GetSubmission(ctx, submissionID)
	if err != nil {
		log.Debugf("ingest: dropping event %s: submission %s unresolvable: %v", e.ID, submissionID, err)
		return domain.Submission{}, false
	}

	if !sub.UserSubmitted || sub.Source != domain.SourceUser {
		log.Debugf("ingest: dropping event %s: submission %s is not user-submitted", e.ID, submissionID)
		return domain.Submission{}, false
	}

	return sub, true
}

// submissionIDFromURI extracts the trailing path segment of a resource
// URI as the entity's identifier, the convention the event source uses
// to name its resources.
func submissionIDFromURI(uri string) string {
	uri = strings.TrimRight(uri, "/")

	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return uri
	}

	return uri[idx+1:]
}
