package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/repoclient/fake"
)

func newFilter(t *testing.T) (*Filter, *fake.Client) {
	t.Helper()

	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	return &Filter{SelfAgentName: "deposit-engine", Repo: repo}, repo
}

func TestFilter_AcceptsUserSubmittedCreatedEvent(t *testing.T) {
	f, repo := newFilter(t)

	require.NoError(t, repo.SeedSubmission(domain.Submission{
		ID:            "sub1",
		UserSubmitted: true,
		Source:        domain.SourceUser,
	}))

	e := Event{
		ID:           "evt1",
		EventType:    eventTypeCreated,
		ResourceType: submissionResourceURI,
		ResourceURI:  "https://example.org/fedora/submissions/sub1",
		AgentName:    "some-other-agent",
	}

	sub, ok := f.Evaluate(context.Background(), e)
	require.True(t, ok)
	assert.Equal(t, "sub1", sub.ID)
}

func TestFilter_RejectsIrrelevantEventType(t *testing.T) {
	f, _ := newFilter(t)

	e := Event{ID: "evt1", EventType: "deleted", ResourceType: submissionResourceURI}

	_, ok := f.Evaluate(context.Background(), e)
	assert.False(t, ok)
}

func TestFilter_RejectsNonSubmissionResource(t *testing.T) {
	f, _ := newFilter(t)

	e := Event{ID: "evt1", EventType: eventTypeCreated, ResourceType: "https://example.org/fedora/Grant"}

	_, ok := f.Evaluate(context.Background(), e)
	assert.False(t, ok)
}

func TestFilter_RejectsSelfAuthoredEvent(t *testing.T) {
	f, _ := newFilter(t)

	e := Event{
		ID:           "evt1",
		EventType:    eventTypeCreated,
		ResourceType: submissionResourceURI,
		ResourceURI:  "https://example.org/fedora/submissions/sub1",
		AgentName:    "deposit-engine",
	}

	_, ok := f.Evaluate(context.Background(), e)
	assert.False(t, ok)
}

func TestFilter_RejectsNonUserSubmittedSubmission(t *testing.T) {
	f, repo := newFilter(t)

	require.NoError(t, repo.SeedSubmission(domain.Submission{
		ID:            "sub2",
		UserSubmitted: false,
		Source:        domain.SourceExternal,
	}))

	e := Event{
		ID:           "evt2",
		EventType:    eventTypeModified,
		ResourceType: submissionResourceURI,
		ResourceURI:  "https://example.org/fedora/submissions/sub2",
	}

	_, ok := f.Evaluate(context.Background(), e)
	assert.False(t, ok)
}

func TestFilter_RejectsUnresolvableSubmission(t *testing.T) {
	f, _ := newFilter(t)

	e := Event{
		ID:           "evt3",
		EventType:    eventTypeCreated,
		ResourceType: submissionResourceURI,
		ResourceURI:  "https://example.org/fedora/submissions/missing",
	}

	_, ok := f.Evaluate(context.Background(), e)
	assert.False(t, ok)
}

func TestParseEvent_RejectsMalformedBody(t *testing.T) {
	_, err := ParseEvent([]byte(`{"id": "evt1"`))
	assert.Error(t, err)
}

func TestParseEvent_RejectsMissingID(t *testing.T) {
	_, err := ParseEvent([]byte(`{"eventType":"created"}`))
	assert.Error(t, err)
}
