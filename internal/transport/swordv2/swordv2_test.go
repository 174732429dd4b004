package swordv2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/config"
)

func TestCollectionURL_FirstMatchingHintWins(t *testing.T) {
	s := &session{
		cfg: config.SWORDv2Settings{
			DefaultCollectionURL: "https://repo.example.org/collection/default",
			CollectionHints: []config.CollectionHint{
				{Tag: "biology", URL: "https://repo.example.org/collection/bio"},
				{Tag: "physics", URL: "https://repo.example.org/collection/physics"},
			},
		},
	}

	got := s.collectionURL(`{"subject":"biology and physics"}`)
	assert.Equal(t, "https://repo.example.org/collection/bio", got)
}

func TestCollectionURL_FallsBackToDefault(t *testing.T) {
	s := &session{
		cfg: config.SWORDv2Settings{
			DefaultCollectionURL: "https://repo.example.org/collection/default",
			CollectionHints: []config.CollectionHint{
				{Tag: "biology", URL: "https://repo.example.org/collection/bio"},
			},
		},
	}

	got := s.collectionURL(`{"subject":"chemistry"}`)
	assert.Equal(t, "https://repo.example.org/collection/default", got)
}

func TestClassify_AcceptedReceipt(t *testing.T) {
	s := &session{}

	body := []byte(`<entry xmlns="http://www.w3.org/2005/Atom">
		<id>https://repo.example.org/item/123</id>
		<link rel="edit-media" href="https://repo.example.org/item/123/media"/>
		<link rel="http://purl.org/net/sword/terms/statement" href="https://repo.example.org/item/123/statement"/>
	</entry>`)

	resp, err := s.classify(201, body)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "https://repo.example.org/item/123/media", resp.AccessURL)
	assert.Equal(t, "https://repo.example.org/item/123/statement", resp.StatusProbeURI)
}

func TestClassify_RejectedIsTerminal(t *testing.T) {
	s := &session{}

	body := []byte(`<error xmlns="http://purl.org/net/sword/terms/error"><summary>bad checksum</summary></error>`)

	_, err := s.classify(400, body)
	assert.Error(t, err)
	assert.False(t, s.tainted)
}

func TestClassify_ServerErrorTaintsSession(t *testing.T) {
	s := &session{}

	_, err := s.classify(503, []byte("server error"))
	assert.Error(t, err)
	assert.True(t, s.tainted)
}
