package statusresolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/domain"
)

const atomFeed = `<feed xmlns="http://www.w3.org/2005/Atom">
  <category scheme="http://purl.org/net/sword/terms/state" term="archived"/>
</feed>`

func TestResolve_ExactMappingMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	r := &Resolver{}
	mapping := config.StatusMapping{"archived": "accepted", "*": "submitted"}

	status, ok, err := r.Resolve(context.Background(), srv.URL, mapping, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.DepositAccepted, status)
}

func TestResolve_FollowsRedirectOnce(t *testing.T) {
	var target *httptest.Server

	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(atomFeed))
	}))
	defer target.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodHead {
			w.Header().Set("Location", target.URL)
			w.WriteHeader(http.StatusFound)
			return
		}

		w.Write([]byte(atomFeed))
	}))
	defer redirector.Close()

	r := &Resolver{}
	mapping := config.StatusMapping{"archived": "accepted"}

	status, ok, err := r.Resolve(context.Background(), redirector.URL, mapping, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.DepositAccepted, status)
}

func TestResolve_UnknownTermWithNoWildcardReturnsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.Write([]byte(atomFeed))
	}))
	defer srv.Close()

	r := &Resolver{}
	mapping := config.StatusMapping{"withdrawn": "rejected"}

	_, ok, err := r.Resolve(context.Background(), srv.URL, mapping, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsRedirect_ExcludesNotModifiedAnd306(t *testing.T) {
	assert.False(t, isRedirect(304))
	assert.False(t, isRedirect(306))
	assert.True(t, isRedirect(301))
	assert.True(t, isRedirect(307))
	assert.False(t, isRedirect(308))
}
