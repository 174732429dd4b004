package transport_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/transport"
)

type stubAdapter struct{}

func (stubAdapter) Open(context.Context, config.TransportConfig) (transport.Session, error) {
	return nil, nil
}

func TestRegistry_LookupUnknownProtocol(t *testing.T) {
	r := transport.NewRegistry()
	r.Register("ftp", stubAdapter{})

	_, ok := r.Lookup("SWORDv2")
	assert.False(t, ok)

	_, ok = r.Lookup("ftp")
	assert.True(t, ok)
}

func TestRegistry_DuplicateRegisterPanics(t *testing.T) {
	r := transport.NewRegistry()
	r.Register("ftp", stubAdapter{})

	assert.Panics(t, func() {
		r.Register("ftp", stubAdapter{})
	})
}

func TestErrSessionTainted_IsStable(t *testing.T) {
	require.EqualError(t, transport.ErrSessionTainted, "transport: session is tainted by a prior failure")
}
