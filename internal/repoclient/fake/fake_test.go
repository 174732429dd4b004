package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/repoclient"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := New(t.TempDir())
	require.NoError(t, err)

	return c
}

func TestCompareAndSwapDeposit_CreateWhenAbsent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	d := domain.Deposit{ID: "d1", SubmissionID: "s1", RepositoryID: "r1", Status: domain.DepositNone}

	require.NoError(t, c.CompareAndSwapDeposit(ctx, domain.Deposit{}, d))

	got, err := c.GetDeposit(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestCompareAndSwapDeposit_CreateConflictsWhenAlreadyPresent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	d := domain.Deposit{ID: "d1", Status: domain.DepositNone}
	require.NoError(t, c.CompareAndSwapDeposit(ctx, domain.Deposit{}, d))

	err := c.CompareAndSwapDeposit(ctx, domain.Deposit{}, d)
	assert.ErrorIs(t, err, repoclient.ErrConflict)
}

func TestCompareAndSwapDeposit_StaleExpectedRejected(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	d := domain.Deposit{ID: "d1", Status: domain.DepositNone}
	require.NoError(t, c.CompareAndSwapDeposit(ctx, domain.Deposit{}, d))

	submitted := d
	submitted.Status = domain.DepositSubmitted
	require.NoError(t, c.CompareAndSwapDeposit(ctx, d, submitted))

	// d is now stale; trying to CAS from it again must conflict.
	accepted := submitted
	accepted.Status = domain.DepositAccepted
	err := c.CompareAndSwapDeposit(ctx, d, accepted)
	assert.ErrorIs(t, err, repoclient.ErrConflict)
}

func TestListNonTerminalDeposits(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CompareAndSwapDeposit(ctx, domain.Deposit{}, domain.Deposit{ID: "active", Status: domain.DepositSubmitted}))
	require.NoError(t, c.CompareAndSwapDeposit(ctx, domain.Deposit{}, domain.Deposit{ID: "done", Status: domain.DepositAccepted}))

	list, err := c.ListNonTerminalDeposits(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "active", list[0].ID)
}

func TestGetDeposit_NotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetDeposit(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPersistence_SurvivesReload(t *testing.T) {
	dir := t.TempDir()

	c1, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, c1.SeedRepository(domain.Repository{ID: "r1", Key: "nihms", Name: "NIHMS"}))

	c2, err := New(dir)
	require.NoError(t, err)

	r, err := c2.GetRepository(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "NIHMS", r.Name)
}
