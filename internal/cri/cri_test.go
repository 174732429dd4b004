package cri

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/repoclient"
	"github.com/depositcore/engine/internal/repoclient/fake"
)

func init() {
	sleeper = func(time.Duration) {}
}

func TestCreateDeposit_SucceedsWhenAbsent(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", SubmissionID: "s1", RepositoryID: "r1", Status: domain.DepositSubmitted, StatusProbeURI: "https://example.org/probe/1"}

	got, err := CreateDeposit(context.Background(), repo, d)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestCreateDeposit_FailsWhenAlreadyPresent(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", Status: domain.DepositNone}
	require.NoError(t, repo.SeedDeposit(d))

	_, err = CreateDeposit(context.Background(), repo, d)
	assert.Error(t, err)
}

func TestTransitionDeposit_AppliesModification(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", Status: domain.DepositNone}
	require.NoError(t, repo.SeedDeposit(d))

	got, err := TransitionDeposit(context.Background(), repo, "d1",
		func(domain.Deposit) error { return nil },
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = domain.DepositSubmitted
			current.StatusProbeURI = "https://example.org/probe/1"
			return current, nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositSubmitted, got.Status)
}

func TestTransitionDeposit_PreconditionRejectsImmediately(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", Status: domain.DepositAccepted}
	require.NoError(t, repo.SeedDeposit(d))

	_, err = TransitionDeposit(context.Background(), repo, "d1",
		func(current domain.Deposit) error {
			if current.Status.IsTerminal() {
				return assert.AnError
			}
			return nil
		},
		func(current domain.Deposit) (domain.Deposit, error) { return current, nil },
	)
	assert.Error(t, err)
}

func TestPerformCritical_RetriesOnConflictThenSucceeds(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SeedDeposit(domain.Deposit{ID: "d1", Status: domain.DepositNone}))

	attempts := 0

	casFunc := func(ctx context.Context, expected, next domain.Deposit) error {
		attempts++
		if attempts < 3 {
			return repoclient.ErrConflict
		}
		return repo.CompareAndSwapDeposit(ctx, expected, next)
	}

	got, err := PerformCritical(
		context.Background(),
		func(ctx context.Context) (domain.Deposit, error) { return repo.GetDeposit(ctx, "d1") },
		func(domain.Deposit) error { return nil },
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = domain.DepositFailed
			return current, nil
		},
		casFunc,
		func(domain.Deposit) error { return nil },
	)

	require.NoError(t, err)
	assert.Equal(t, domain.DepositFailed, got.Status)
	assert.Equal(t, 3, attempts)
}

func TestPerformCritical_ExhaustsRetryBudget(t *testing.T) {
	casFunc := func(context.Context, domain.Deposit, domain.Deposit) error {
		return repoclient.ErrConflict
	}

	_, err := PerformCritical(
		context.Background(),
		func(context.Context) (domain.Deposit, error) { return domain.Deposit{ID: "d1"}, nil },
		func(domain.Deposit) error { return nil },
		func(current domain.Deposit) (domain.Deposit, error) { return current, nil },
		casFunc,
		func(domain.Deposit) error { return nil },
	)

	assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
}

func TestResetDeposit_ResetsFailedDepositToNone(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", SubmissionID: "s1", RepositoryID: "r1", Status: domain.DepositFailed, ErrorKind: "terminal", ErrorMessage: "rejected"}
	require.NoError(t, repo.SeedDeposit(d))

	got, err := ResetDeposit(context.Background(), repo, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DepositNone, got.Status)
	assert.Empty(t, got.ErrorKind)
	assert.Empty(t, got.ErrorMessage)
}

func TestResetDeposit_RejectsNonFailedDeposit(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	d := domain.Deposit{ID: "d1", Status: domain.DepositSubmitted}
	require.NoError(t, repo.SeedDeposit(d))

	_, err = ResetDeposit(context.Background(), repo, "d1")
	assert.Error(t, err)
}
