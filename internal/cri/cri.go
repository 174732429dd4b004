// Package cri implements the Critical Repository Interaction (spec.md
// C6): the sole legal writer of durable Submission and Deposit state.
// Every write goes through PerformCritical's fixed
// read-precondition-modify-compare-and-swap-retry-postcondition flow;
// no other package calls repoclient.Client's CompareAndSwap* methods
// directly.
package cri

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/repoclient"
)

// retryBudget and backoffStep implement spec.md §4.6's retry policy: up
// to 5 attempts, linear backoff (attempt * backoffStep) between them.
const (
	retryBudget = 5
	backoffStep = 50 * time.Millisecond
)

// ErrRetryBudgetExhausted is returned when every attempt lost the
// compare-and-swap race against a concurrent writer.
var ErrRetryBudgetExhausted = errors.New("cri: exhausted retry budget")

// sleeper is overridable in tests so the retry-budget path doesn't
// actually block for backoffStep * retryBudget wall-clock time.
var sleeper = time.Sleep

// PerformCritical runs the fixed critical-section algorithm over one
// entity of type T: read the current value, check precondition, compute
// the next value, attempt a compare-and-swap write, and on a lost race
// (repoclient.ErrConflict) retry from a fresh read up to retryBudget
// times with linear backoff. Once the write lands, postcondition is
// checked against the committed value; a postcondition failure is
// reported but the write is not undone (spec.md §4.6: postcondition
// failures flag for operator attention, they do not roll back a
// successful commit).
func PerformCritical[T any](
	ctx context.Context,
	read func(context.Context) (T, error),
	precondition func(T) error,
	modify func(T) (T, error),
	cas func(ctx context.Context, expected, next T) error,
	postcondition func(T) error,
) (T, error) {
	var zero T

	for attempt := 0; attempt < retryBudget; attempt++ {
		current, err := read(ctx)
		if err != nil {
			return zero, err
		}

		if err := precondition(current); err != nil {
			return zero, err
		}

		next, err := modify(current)
		if err != nil {
			return zero, err
		}

		err = cas(ctx, current, next)
		if err == nil {
			if err := postcondition(next); err != nil {
				return next, err
			}

			return next, nil
		}

		if !errors.Is(err, repoclient.ErrConflict) {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		sleeper(time.Duration(attempt+1) * backoffStep)
	}

	return zero, ErrRetryBudgetExhausted
}

// TransitionDeposit runs PerformCritical over a single Deposit, the most
// common shape of critical section in this engine: C7 transitioning a
// Deposit's status (e.g. None -> Submitted, Submitted -> Accepted).
func TransitionDeposit(
	ctx context.Context,
	repo repoclient.Client,
	depositID string,
	precondition func(domain.Deposit) error,
	modify func(domain.Deposit) (domain.Deposit, error),
) (domain.Deposit, error) {
	return PerformCritical(
		ctx,
		func(ctx context.Context) (domain.Deposit, error) { return repo.GetDeposit(ctx, depositID) },
		precondition,
		modify,
		repo.CompareAndSwapDeposit,
		func(d domain.Deposit) error { return nil },
	)
}

// CreateDeposit runs PerformCritical's create path for a brand-new
// Deposit: precondition enforces spec.md §3 invariant (ii) — at most one
// non-failed Deposit per (Submission, Repository) — by requiring no
// Deposit currently exists at depositID.
func CreateDeposit(
	ctx context.Context,
	repo repoclient.Client,
	deposit domain.Deposit,
) (domain.Deposit, error) {
	return PerformCritical(
		ctx,
		func(ctx context.Context) (domain.Deposit, error) {
			d, err := repo.GetDeposit(ctx, deposit.ID)
			if err != nil {
				var notFound errs.NotFoundError
				if errors.As(err, &notFound) {
					return domain.Deposit{}, nil
				}

				return domain.Deposit{}, err
			}

			return d, nil
		},
		func(current domain.Deposit) error {
			if current != (domain.Deposit{}) {
				return fmt.Errorf("cri: deposit %s already exists", deposit.ID)
			}

			return nil
		},
		func(domain.Deposit) (domain.Deposit, error) { return deposit, nil }, //nolint:unparam
		repo.CompareAndSwapDeposit,
		func(d domain.Deposit) error {
			if !domain.DepositSubmittedRequiresProbeOrCopy(d) {
				return fmt.Errorf("cri: deposit %s violates submitted-requires-probe-or-copy invariant", d.ID)
			}

			return nil
		},
	)
}

// UpdateSubmissionAggregateStatus runs PerformCritical over a
// Submission's AggregatedStatus field, recomputing it from the
// submission's current Deposits (spec.md §3 invariant iv).
func UpdateSubmissionAggregateStatus(
	ctx context.Context,
	repo repoclient.Client,
	submissionID string,
) (domain.Submission, error) {
	return PerformCritical(
		ctx,
		func(ctx context.Context) (domain.Submission, error) { return repo.GetSubmission(ctx, submissionID) },
		func(domain.Submission) error { return nil },
		func(current domain.Submission) (domain.Submission, error) {
			deposits, err := repo.ListDepositsBySubmission(ctx, submissionID)
			if err != nil {
				return domain.Submission{}, err
			}

			next := current
			if allTerminal(deposits) {
				next.AggregatedStatus = "complete"
			}

			if hasInternalError(deposits) {
				next.RequiresOperatorAttention = true
			}

			return next, nil
		},
		repo.CompareAndSwapSubmission,
		func(s domain.Submission) error {
			deposits, err := repo.ListDepositsBySubmission(ctx, submissionID)
			if err != nil {
				return err
			}

			if !domain.SubmissionAggregateComplete(s, deposits) {
				return fmt.Errorf("cri: submission %s aggregate-complete invariant violated", s.ID)
			}

			return nil
		},
	)
}

// ResetDeposit resets a failed Deposit back to DepositNone so it can be
// re-enqueued for processing (the CLI `retry` operation). This is a
// distinct reset, not a status advance, so it does not go through
// DepositStatus.CanTransitionTo — the precondition here enforces the
// reset's own legality directly: only a DepositFailed deposit resets.
func ResetDeposit(
	ctx context.Context,
	repo repoclient.Client,
	depositID string,
) (domain.Deposit, error) {
	return PerformCritical(
		ctx,
		func(ctx context.Context) (domain.Deposit, error) { return repo.GetDeposit(ctx, depositID) },
		func(current domain.Deposit) error {
			if current.Status != domain.DepositFailed {
				return errs.PreconditionFailedError{EntityType: "deposit", ID: depositID, Reason: "only a failed deposit can be reset"}
			}

			return nil
		},
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = domain.DepositNone
			current.ErrorKind = ""
			current.ErrorMessage = ""

			return current, nil
		},
		repo.CompareAndSwapDeposit,
		func(d domain.Deposit) error {
			if d.Status != domain.DepositNone {
				return errs.PostconditionFailedError{EntityType: "deposit", ID: depositID, Reason: "reset did not land deposit in none"}
			}

			return nil
		},
	)
}

func allTerminal(deposits []domain.Deposit) bool {
	if len(deposits) == 0 {
		return false
	}

	for _, d := range deposits {
		if !d.Status.IsTerminal() {
			return false
		}
	}

	return true
}

func hasInternalError(deposits []domain.Deposit) bool {
	for _, d := range deposits {
		if d.ErrorKind == "internal" {
			return true
		}
	}

	return false
}
