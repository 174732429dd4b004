// Package repoclient defines the boundary between this engine and the
// external source-of-truth repository (the system publishing the
// submission events this engine reacts to). internal/cri is the only
// caller of the compare-and-set methods; internal/deposittask also writes
// RepositoryCopy records through PutRepositoryCopy from inside a CRI
// critical section, and every other component only reads.
package repoclient

import (
	"context"
	"errors"

	"github.com/depositcore/engine/internal/domain"
)

// ErrConflict is returned by the compare-and-set write methods when the
// entity's current state no longer matches the caller's expected
// snapshot, signalling internal/cri's retry loop to re-read and retry.
var ErrConflict = errors.New("repoclient: compare-and-set conflict")

// Client is the external collaborator spec.md treats as the sole
// authority for durable Submission and Deposit state. internal/cri reads
// through it for preconditions and postconditions, and writes through its
// compare-and-set methods; internal/ingest, internal/modelbuilder,
// internal/deposittask and internal/dispatch hold a Client for reads.
type Client interface {
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	GetDeposit(ctx context.Context, id string) (domain.Deposit, error)
	GetRepository(ctx context.Context, id string) (domain.Repository, error)
	GetFile(ctx context.Context, id string) (domain.File, error)
	GetRepositoryCopy(ctx context.Context, id string) (domain.RepositoryCopy, error)

	// The following resolve the bibliographic and agent graph transitively
	// reachable from a Submission (spec.md §4.2): Publication -> Journal ->
	// Publisher, Grants -> Users (PI/co-PI), Submitter, and Authors.
	GetPublication(ctx context.Context, id string) (domain.Publication, error)
	GetJournal(ctx context.Context, id string) (domain.Journal, error)
	GetPublisher(ctx context.Context, id string) (domain.Publisher, error)
	GetGrant(ctx context.Context, id string) (domain.Grant, error)
	GetUser(ctx context.Context, id string) (domain.User, error)

	// ListDepositsBySubmission returns every Deposit recorded against
	// submissionID, in no particular order.
	ListDepositsBySubmission(ctx context.Context, submissionID string) ([]domain.Deposit, error)

	// ListNonTerminalDeposits returns every Deposit whose status is not
	// terminal, the working set for C8's refresh sweep.
	ListNonTerminalDeposits(ctx context.Context) ([]domain.Deposit, error)

	// CompareAndSwapDeposit atomically replaces the Deposit identified by
	// next.ID with next, but only if the entity's current stored value
	// equals expected. Returns ErrConflict otherwise. A zero-value
	// expected with a non-empty next.ID means "create if absent, fail
	// with ErrConflict if already present".
	CompareAndSwapDeposit(ctx context.Context, expected, next domain.Deposit) error

	// CompareAndSwapSubmission is CompareAndSwapDeposit's analogue for
	// Submission.AggregatedStatus updates.
	CompareAndSwapSubmission(ctx context.Context, expected, next domain.Submission) error

	// PutRepositoryCopy creates or replaces the RepositoryCopy landing
	// record for a Deposit. RepositoryCopy carries no independent
	// invariant requiring CAS (it is always written alongside a Deposit
	// CAS in the same critical section).
	PutRepositoryCopy(ctx context.Context, copy domain.RepositoryCopy) error
}
