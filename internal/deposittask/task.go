// Package deposittask implements the Deposit Task (spec.md C7): the
// orchestration of one (Submission, target Repository) pair through
// model building, package assembly, transport, and critical-section
// status recording. This is the unit of work C8's worker pool executes.
package deposittask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/classify"
	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/cri"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/modelbuilder"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/platform/logx"
	"github.com/depositcore/engine/internal/repoclient"
	"github.com/depositcore/engine/internal/transport"
)

// Task orchestrates a single deposit attempt. It is built once at
// startup (composition root) and reused across every (submission,
// repository) pair; it holds no per-attempt mutable state itself.
type Task struct {
	Repo              repoclient.Client
	Registry          *config.Registry
	ModelBuilder      *modelbuilder.Builder
	AssemblerRegistry *assembler.Registry
	TransportRegistry *transport.Registry
	Logger            logx.Logger
}

func (t *Task) logger() logx.Logger {
	if t.Logger != nil {
		return t.Logger
	}

	return &logx.NoneLogger{}
}

// depositID is the deterministic identifier for the (submission,
// repository) pair's Deposit record, so re-running a task for the same
// pair after a crash addresses the same entity rather than creating a
// duplicate (spec.md §5's "idempotent restart recovery").
func depositID(submissionID, repositoryID string) string {
	return submissionID + "@" + repositoryID
}

// Run executes spec.md §4.7's 9-step algorithm for one (submissionID,
// repositoryID) pair:
//  1. resolve the Submission and the repository's configuration
//  2. acquire the deposit: CRI-transition it to Submitted with
//     precondition status ∈ {none, failed}, the concurrency lock spec.md
//     §5 describes — the loser of a race between two concurrent attempts
//     at the same pair observes status=submitted and aborts cleanly with
//     a PreconditionFailed error
//  3. build the DepositModel (C2)
//  4. assemble the package stream (C3)
//  5. open a transport Session for the repository's protocol (C4)
//  6. send the package
//  7. on success, record whichever of {status-probe URI, RepositoryCopy}
//     the transport returned
//  8. on failure, classify the error (C9) and record it on the Deposit
//  9. close the session and recompute the Submission's aggregate status
func (t *Task) Run(ctx context.Context, submissionID, repositoryID string) error {
	sub, err := t.Repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("deposittask: resolving submission %s: %w", submissionID, err)
	}

	repoCfg, ok := t.Registry.Get(repositoryID)
	if !ok {
		return errs.ConfigurationError{Key: repositoryID, Message: "no configuration registered for this repository"}
	}

	id := depositID(submissionID, repositoryID)

	if _, err := cri.CreateDeposit(ctx, t.Repo, domain.Deposit{
		ID: id, SubmissionID: submissionID, RepositoryID: repositoryID, Status: domain.DepositNone,
	}); err != nil {
		t.logger().Debugf("deposittask: deposit %s already exists or could not be created: %v", id, err)
	}

	if err := t.lock(ctx, id); err != nil {
		return fmt.Errorf("deposittask: acquiring deposit %s: %w", id, err)
	}

	runErr := t.attempt(ctx, sub, repoCfg, id)

	if _, aggErr := cri.UpdateSubmissionAggregateStatus(ctx, t.Repo, submissionID); aggErr != nil {
		t.logger().Warnf("deposittask: recomputing aggregate status for %s: %v", submissionID, aggErr)
	}

	return runErr
}

// lock is spec.md §4.7 step 2 and §5's concurrency-control mechanism: it
// CRI-transitions the Deposit to Submitted before any model building,
// assembly, or transport is attempted, so two concurrent Task.Run calls
// for the same (submission, repository) pair race on this single
// compare-and-swap rather than both independently depositing the package.
// The loser observes the precondition failure and returns cleanly.
func (t *Task) lock(ctx context.Context, id string) error {
	_, err := cri.TransitionDeposit(ctx, t.Repo, id,
		func(current domain.Deposit) error {
			if current.Status != domain.DepositNone && current.Status != domain.DepositFailed {
				return errs.PreconditionFailedError{EntityType: "deposit", ID: id, Reason: "deposit is already locked by another attempt"}
			}

			return nil
		},
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = domain.DepositSubmitted
			current.StatusProbeURI = ""
			current.RepositoryCopyID = ""
			current.ErrorKind = ""
			current.ErrorMessage = ""

			return current, nil
		},
	)

	return err
}

func (t *Task) attempt(ctx context.Context, sub domain.Submission, repoCfg config.RepositoryConfig, id string) error {
	dm, err := t.ModelBuilder.Build(ctx, sub)
	if err != nil {
		return t.fail(ctx, id, err)
	}

	asm, ok := t.AssemblerRegistry.Lookup(repoCfg.Assembler.Spec)
	if !ok {
		return t.fail(ctx, id, errs.ConfigurationError{Key: repoCfg.Assembler.Spec, Message: "no assembler registered for this spec"})
	}

	stream, err := asm.Assemble(dm, assemblerOptions(repoCfg.Assembler))
	if err != nil {
		return t.fail(ctx, id, err)
	}

	adapter, ok := t.TransportRegistry.Lookup(string(repoCfg.Transport.Protocol))
	if !ok {
		return t.fail(ctx, id, errs.ConfigurationError{Key: string(repoCfg.Transport.Protocol), Message: "no transport adapter registered for this protocol"})
	}

	session, err := adapter.Open(ctx, repoCfg.Transport)
	if err != nil {
		return t.fail(ctx, id, errs.TransportError{Protocol: string(repoCfg.Transport.Protocol), Retryable: true, Err: err})
	}

	resp, sendErr := session.Send(ctx, stream, transport.Hints{
		RepositoryID:   repoCfg.RepositoryID,
		SubmissionMeta: dm.RawMetadata,
		Now:            time.Now().UTC(),
	})

	closeErr := session.Close()
	if closeErr != nil {
		t.logger().Debugf("deposittask: closing session for %s: %v", id, closeErr)
	}

	if sendErr != nil {
		return t.fail(ctx, id, wrapTransportErr(repoCfg.Transport.Protocol, sendErr))
	}

	return t.succeed(ctx, id, sub.ID, repoCfg.RepositoryID, resp)
}

// wrapTransportErr normalizes a Session.Send failure into an
// errs.TransportError so classify.Classify can tell a retry-worthy
// transport fault from a terminal one. Adapters that already return a
// typed errs.TransportError (e.g. swordv2's status-code classification)
// pass through unchanged; anything else (a plain network or I/O error,
// or transport.ErrSessionTainted) is treated as retryable.
func wrapTransportErr(protocol domain.TransportProtocol, err error) error {
	var existing errs.TransportError
	if errors.As(err, &existing) {
		return err
	}

	return errs.TransportError{Protocol: string(protocol), Retryable: true, Err: err}
}

func assemblerOptions(a config.AssemblerOptions) assembler.Options {
	algorithms := make([]model.ChecksumAlgorithm, 0, len(a.Algorithms))
	for _, name := range a.Algorithms {
		algorithms = append(algorithms, model.ChecksumAlgorithm(name))
	}

	return assembler.Options{
		Spec:        a.Spec,
		Archive:     model.ArchiveFormat(a.Archive),
		Compression: model.Compression(a.Compression),
		Algorithms:  algorithms,
		SpecOptions: a.SpecOptions,
	}
}

// succeed records the transport response against a Deposit already
// locked into Submitted by lock; it attaches metadata (status-probe URI,
// RepositoryCopy) rather than advancing status, which is why its
// precondition checks the lock itself rather than CanTransitionTo.
func (t *Task) succeed(ctx context.Context, id, submissionID, repositoryID string, resp transport.Response) error {
	_, err := cri.TransitionDeposit(ctx, t.Repo, id,
		func(current domain.Deposit) error {
			if current.Status != domain.DepositSubmitted {
				return errs.PreconditionFailedError{EntityType: "deposit", ID: id, Reason: "deposit is not in the locked submitted state"}
			}

			return nil
		},
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = domain.DepositSubmitted
			current.StatusProbeURI = resp.StatusProbeURI

			if resp.AccessURL != "" || resp.ExternalID != "" {
				copyID := id + "-copy"
				if err := t.Repo.PutRepositoryCopy(ctx, domain.RepositoryCopy{
					ID: copyID, SubmissionID: submissionID, RepositoryID: repositoryID,
					AccessURL: resp.AccessURL, ExternalID: resp.ExternalID,
					CopyStatus: domain.CopyInProgress,
				}); err != nil {
					return domain.Deposit{}, fmt.Errorf("deposittask: recording repository copy: %w", err)
				}

				current.RepositoryCopyID = copyID
			}

			return current, nil
		},
	)

	return err
}

// fail records cause's classification against the Deposit. A terminal or
// internal failure advances it to Failed; a transient or cancelled one
// leaves status untouched, which (now that lock has already moved it to
// Submitted) means it stays Submitted with neither a status-probe URI nor
// a RepositoryCopy — the signal dispatch.Refresher's retryStalled uses to
// re-schedule it, per spec.md §4.9's "retryable by the Refresh loop
// re-scheduling, not by an in-place retry".
func (t *Task) fail(ctx context.Context, id string, cause error) error {
	classification := classify.Classify(cause)

	_, err := cri.TransitionDeposit(ctx, t.Repo, id,
		func(domain.Deposit) error { return nil },
		func(current domain.Deposit) (domain.Deposit, error) {
			current.ErrorKind = string(classification.Kind)
			current.ErrorMessage = classification.UserMessage

			if classification.Kind == classify.KindTerminal || classification.Kind == classify.KindInternal {
				current.Status = domain.DepositFailed
			}

			return current, nil
		},
	)

	if err != nil {
		t.logger().Warnf("deposittask: recording failure for %s: %v", id, err)
	}

	return cause
}
