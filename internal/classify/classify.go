// Package classify implements the Error Classifier (spec.md C9): it maps
// any error this engine raises into a {kind, retryable, target-resource,
// user-message} tuple, replacing per-call-site ad hoc error handling
// with one place that knows the full typed-error taxonomy
// (internal/platform/errs).
package classify

import (
	"errors"

	"github.com/depositcore/engine/internal/platform/errs"
)

// Kind is the top-level bucket C8's dispatcher and C7's task loop branch
// on (spec.md §4.9/§7).
type Kind string

const (
	// KindTransient is retry-worthy without operator involvement: a
	// network blip, a conflict lost against a concurrent writer, a
	// target repository momentarily unavailable.
	KindTransient Kind = "transient"

	// KindTerminal means this attempt cannot succeed no matter how many
	// times it's retried (a rejected deposit, a malformed submission);
	// the task ends, no further retry is scheduled.
	KindTerminal Kind = "terminal"

	// KindInternal means the engine's own invariants were violated or an
	// unrecognized error surfaced; these flag Submission.
	// RequiresOperatorAttention rather than being silently retried.
	KindInternal Kind = "internal"

	// KindCancelled means the operation unwound cleanly because of
	// caller cancellation (shutdown), not a fault at all.
	KindCancelled Kind = "cancelled"
)

// Classification is the Error Classifier's complete verdict on one
// error.
type Classification struct {
	Kind           Kind
	Retryable      bool
	TargetResource string
	UserMessage    string
}

// Classify inspects err's concrete type (via errors.As over the
// errs.* family) and returns its Classification. An error type this
// package doesn't recognize is classified KindInternal, not retryable —
// spec.md §4.9's fail-safe default, since silently retrying an
// unrecognized failure risks masking a real bug.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindTerminal, UserMessage: "no error"}
	}

	var (
		notFound      errs.NotFoundError
		validation    errs.ValidationError
		conflict      errs.ConflictError
		precondition  errs.PreconditionFailedError
		postcondition errs.PostconditionFailedError
		transportErr  errs.TransportError
		configErr     errs.ConfigurationError
		cancelled     errs.CancelledError
	)

	switch {
	case errors.As(err, &cancelled):
		return Classification{Kind: KindCancelled, UserMessage: cancelled.Error()}

	case errors.As(err, &transportErr):
		return Classification{
			Kind:        kindForBool(transportErr.Retryable),
			Retryable:   transportErr.Retryable,
			UserMessage: transportErr.Error(),
		}

	case errors.As(err, &validation):
		return Classification{
			Kind:           KindTerminal,
			TargetResource: validation.EntityType,
			UserMessage:    validation.Error(),
		}

	case errors.As(err, &notFound):
		return Classification{
			Kind:           KindTerminal,
			TargetResource: notFound.EntityType + ":" + notFound.ID,
			UserMessage:    notFound.Error(),
		}

	case errors.As(err, &conflict):
		return Classification{
			Kind:           KindTransient,
			Retryable:      true,
			TargetResource: conflict.EntityType + ":" + conflict.ID,
			UserMessage:    conflict.Error(),
		}

	case errors.As(err, &precondition):
		return Classification{
			Kind:           KindInternal,
			TargetResource: precondition.EntityType + ":" + precondition.ID,
			UserMessage:    precondition.Error(),
		}

	case errors.As(err, &postcondition):
		return Classification{
			Kind:           KindInternal,
			TargetResource: postcondition.EntityType + ":" + postcondition.ID,
			UserMessage:    postcondition.Error(),
		}

	case errors.As(err, &configErr):
		return Classification{
			Kind:           KindTerminal,
			TargetResource: configErr.Key,
			UserMessage:    configErr.Error(),
		}

	default:
		return Classification{Kind: KindInternal, UserMessage: err.Error()}
	}
}

func kindForBool(retryable bool) Kind {
	if retryable {
		return KindTransient
	}

	return KindTerminal
}
