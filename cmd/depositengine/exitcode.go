package main

import (
	"errors"

	"github.com/depositcore/engine/internal/classify"
	"github.com/depositcore/engine/internal/platform/errs"
)

// Exit codes per spec.md §7's CLI surface.
const (
	exitOK               = 0
	exitInvalidArgument  = 1
	exitTransientFailure = 2
	exitFatal            = 3
)

// exitCodeFor maps a subcommand's returned error onto spec.md's fixed
// exit-code contract. A caller-supplied identifier that doesn't resolve
// (errs.NotFoundError) or a misconfigured repository (errs.
// ConfigurationError) is the operator's mistake, not the engine's
// — invalid-argument, not fatal. Everything else defers to
// internal/classify's existing taxonomy: a cancelled run exits OK,
// transient classifications retry on a future invocation, anything else
// is fatal.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var (
		notFound  errs.NotFoundError
		configErr errs.ConfigurationError
	)

	switch {
	case errors.As(err, &notFound), errors.As(err, &configErr):
		return exitInvalidArgument
	}

	switch classify.Classify(err).Kind {
	case classify.KindCancelled:
		return exitOK
	case classify.KindTransient:
		return exitTransientFailure
	default:
		return exitFatal
	}
}
