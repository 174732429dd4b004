package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depositcore/engine/internal/cri"
)

// newRetryCommand builds `depositengine retry --uri=<deposit-uri>...`:
// reset the given failed deposits to "none" via CRI and re-enqueue them
// for processing (spec.md §7). Re-enqueueing here means running the
// same deposittask.Task a live ingest loop would have scheduled,
// synchronously, since a one-shot CLI invocation has no worker pool of
// its own to hand the job to.
func newRetryCommand(flags *globalFlags) *cobra.Command {
	var uris []string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "reset failed deposits and re-run them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(uris) == 0 {
				return fmt.Errorf("retry: at least one --uri is required")
			}

			eng, err := buildEngine(*flags)
			if err != nil {
				return err
			}

			return retryAll(cmd.Context(), eng, uris)
		},
	}

	cmd.Flags().StringArrayVar(&uris, "uri", nil, "deposit identifiers to reset and retry (repeatable, required)")

	return cmd
}

func retryAll(ctx context.Context, eng *engine, ids []string) error {
	for _, id := range ids {
		reset, err := cri.ResetDeposit(ctx, eng.Repo, id)
		if err != nil {
			return fmt.Errorf("retry: resetting deposit %q: %w", id, err)
		}

		if err := eng.Task.Run(ctx, reset.SubmissionID, reset.RepositoryID); err != nil {
			return fmt.Errorf("retry: re-running deposit %q: %w", id, err)
		}
	}

	return nil
}
