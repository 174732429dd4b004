package main

import (
	"github.com/spf13/cobra"

	"github.com/depositcore/engine/internal/dispatch"
)

// newRefreshCommand builds `depositengine refresh [--uri=<deposit-uri>...]`:
// run one pass of the refresh loop, restricted to the given deposits if
// any are named (spec.md §7).
func newRefreshCommand(flags *globalFlags) *cobra.Command {
	var uris []string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "run one pass of the status-refresh sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(*flags)
			if err != nil {
				return err
			}

			refresher := &dispatch.Refresher{
				Repo:           eng.Repo,
				ConfigRegistry: eng.Registry,
				Resolver:       eng.Resolver,
				Task:           eng.Task,
				Logger:         eng.Logger,
			}

			return refresher.RunOnce(cmd.Context(), uris)
		},
	}

	cmd.Flags().StringArrayVar(&uris, "uri", nil, "restrict the refresh pass to these deposit identifiers (repeatable)")

	return cmd
}
