package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// newRootCommand builds the depositengine root command and its three
// subcommands (spec.md §7): listen, refresh, retry.
func newRootCommand() *cobra.Command {
	flags := globalFlags{}

	root := &cobra.Command{
		Use:   "depositengine",
		Short: "depositengine dispatches submission deposits to target repositories",
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to the repository configuration file")
	root.PersistentFlags().StringVar(&flags.storeDir, "store-dir", "./depositengine-store", "directory backing the source-of-truth repository client")
	root.PersistentFlags().StringVar(&flags.envName, "env", "development", "deployment environment (development|production), controls log formatting")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug|info|warn|error)")

	root.AddCommand(newListenCommand(&flags))
	root.AddCommand(newRefreshCommand(&flags))
	root.AddCommand(newRetryCommand(&flags))

	return root
}

// execute runs the root command to completion and returns the process
// exit code, per spec.md §7's fixed {0,1,2,3} contract.
func execute() int {
	cobra.EnableCommandSorting = false

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := newRootCommand()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodeFor(err)
	}

	return exitOK
}
