package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depositcore/engine/internal/dispatch"
	"github.com/depositcore/engine/internal/ingest"
	"github.com/depositcore/engine/internal/mq"
	"github.com/depositcore/engine/internal/platform/app"
)

// newListenCommand builds `depositengine listen`: run the ingest and
// refresh loops until terminated (spec.md §7).
func newListenCommand(flags *globalFlags) *cobra.Command {
	var consumerTag string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "run the ingest and refresh loops until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd, *flags, consumerTag)
		},
	}

	cmd.Flags().StringVar(&consumerTag, "consumer-tag", "depositengine", "AMQP consumer tag")

	return cmd
}

func runListen(cmd *cobra.Command, flags globalFlags, consumerTag string) error {
	ctx := cmd.Context()

	eng, err := buildEngine(flags)
	if err != nil {
		return err
	}

	conn, err := mq.Dial(ctx, eng.Registry.Settings.AMQPConnectionString, eng.Logger)
	if err != nil {
		return fmt.Errorf("connecting to message broker: %w", err)
	}
	defer conn.Close()

	dispatcher := &dispatch.Dispatcher{
		Conn:        conn,
		QueueName:   eng.Registry.Settings.AMQPQueueName,
		ConsumerTag: consumerTag,
		Filter: &ingest.Filter{
			SelfAgentName: eng.Registry.Settings.SelfAgentName,
			Repo:          eng.Repo,
			Logger:        eng.Logger,
		},
		ConfigRegistry: eng.Registry,
		Task:           eng.Task,
		WorkerPoolSize: eng.Registry.Settings.EffectiveWorkerPoolSize(),
		Logger:         eng.Logger,
	}

	refresher := &dispatch.Refresher{
		Repo:           eng.Repo,
		ConfigRegistry: eng.Registry,
		Resolver:       eng.Resolver,
		Task:           eng.Task,
		Interval:       eng.Registry.Settings.RefreshInterval,
		Logger:         eng.Logger,
	}

	launcher := app.New(eng.Logger, eng.Registry.Settings.EffectiveShutdownDeadline())
	launcher.Add("ingest", dispatcher)
	launcher.Add("refresh", refresher)
	launcher.Run(ctx)

	return nil
}
