// Package dispatch implements the Dispatcher & Scheduler (spec.md C8):
// the ingest loop that turns filtered events into deposit-task jobs, the
// bounded worker pool that runs them, and the periodic refresh sweep
// that drives non-terminal Deposits toward a terminal status. The
// Dispatcher (ingest loop plus worker pool) and the Refresher are the two
// app.App implementations registered with the same
// internal/platform/app.Launcher so cancellation and the shutdown
// deadline are handled uniformly (spec.md §4.8).
package dispatch

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/deposittask"
	"github.com/depositcore/engine/internal/ingest"
	"github.com/depositcore/engine/internal/mq"
	"github.com/depositcore/engine/internal/platform/logx"
)

// job is one scheduled (submission, repository) deposit attempt.
type job struct {
	submissionID string
	repositoryID string
}

// Dispatcher owns the ingest loop and the bounded worker pool that
// consumes it. A Dispatcher is one app.App; construct it once at
// startup and register it with the Launcher under its own name.
type Dispatcher struct {
	Conn           *mq.Connection
	QueueName      string
	ConsumerTag    string
	Filter         *ingest.Filter
	ConfigRegistry *config.Registry
	Task           *deposittask.Task
	WorkerPoolSize int
	Logger         logx.Logger

	jobs chan job
}

func (d *Dispatcher) logger() logx.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return &logx.NoneLogger{}
}

// Run starts the worker pool, then the ingest loop, and blocks until ctx
// is cancelled. Cancellation stops the ingest loop from pulling new
// deliveries and stops workers from starting new deposit attempts;
// whichever attempt a worker is already mid-flight on is allowed to
// finish (spec.md §4.8 "in-flight transport may complete, no new
// transport is started").
func (d *Dispatcher) Run(ctx context.Context) error {
	poolSize := d.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	d.jobs = make(chan job, poolSize)

	var workers sync.WaitGroup

	workers.Add(poolSize)

	for i := 0; i < poolSize; i++ {
		go func() {
			defer workers.Done()
			d.work(ctx)
		}()
	}

	ingestErr := d.ingestLoop(ctx)

	close(d.jobs)
	workers.Wait()

	return ingestErr
}

// work drains d.jobs until the channel closes, running each scheduled
// deposit attempt to completion. A worker never abandons an attempt it
// has already started; once ctx is cancelled, jobs still buffered in the
// channel are drained without being started, and ingestLoop stops
// enqueuing new ones.
func (d *Dispatcher) work(ctx context.Context) {
	for j := range d.jobs {
		if ctx.Err() != nil {
			continue
		}

		if err := d.Task.Run(ctx, j.submissionID, j.repositoryID); err != nil {
			d.logger().Warnf("dispatch: deposit task %s@%s failed: %v", j.submissionID, j.repositoryID, err)
		}
	}
}

// ingestLoop consumes deliveries from the broker, applies the Event
// Filter, and enqueues one job per (submission, configured target
// repository) pair the submission names. A delivery is acknowledged
// once its jobs are durably enqueued (or once it's determined no jobs
// apply), never after the deposit attempt itself completes — spec.md
// §5's "ack on successful scheduling, not successful deposit".
func (d *Dispatcher) ingestLoop(ctx context.Context) error {
	for {
		deliveries, err := d.Conn.Consume(ctx, d.QueueName, d.ConsumerTag)
		if err != nil {
			return err
		}

		if !d.drain(ctx, deliveries) {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.Conn.Reconnect(ctx); err != nil {
			return err
		}
	}
}

// drain consumes deliveries until ctx is cancelled or the channel
// closes (broker disconnect). It returns false when ctx was the cause,
// signalling ingestLoop to stop rather than reconnect.
func (d *Dispatcher) drain(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case delivery, ok := <-deliveries:
			if !ok {
				return true
			}

			d.handle(ctx, delivery)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, delivery amqp.Delivery) {
	event, err := ingest.ParseEvent(delivery.Body)
	if err != nil {
		d.logger().Debugf("dispatch: %v", err)
		_ = delivery.Nack(false, false)

		return
	}

	sub, ok := d.Filter.Evaluate(ctx, event)
	if !ok {
		_ = delivery.Ack(false)
		return
	}

	for _, repoID := range d.targetRepositories(sub.RepositoryRefs) {
		select {
		case d.jobs <- job{submissionID: sub.ID, repositoryID: repoID}:
		case <-ctx.Done():
			_ = delivery.Nack(false, true)
			return
		}
	}

	_ = delivery.Ack(false)
}

// targetRepositories narrows refs down to the repository ids this
// process actually has configuration for, preserving refs' order.
func (d *Dispatcher) targetRepositories(refs []string) []string {
	out := make([]string, 0, len(refs))

	for _, ref := range refs {
		if _, ok := d.ConfigRegistry.Get(ref); ok {
			out = append(out, ref)
		}
	}

	return out
}
