package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/cri"
	"github.com/depositcore/engine/internal/deposittask"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/platform/logx"
	"github.com/depositcore/engine/internal/repoclient"
	"github.com/depositcore/engine/internal/statusresolver"
)

// Refresher is the periodic refresh sweep: it lists every non-terminal
// Deposit and either (a) re-schedules it through the Deposit Task, if it
// carries neither a status-probe URI nor a RepositoryCopy (spec.md §4.9's
// "retryable by the Refresh loop re-scheduling" policy for a transient
// transport failure), or (b) polls its status-probe URI through the
// Status Resolver and transitions the Deposit via the CRI when a new
// canonical status can be determined. It is a second app.App, independent
// of Dispatcher, so a slow sweep never blocks ingest.
type Refresher struct {
	Repo           repoclient.Client
	ConfigRegistry *config.Registry
	Resolver       *statusresolver.Resolver
	Task           *deposittask.Task
	Interval       time.Duration
	Logger         logx.Logger
}

func (r *Refresher) logger() logx.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return &logx.NoneLogger{}
}

// Run sweeps immediately, then every r.Interval, until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Refresher) sweep(ctx context.Context) {
	if err := r.RunOnce(ctx, nil); err != nil {
		r.logger().Warnf("dispatch: refresh: %v", err)
	}
}

// RunOnce executes a single refresh pass (spec.md's `refresh
// [--uri=<deposit-uri>...]`). With no ids it sweeps every non-terminal
// Deposit; given ids, it restricts the pass to exactly those deposits,
// resolved individually so an unknown id surfaces as an error rather
// than being silently skipped.
func (r *Refresher) RunOnce(ctx context.Context, ids []string) error {
	var deposits []domain.Deposit

	if len(ids) == 0 {
		var err error

		deposits, err = r.Repo.ListNonTerminalDeposits(ctx)
		if err != nil {
			return fmt.Errorf("listing non-terminal deposits: %w", err)
		}
	} else {
		deposits = make([]domain.Deposit, 0, len(ids))

		for _, id := range ids {
			d, err := r.Repo.GetDeposit(ctx, id)
			if err != nil {
				return fmt.Errorf("resolving deposit %q: %w", id, err)
			}

			deposits = append(deposits, d)
		}
	}

	for _, d := range deposits {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.refreshOne(ctx, d)
	}

	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, d domain.Deposit) {
	if d.Status.IsTerminal() {
		return
	}

	if !d.HasStatusProbe() && d.RepositoryCopyID == "" {
		r.retryStalled(ctx, d)
		return
	}

	if !d.HasStatusProbe() {
		return
	}

	repoCfg, ok := r.ConfigRegistry.Get(d.RepositoryID)
	if !ok {
		return
	}

	status, ok, err := r.Resolver.Resolve(ctx, d.StatusProbeURI, repoCfg.StatusMapping, repoCfg.FollowStatusRedirects)
	if err != nil {
		r.logger().Debugf("dispatch: refresh: probing deposit %s: %v", d.ID, err)
		return
	}

	if !ok || status == d.Status {
		return
	}

	_, err = cri.TransitionDeposit(ctx, r.Repo, d.ID,
		func(current domain.Deposit) error {
			if !current.Status.CanTransitionTo(status) {
				return errs.PreconditionFailedError{EntityType: "deposit", ID: d.ID, Reason: "probed status does not follow current status"}
			}

			return nil
		},
		func(current domain.Deposit) (domain.Deposit, error) {
			current.Status = status
			return current, nil
		},
	)

	if err != nil {
		r.logger().Debugf("dispatch: refresh: transitioning deposit %s to %s: %v", d.ID, status, err)
	}
}

// retryStalled re-schedules a Deposit that is non-terminal but carries
// neither a status-probe URI nor a RepositoryCopy — the state a transient
// transport failure leaves it in, now that Task.Run locks it into
// "submitted" before attempting assembly and transport (spec.md §4.7 step
// 2). It is the "Refresh loop re-scheduling" spec.md §4.9 requires for
// transport-network and transport-server-error failures; Task.Run's own
// CRI preconditions make a redundant or overlapping re-attempt safe.
func (r *Refresher) retryStalled(ctx context.Context, d domain.Deposit) {
	if r.Task == nil {
		return
	}

	if err := r.Task.Run(ctx, d.SubmissionID, d.RepositoryID); err != nil {
		r.logger().Debugf("dispatch: refresh: re-attempting stalled deposit %s: %v", d.ID, err)
	}
}
