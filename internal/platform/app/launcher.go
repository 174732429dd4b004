// Package app generalizes the teacher's Launcher/App pattern with explicit
// cancellation: every registered App observes a context.Context and is
// expected to return once it is cancelled, within the caller-provided
// shutdown deadline.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/depositcore/engine/internal/platform/console"
	"github.com/depositcore/engine/internal/platform/logx"
)

// App is a deployable unit run by a Launcher. Run must return once ctx is
// cancelled; it is the unit's responsibility to unwind any in-flight work
// within the Launcher's shutdown deadline.
type App interface {
	Run(ctx context.Context) error
}

// Launcher runs a fixed set of named Apps concurrently and waits for all of
// them to return, or for the shutdown deadline to elapse after
// cancellation, whichever comes first.
type Launcher struct {
	Logger           logx.Logger
	ShutdownDeadline time.Duration

	apps map[string]App
}

// New creates an empty Launcher. ShutdownDeadline defaults to 10s per
// spec.md §4.8 if left zero.
func New(logger logx.Logger, shutdownDeadline time.Duration) *Launcher {
	if shutdownDeadline <= 0 {
		shutdownDeadline = 10 * time.Second
	}

	if logger == nil {
		logger = &logx.NoneLogger{}
	}

	return &Launcher{
		Logger:           logger,
		ShutdownDeadline: shutdownDeadline,
		apps:             make(map[string]App),
	}
}

// Add registers an App under name. It returns the Launcher for chaining.
func (l *Launcher) Add(name string, a App) *Launcher {
	l.apps[name] = a
	return l
}

// Run starts every registered App in its own goroutine, blocks until ctx is
// cancelled, then waits up to ShutdownDeadline for all Apps to return.
// Apps still running after the deadline are abandoned; Run returns
// regardless so the process can exit.
func (l *Launcher) Run(ctx context.Context) {
	fmt.Println(console.Title("Deposit Engine"))
	l.Logger.Infof("starting %d app(s)", len(l.apps))

	var wg sync.WaitGroup

	wg.Add(len(l.apps))

	for name, a := range l.apps {
		go func(name string, a App) {
			defer wg.Done()

			l.Logger.Infof("app %q starting", name)

			if err := a.Run(ctx); err != nil {
				l.Logger.Errorf("app %q exited with error: %v", name, err)
			} else {
				l.Logger.Infof("app %q finished", name)
			}
		}(name, a)
	}

	<-ctx.Done()
	l.Logger.Info("shutdown signal observed, waiting for apps to drain")

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.Logger.Info("all apps drained cleanly")
	case <-time.After(l.ShutdownDeadline):
		l.Logger.Warn("shutdown deadline elapsed with apps still running; exiting anyway")
	}
}
