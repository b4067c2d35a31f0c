package fileops

import (
	"context"
	"errors"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/duopane/duopane/internal/logging"
)

// Request describes one bulk operation for a Runner.
type Request struct {
	Op       Op
	Src      string
	DstDir   string // unused for delete
	Resolver CollisionResolver
	Walk     fsx.WalkOptions
	Debug    logging.Sink
}

// Runner owns the worker goroutine of one operation. The control thread
// reads Progress() and Done() and may call Cancel() at any time; the worker
// never waits on the control thread. Callers run at most one active Runner
// at a time — overlapping destination paths between concurrent operations
// are not serialized here.
type Runner struct {
	tracker *Tracker
	cancel  context.CancelFunc
}

// Start spawns the worker: plan, then execute, then deliver exactly one
// Result. A planning failure aborts with nothing mutated.
func Start(parent context.Context, req Request) *Runner {
	ctx, cancel := context.WithCancel(parent)
	r := &Runner{tracker: NewTracker(), cancel: cancel}

	go func() {
		defer cancel()

		plan, err := Plan(ctx, req.Op, req.Src, req.DstDir, PlanOptions{
			Resolver: req.Resolver,
			Walk:     req.Walk,
			Debug:    req.Debug,
		}, r.tracker.Publish)
		if err != nil {
			state := StateAborted
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				state = StateCancelled
			}
			r.tracker.Finish(&Result{Op: req.Op, State: state, Fatal: err})
			return
		}

		r.tracker.Finish(Execute(ctx, plan, r.tracker.Publish))
	}()

	return r
}

// Cancel requests cancellation; the worker observes it at its next check
// point (before each directory descent and each entry operation).
func (r *Runner) Cancel() { r.cancel() }

// Progress is the latest-value-wins snapshot stream.
func (r *Runner) Progress() <-chan Progress { return r.tracker.Progress() }

// Done delivers the terminal result exactly once.
func (r *Runner) Done() <-chan *Result { return r.tracker.Done() }
