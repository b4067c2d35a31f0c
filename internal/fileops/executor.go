package fileops

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/duopane/duopane/internal/fsx"
)

// State is the lifecycle of one bulk operation.
type State int

const (
	StateIdle State = iota
	StatePlanning
	StateExecuting
	StateCompleted
	StatePartiallyCompleted
	StateCancelled
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlanning:
		return "planning"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StatePartiallyCompleted:
		return "partially completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "aborted"
	}
}

// EntryError records one per-entry failure that did not stop the operation.
type EntryError struct {
	Path string
	Err  error
}

// Result is the terminal outcome of one operation, delivered exactly once.
type Result struct {
	Op        Op
	State     State
	Done      int // entries applied
	Skipped   int // entries skipped by collision decision
	Total     int
	BytesDone int64
	Errors    []EntryError
	Fatal     error // set when State is Aborted
}

// executor carries the mutable state of one Execute call.
type executor struct {
	ctx     context.Context
	plan    *OperationPlan
	publish func(Progress, bool)
	result  *Result
	// planDiagnosed dedupes execution errors against planning diagnostics so
	// an unreadable directory surfaces once, not once per phase.
	planDiagnosed map[string]struct{}
}

// Execute applies a plan in order. Per-entry failures are recorded and the
// entry skipped; only conditions that make continuing meaningless (volume
// full, destination root vanished) abort the whole run. Cancellation is
// observed between entries and mid-file for copies.
func Execute(ctx context.Context, plan *OperationPlan, publish func(Progress, bool)) *Result {
	if publish == nil {
		publish = func(Progress, bool) {}
	}

	ex := &executor{
		ctx:     ctx,
		plan:    plan,
		publish: publish,
		result: &Result{
			Op:    plan.Op,
			State: StateExecuting,
			Total: plan.TotalEntries,
		},
		planDiagnosed: make(map[string]struct{}, len(plan.Errors)),
	}
	for _, pe := range plan.Errors {
		ex.planDiagnosed[pe.Path] = struct{}{}
		ex.result.Errors = append(ex.result.Errors, EntryError{Path: pe.Path, Err: pathErrCause(pe)})
	}

	switch plan.Op {
	case OpCopy:
		ex.runCopy()
	case OpMove:
		ex.runMove()
	case OpDelete:
		ex.runDelete()
	}

	ex.finalize()
	return ex.result
}

func pathErrCause(pe fsx.PathError) error {
	if pe.Err != nil {
		return pe.Err
	}
	return errors.New(pe.Kind.String())
}

// record notes a non-fatal per-entry failure, once per path.
func (ex *executor) record(path string, err error) {
	if _, seen := ex.planDiagnosed[path]; seen {
		return
	}
	ex.result.Errors = append(ex.result.Errors, EntryError{Path: path, Err: err})
}

// abort marks the run fatally failed.
func (ex *executor) abort(err error) {
	ex.result.State = StateAborted
	ex.result.Fatal = err
}

func (ex *executor) aborted() bool {
	return ex.result.State == StateAborted
}

// fatalWrite reports whether a write-side failure means continuing is
// meaningless: the destination volume is full or the destination root is
// gone.
func (ex *executor) fatalWrite(err error) bool {
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	if ex.plan.DstRoot == "" {
		return false
	}
	if _, statErr := os.Lstat(filepath.Dir(ex.plan.DstRoot)); errors.Is(statErr, fs.ErrNotExist) {
		return true
	}
	return false
}

// tick publishes an entry-boundary progress snapshot.
func (ex *executor) tick(phase Phase, path string) {
	ex.publish(Progress{
		Phase:        phase,
		CurrentPath:  path,
		BytesDone:    ex.result.BytesDone,
		BytesTotal:   ex.plan.TotalBytes,
		EntriesDone:  ex.result.Done,
		EntriesTotal: ex.plan.TotalEntries,
	}, false)
}

// finalize settles the terminal state. Aborted sticks; cancellation wins over
// partial; recorded errors downgrade success to partial. Entries skipped by
// an explicit caller decision do not make a run partial.
func (ex *executor) finalize() {
	if ex.aborted() {
		return
	}
	if ex.ctx.Err() != nil {
		ex.result.State = StateCancelled
		return
	}
	if len(ex.result.Errors) > 0 {
		ex.result.State = StatePartiallyCompleted
		return
	}
	ex.result.State = StateCompleted
}
