package fileops

import (
	"sync"
	"time"
)

// Phase tells the control thread what the worker is doing.
type Phase int

const (
	PhasePlanning Phase = iota
	PhaseCopying
	PhaseMoving
	PhaseDeleting
)

func (p Phase) String() string {
	switch p {
	case PhasePlanning:
		return "planning"
	case PhaseCopying:
		return "copying"
	case PhaseMoving:
		return "moving"
	default:
		return "deleting"
	}
}

// Progress is one snapshot of a running operation. Snapshots are
// latest-value-wins: the reader only ever needs the most recent one.
type Progress struct {
	Phase        Phase
	CurrentPath  string
	BytesDone    int64
	BytesTotal   int64
	EntriesDone  int
	EntriesTotal int
}

// publishInterval throttles snapshot publication; forced publishes (entry
// boundaries, terminal states) bypass it.
const publishInterval = 100 * time.Millisecond

// Tracker carries progress snapshots and the terminal result from one worker
// to one reader. Snapshots overwrite each other on a capacity-1 channel so a
// slow reader never blocks the worker; the terminal result travels on its own
// buffered channel and is delivered exactly once, never dropped.
type Tracker struct {
	progress chan Progress
	done     chan *Result
	once     sync.Once
	last     time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		progress: make(chan Progress, 1),
		done:     make(chan *Result, 1),
	}
}

// Publish offers a snapshot, replacing any unread one. Throttled unless
// force is set.
func (t *Tracker) Publish(p Progress, force bool) {
	if !force && time.Since(t.last) < publishInterval {
		return
	}
	t.last = time.Now()

	select {
	case t.progress <- p:
	default:
		// Drop the stale snapshot, then offer the fresh one. If the reader
		// raced us and drained in between, the second send succeeds.
		select {
		case <-t.progress:
		default:
		}
		select {
		case t.progress <- p:
		default:
		}
	}
}

// Finish delivers the terminal result. Safe to call more than once; only the
// first result is delivered.
func (t *Tracker) Finish(r *Result) {
	t.once.Do(func() {
		t.done <- r
	})
}

// Progress is the snapshot stream for the control thread.
func (t *Tracker) Progress() <-chan Progress { return t.progress }

// Done yields the terminal result exactly once.
func (t *Tracker) Done() <-chan *Result { return t.done }
