package fileops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLatestValueWins(t *testing.T) {
	tr := NewTracker()

	// No reader draining: later snapshots replace earlier ones.
	tr.Publish(Progress{EntriesDone: 1}, true)
	tr.Publish(Progress{EntriesDone: 2}, true)
	tr.Publish(Progress{EntriesDone: 3}, true)

	got := <-tr.Progress()
	assert.Equal(t, 3, got.EntriesDone, "the reader sees the most recent snapshot")

	select {
	case extra := <-tr.Progress():
		t.Fatalf("no further snapshot expected, got %+v", extra)
	default:
	}
}

func TestTrackerThrottleSkipsUnforced(t *testing.T) {
	tr := NewTracker()
	tr.Publish(Progress{EntriesDone: 1}, true)
	<-tr.Progress()

	tr.Publish(Progress{EntriesDone: 2}, false) // inside the throttle window

	select {
	case <-tr.Progress():
		t.Fatal("throttled snapshot should have been dropped")
	default:
	}
}

func TestTrackerFinishExactlyOnce(t *testing.T) {
	tr := NewTracker()
	tr.Finish(&Result{State: StateCompleted})
	tr.Finish(&Result{State: StateAborted}) // ignored

	result := <-tr.Done()
	assert.Equal(t, StateCompleted, result.State)

	select {
	case <-tr.Done():
		t.Fatal("terminal result must be delivered exactly once")
	default:
	}
}

func TestTrackerFinishNeverDroppedUnderBackpressure(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 100; i++ {
		tr.Publish(Progress{EntriesDone: i}, true)
	}
	tr.Finish(&Result{State: StatePartiallyCompleted})

	select {
	case result := <-tr.Done():
		assert.Equal(t, StatePartiallyCompleted, result.State)
	case <-time.After(time.Second):
		t.Fatal("terminal result was dropped")
	}
}

func TestRunnerCopyEndToEnd(t *testing.T) {
	src := srcTree(t)
	dst := t.TempDir()

	runner := Start(context.Background(), Request{Op: OpCopy, Src: src, DstDir: dst})

	var result *Result
	deadline := time.After(10 * time.Second)
	for result == nil {
		select {
		case <-runner.Progress():
			// Latest-value-wins stream; contents verified via the result.
		case result = <-runner.Done():
		case <-deadline:
			t.Fatal("runner did not finish")
		}
	}

	require.Equal(t, StateCompleted, result.State)
	assert.Equal(t, result.Total, result.Done)
}

func TestRunnerCancelDuringPlan(t *testing.T) {
	src := srcTree(t)
	dst := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := Start(ctx, Request{Op: OpCopy, Src: src, DstDir: dst})

	select {
	case result := <-runner.Done():
		assert.Equal(t, StateCancelled, result.State)
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not finish")
	}
}

func TestRunnerPlanningFailureAborts(t *testing.T) {
	runner := Start(context.Background(), Request{Op: OpCopy, Src: "/does/not/exist", DstDir: t.TempDir()})

	select {
	case result := <-runner.Done():
		assert.Equal(t, StateAborted, result.State)
		assert.Error(t, result.Fatal)
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not finish")
	}
}
