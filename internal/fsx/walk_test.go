package fsx

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates a small fixture:
//
//	root/
//	  a/one.txt
//	  a/b/two.txt
//	  three.txt
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "one.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "two.txt"), []byte("twotwo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "three.txt"), []byte("three!!!"), 0o644))
	return root
}

func collect(t *testing.T, root string, opts WalkOptions) []Event {
	t.Helper()
	var events []Event
	err := Walk(context.Background(), root, opts, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestWalkVisitsEveryEntryOnce(t *testing.T) {
	root := buildTree(t)
	events := collect(t, root, WalkOptions{})

	files := map[string]int{}
	dirs := map[string]int{}
	for _, ev := range events {
		switch ev.Type {
		case FileEntry:
			files[ev.Rel]++
		case EnterDir:
			dirs[ev.Rel]++
		case Diagnostic:
			t.Fatalf("unexpected diagnostic %s at %s", ev.Diag, ev.Path)
		}
	}

	assert.Equal(t, map[string]int{
		filepath.Join("a", "one.txt"):      1,
		filepath.Join("a", "b", "two.txt"): 1,
		"three.txt":                        1,
	}, files)
	assert.Equal(t, map[string]int{
		".":                  1,
		"a":                  1,
		filepath.Join("a", "b"): 1,
	}, dirs)
}

func TestWalkBalancedEnterLeave(t *testing.T) {
	root := buildTree(t)
	depth := 0
	err := Walk(context.Background(), root, WalkOptions{}, func(ev Event) error {
		switch ev.Type {
		case EnterDir:
			depth++
		case LeaveDir:
			depth--
			require.GreaterOrEqual(t, depth, 0)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestWalkRootStatFailure(t *testing.T) {
	err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), WalkOptions{}, func(Event) error {
		t.Fatal("no events expected for an unstatable root")
		return nil
	})
	require.Error(t, err)
}

func TestWalkSymlinksOpaqueByDefault(t *testing.T) {
	requireSymlinks(t)
	root := buildTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "link-to-a")))

	events := collect(t, root, WalkOptions{})

	var linkEntry *Entry
	for i, ev := range events {
		if ev.Type == FileEntry && ev.Entry.Kind == KindSymlink {
			linkEntry = &events[i].Entry
		}
		if ev.Type == EnterDir {
			assert.NotEqual(t, "link-to-a", ev.Entry.Name, "opaque symlink must not be descended")
		}
	}
	require.NotNil(t, linkEntry, "symlink should surface as a leaf entry")
	assert.Equal(t, filepath.Join(root, "a"), linkEntry.LinkTarget)

	info, err := linkEntry.TargetInfo()
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWalkCycleDetectedInFollowMode(t *testing.T) {
	requireSymlinks(t)
	root := buildTree(t)
	// a/loop -> root: following it would make the root its own descendant.
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "loop")))

	done := make(chan []Event, 1)
	go func() {
		var events []Event
		_ = Walk(context.Background(), root, WalkOptions{FollowSymlinks: true}, func(ev Event) error {
			events = append(events, ev)
			return nil
		})
		done <- events
	}()

	var events []Event
	select {
	case events = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("cyclic walk did not terminate")
	}

	cycles := 0
	for _, ev := range events {
		if ev.Type == Diagnostic && ev.Diag == DiagCyclicSymlink {
			cycles++
			assert.Contains(t, ev.Path, "loop")
		}
	}
	assert.Equal(t, 1, cycles, "exactly the looping branch should be diagnosed")
}

func TestWalkSelfLinkCycle(t *testing.T) {
	requireSymlinks(t)
	root := t.TempDir()
	sub := filepath.Join(root, "dir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.Symlink(sub, filepath.Join(sub, "self")))

	var cycles int
	err := Walk(context.Background(), root, WalkOptions{FollowSymlinks: true}, func(ev Event) error {
		if ev.Type == Diagnostic && ev.Diag == DiagCyclicSymlink {
			cycles++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cycles)
}

func TestWalkDepthBoundPerBranch(t *testing.T) {
	root := t.TempDir()
	deep := root
	for i := 0; i < 6; i++ {
		deep = filepath.Join(deep, "d")
		require.NoError(t, os.Mkdir(deep, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "shallow.txt"), nil, 0o644))

	var exceeded []string
	sawShallow := false
	err := Walk(context.Background(), root, WalkOptions{MaxDepth: 3}, func(ev Event) error {
		if ev.Type == Diagnostic && ev.Diag == DiagDepthExceeded {
			exceeded = append(exceeded, ev.Rel)
		}
		if ev.Type == FileEntry && ev.Entry.Name == "shallow.txt" {
			sawShallow = true
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, exceeded, 1, "only the branch past the limit is diagnosed")
	assert.Equal(t, filepath.Join("d", "d", "d", "d"), exceeded[0])
	assert.True(t, sawShallow, "shallow branches complete normally")
}

func TestWalkCancellation(t *testing.T) {
	root := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())

	visited := 0
	sawCancelled := false
	err := Walk(ctx, root, WalkOptions{}, func(ev Event) error {
		if ev.Type == Diagnostic && ev.Diag == DiagCancelled {
			sawCancelled = true
			return nil
		}
		visited++
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, sawCancelled, "cancellation must surface as a final diagnostic")
	assert.LessOrEqual(t, visited, 2, "cancellation is observed at the next check point")
}

func TestWalkUnreadableSubdirContinues(t *testing.T) {
	requireChmod(t)
	root := buildTree(t)
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "hidden.txt"), nil, 0o644))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var denied []string
	files := 0
	err := Walk(context.Background(), root, WalkOptions{}, func(ev Event) error {
		if ev.Type == Diagnostic {
			require.Equal(t, DiagPermissionDenied, ev.Diag)
			denied = append(denied, ev.Path)
		}
		if ev.Type == FileEntry {
			files++
		}
		return nil
	})
	require.NoError(t, err, "per-entry errors never unwind the traversal")
	assert.Len(t, denied, 1)
	assert.Equal(t, 3, files, "siblings of the unreadable dir still visit")
}

func TestWalkSkipDirPrunes(t *testing.T) {
	root := buildTree(t)
	files := 0
	err := Walk(context.Background(), root, WalkOptions{}, func(ev Event) error {
		if ev.Type == EnterDir && ev.Entry.Name == "a" {
			return SkipDir
		}
		if ev.Type == FileEntry {
			files++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, files, "only three.txt remains once a/ is pruned")
}

func TestWalkSkipNamesPruneSilently(t *testing.T) {
	root := buildTree(t)

	var files []string
	diags := 0
	err := Walk(context.Background(), root, WalkOptions{
		SkipNames: map[string]struct{}{"b": {}},
	}, func(ev Event) error {
		if ev.Type == FileEntry {
			files = append(files, ev.Rel)
		}
		if ev.Type == Diagnostic {
			diags++
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join("a", "one.txt"), "three.txt"}, files)
	assert.Zero(t, diags, "skipped names do not produce diagnostics")
}

func requireSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation not reliable on this platform")
	}
}

func canChmod() bool {
	return runtime.GOOS != "windows" && os.Geteuid() != 0
}

func requireChmod(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("chmod-based permission denial not supported on this platform")
	}
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks do not apply")
	}
}
