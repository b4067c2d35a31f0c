package fsx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcDirStatsTotals(t *testing.T) {
	root := buildTree(t)

	stats := CalcDirStats(context.Background(), root, WalkOptions{}, nil)

	assert.Equal(t, int64(len("one")+len("twotwo")+len("three!!!")), stats.TotalSize)
	assert.Equal(t, 3, stats.FileCount)
	assert.Equal(t, 3, stats.DirCount, "root, a, a/b")
	assert.Empty(t, stats.Errors)
	assert.False(t, stats.Partial)
}

func TestCalcDirStatsRecordsErrors(t *testing.T) {
	requireChmod(t)
	root := buildTree(t)
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	stats := CalcDirStats(context.Background(), root, WalkOptions{}, nil)

	require.Len(t, stats.Errors, 1)
	assert.Equal(t, DiagPermissionDenied, stats.Errors[0].Kind)
	assert.Equal(t, 3, stats.FileCount, "readable entries still counted")
	assert.False(t, stats.Partial)
}

func TestCalcDirStatsPartialOnCancel(t *testing.T) {
	root := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	stats := CalcDirStats(ctx, root, WalkOptions{}, func(string, DirStats) {
		calls++
		if calls == 2 {
			cancel()
		}
	})

	assert.True(t, stats.Partial, "cancelled calculation must be tagged partial")
	assert.Less(t, stats.FileCount+stats.DirCount, 6, "aggregate stops at the cancel point")
}

func TestCalcDirStatsProgressCallback(t *testing.T) {
	root := buildTree(t)

	var last DirStats
	calls := 0
	final := CalcDirStats(context.Background(), root, WalkOptions{}, func(_ string, s DirStats) {
		calls++
		last = s
	})

	assert.Greater(t, calls, 0)
	assert.Equal(t, final.TotalSize, last.TotalSize)
}
