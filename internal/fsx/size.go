package fsx

import "context"

// PathError is one recorded diagnostic: where and what kind.
type PathError struct {
	Path string
	Kind DiagKind
	Err  error
}

// DirStats is the aggregate a size calculation produces. Errors holds every
// diagnostic in visit order; Partial marks a cancelled run whose counts cover
// only the entries visited before the cancel point.
type DirStats struct {
	TotalSize int64
	FileCount int
	DirCount  int
	Errors    []PathError
	Partial   bool
}

// CalcDirStats drives one traversal over root and accumulates size and
// entry counts. It never fails: unreadable branches, cycles, and depth
// overruns are recorded in Errors and the rest of the tree still counts.
// ProgressFunc, if non-nil, is invoked per visited entry with the running
// aggregate and may be used for live display.
func CalcDirStats(ctx context.Context, root string, opts WalkOptions, onEntry func(path string, stats DirStats)) DirStats {
	var stats DirStats

	err := Walk(ctx, root, opts, func(ev Event) error {
		switch ev.Type {
		case EnterDir:
			stats.DirCount++
		case FileEntry:
			stats.FileCount++
			stats.TotalSize += ev.Entry.Size
		case Diagnostic:
			if ev.Diag == DiagCancelled {
				stats.Partial = true
				return nil
			}
			stats.Errors = append(stats.Errors, PathError{Path: ev.Path, Kind: ev.Diag, Err: ev.Err})
		case LeaveDir:
			return nil
		}
		if onEntry != nil {
			onEntry(ev.Path, stats)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		stats.Partial = true
	}

	return stats
}
