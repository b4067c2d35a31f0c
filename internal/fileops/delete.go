package fileops

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/duopane/duopane/internal/fsx"
)

func isNotEmpty(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST)
}

// runDelete removes plan entries in reverse (post-)order: children before
// parents, so an interruption at any point leaves a forest of still-valid
// subtrees, never an orphaned child.
func (ex *executor) runDelete() {
	for i := len(ex.plan.Entries) - 1; i >= 0; i-- {
		if ex.ctx.Err() != nil {
			return
		}
		entry := ex.plan.Entries[i]

		ex.tick(PhaseDeleting, entry.Src)

		if isProtectedPath(entry.Src) {
			ex.record(entry.Src, fmt.Errorf("refusing to delete protected path %s", entry.Src))
			continue
		}

		// os.Remove deletes files and symlinks without following them, and
		// directories only once empty. A directory that stays non-empty
		// because a failure underneath was already recorded is a consequence
		// of that failure, not a second one.
		if err := os.Remove(entry.Src); err != nil {
			if entry.Kind == fsx.KindDir && isNotEmpty(err) && len(ex.result.Errors) > 0 {
				continue
			}
			ex.record(entry.Src, err)
			continue
		}

		ex.result.Done++
		ex.result.BytesDone += entry.Size
		ex.publishEntryDone(PhaseDeleting, entry)
	}
}
