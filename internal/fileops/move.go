package fileops

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/duopane/duopane/internal/fsx"
)

func (ex *executor) runMove() {
	if len(ex.plan.Entries) == 0 {
		return
	}

	// Fast path: one rename moves the whole tree when nothing stands at the
	// destination. A successful rename accounts for the full planned byte
	// total, so moved-byte reporting matches the planning estimate whichever
	// path ran.
	root := ex.plan.Entries[0]
	if root.Rel == "." && root.Disposition == DispApply {
		err := os.Rename(ex.plan.SrcRoot, ex.plan.DstRoot)
		if err == nil {
			ex.result.Done = ex.plan.TotalEntries
			ex.result.BytesDone = ex.plan.TotalBytes
			ex.publishEntryDone(PhaseMoving, root)
			return
		}
		if !isCrossDevice(err) {
			ex.abort(fmt.Errorf("rename %s: %w", ex.plan.SrcRoot, err))
			return
		}
		// Cross-device: fall through to copy-then-delete per entry.
	}

	ex.applyCopyPlan(PhaseMoving, func(entry PlanEntry) error {
		if err := os.Remove(entry.Src); err != nil {
			return fmt.Errorf("remove source after copy: %w", err)
		}
		return nil
	})
	if ex.aborted() || ex.ctx.Err() != nil {
		return
	}

	// Source directories empty out once their contents moved; remove them
	// children-first. Failures (e.g. an undeleted child after a recorded
	// error) are recorded, not fatal.
	for i := len(ex.plan.Entries) - 1; i >= 0; i-- {
		entry := ex.plan.Entries[i]
		if entry.Kind != fsx.KindDir || entry.Disposition == DispSkip {
			continue
		}
		if err := os.Remove(entry.Src); err != nil {
			ex.record(entry.Src, fmt.Errorf("remove source directory: %w", err))
		}
	}
}

// isCrossDevice reports whether a rename failed specifically because source
// and destination live on different volumes.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		err = linkErr.Err
	}
	return errors.Is(err, syscall.EXDEV)
}
