package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/duopane/duopane/internal/fsx"
)

// copyChunkSize is the buffered-I/O unit; progress advances per chunk.
const copyChunkSize = 128 * 1024

// sensitiveLinkPrefixes are absolute symlink targets never recreated at the
// destination.
var sensitiveLinkPrefixes = []string{"/etc", "/sys", "/proc", "/boot", "/root", "/var/log"}

func sensitiveLinkTarget(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	for _, prefix := range sensitiveLinkPrefixes {
		if target == prefix || strings.HasPrefix(target, prefix+"/") {
			return true
		}
	}
	return false
}

func (ex *executor) runCopy() {
	ex.applyCopyPlan(PhaseCopying, nil)
}

// applyCopyPlan walks the plan in order, creating directories, copying files
// chunk by chunk, and recreating symlinks. afterEntry, when non-nil, runs
// after each successfully applied entry (the move fallback deletes sources
// there).
func (ex *executor) applyCopyPlan(phase Phase, afterEntry func(entry PlanEntry) error) {
	for _, entry := range ex.plan.Entries {
		if ex.ctx.Err() != nil {
			return
		}
		if entry.Disposition == DispSkip {
			ex.result.Skipped++
			continue
		}

		ex.tick(phase, entry.Src)

		if err := ex.applyCopyEntry(entry); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if ex.fatalWrite(err) {
				ex.abort(err)
				return
			}
			ex.record(entry.Src, err)
			continue
		}

		ex.result.Done++
		if afterEntry != nil && entry.Kind != fsx.KindDir {
			if err := afterEntry(entry); err != nil {
				ex.record(entry.Src, err)
			}
		}
		ex.publishEntryDone(phase, entry)
	}
}

func (ex *executor) publishEntryDone(phase Phase, entry PlanEntry) {
	ex.publish(Progress{
		Phase:        phase,
		CurrentPath:  entry.Src,
		BytesDone:    ex.result.BytesDone,
		BytesTotal:   ex.plan.TotalBytes,
		EntriesDone:  ex.result.Done,
		EntriesTotal: ex.plan.TotalEntries,
	}, true)
}

func (ex *executor) applyCopyEntry(entry PlanEntry) error {
	switch entry.Kind {
	case fsx.KindDir:
		if err := os.MkdirAll(entry.Dst, entry.Mode.Perm()); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		return nil
	case fsx.KindSymlink:
		if sensitiveLinkTarget(entry.LinkTarget) {
			return fmt.Errorf("symlink targets sensitive path %s: %w", entry.LinkTarget, fs.ErrPermission)
		}
		if entry.Disposition == DispOverwrite {
			_ = os.Remove(entry.Dst)
		}
		if err := os.Symlink(entry.LinkTarget, entry.Dst); err != nil {
			return fmt.Errorf("recreate symlink: %w", err)
		}
		return nil
	default:
		if entry.Disposition == DispOverwrite {
			if existing, err := os.Lstat(entry.Dst); err == nil && !existing.Mode().IsRegular() {
				_ = os.Remove(entry.Dst)
			}
		}
		return ex.copyFile(entry)
	}
}

// copyFile copies one regular file with buffered chunks, advancing byte
// progress per chunk. The destination only counts once fully written and
// flushed; on any failure or cancellation the partial file is removed, so no
// truncated file is ever observable as a completed copy.
func (ex *executor) copyFile(entry PlanEntry) error {
	in, err := os.Open(entry.Src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(entry.Dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, entry.Mode.Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	written, err := ex.copyChunks(in, out, entry)
	if err != nil {
		out.Close()
		os.Remove(entry.Dst)
		ex.result.BytesDone -= written
		return err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(entry.Dst)
		ex.result.BytesDone -= written
		return fmt.Errorf("flush destination: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(entry.Dst)
		ex.result.BytesDone -= written
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

func (ex *executor) copyChunks(in io.Reader, out io.Writer, entry PlanEntry) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		if err := ex.ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write destination: %w", werr)
			}
			written += int64(n)
			ex.result.BytesDone += int64(n)
			ex.tick(PhaseCopying, entry.Src)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read source: %w", rerr)
		}
	}
}
