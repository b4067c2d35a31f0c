package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/duopane/duopane/internal/logging"
)

// Op is the kind of bulk operation a plan describes.
type Op int

const (
	OpCopy Op = iota
	OpMove
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCopy:
		return "copy"
	case OpMove:
		return "move"
	default:
		return "delete"
	}
}

// Disposition is the planned handling of one entry, fixed before execution.
type Disposition int

const (
	DispApply     Disposition = iota // create/copy/remove normally
	DispOverwrite                    // destination exists, replace it
	DispSkip                         // user chose to leave this entry alone
)

// PlanEntry is one (source, destination, disposition) row of a plan.
type PlanEntry struct {
	Src         string // absolute source path
	Rel         string // path relative to the source root, "." for the root
	Dst         string // absolute destination path, empty for delete
	Kind        fsx.Kind
	Size        int64
	Mode        fs.FileMode
	LinkTarget  string
	Disposition Disposition
}

// OperationPlan is the ordered, read-only product of the planning pass.
// Entries are in traversal (pre-)order; delete execution walks it backwards
// for post-order. Totals are the progress denominators.
type OperationPlan struct {
	Op           Op
	SrcRoot      string
	DstRoot      string // destination of the root entry, empty for delete
	Entries      []PlanEntry
	TotalBytes   int64
	TotalEntries int
	Errors       []fsx.PathError // diagnostics hit while planning
}

// Decision is a caller's answer to a destination collision.
type Decision int

const (
	DecideOverwrite Decision = iota
	DecideSkip
	DecideRename
	DecideAbort
)

// Resolution carries a Decision; NewName holds the replacement leaf name for
// DecideRename.
type Resolution struct {
	Decision Decision
	NewName  string
}

// CollisionResolver is invoked synchronously during planning for every
// planned destination that already exists. Execution does not begin until
// every collision is resolved.
type CollisionResolver func(src, dst string) Resolution

// ErrAborted is returned when the caller resolves a collision with
// DecideAbort or when planning cannot proceed.
var ErrAborted = errors.New("operation aborted")

// PlanOptions configures the planning pass.
type PlanOptions struct {
	Resolver CollisionResolver
	Walk     fsx.WalkOptions
	Debug    logging.Sink
}

func (o PlanOptions) debug() logging.Sink {
	if o.Debug == nil {
		return logging.Nop{}
	}
	return o.Debug
}

// protectedPaths are never deleted, regardless of what the caller asks.
var protectedPaths = map[string]struct{}{
	"/": {}, "/bin": {}, "/boot": {}, "/dev": {}, "/etc": {}, "/home": {},
	"/lib": {}, "/lib64": {}, "/opt": {}, "/proc": {}, "/root": {},
	"/sbin": {}, "/sys": {}, "/tmp": {}, "/usr": {}, "/var": {},
}

func isProtectedPath(path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = filepath.Clean(path)
	}
	_, ok := protectedPaths[resolved]
	return ok
}

// Plan walks the source and builds the operation plan. No mutation happens
// here; an unreadable source root or an aborting collision decision returns
// an error with nothing changed. publish may be nil.
func Plan(ctx context.Context, op Op, src, dstDir string, opts PlanOptions, publish func(Progress, bool)) (*OperationPlan, error) {
	if publish == nil {
		publish = func(Progress, bool) {}
	}
	debug := opts.debug()

	srcInfo, err := os.Lstat(src)
	if err != nil {
		return nil, fmt.Errorf("plan %s %s: %w", op, src, err)
	}

	plan := &OperationPlan{Op: op, SrcRoot: src}

	if op == OpDelete {
		if isProtectedPath(src) {
			return nil, fmt.Errorf("plan delete %s: %w", src, fs.ErrPermission)
		}
	} else {
		dstRoot, err := resolveDestRoot(src, dstDir, opts.Resolver)
		if err != nil {
			return nil, err
		}
		plan.DstRoot = dstRoot
	}

	debug.Printf("plan %s: %s -> %s", op, src, plan.DstRoot)

	// Root skipped entirely: a valid, empty plan.
	if plan.Op != OpDelete && plan.DstRoot == "" {
		return plan, nil
	}

	// Non-directory roots (including symlinks, which are opaque here) plan as
	// a single entry.
	if !srcInfo.IsDir() {
		entry := PlanEntry{
			Src:  src,
			Rel:  ".",
			Kind: kindOf(srcInfo),
			Size: srcInfo.Size(),
			Mode: srcInfo.Mode(),
		}
		if entry.Kind == fsx.KindSymlink {
			entry.Size = 0
			if target, err := os.Readlink(src); err == nil {
				entry.LinkTarget = target
			}
		}
		if plan.Op != OpDelete && entry.Kind == fsx.KindFile && entry.Mode&fs.ModeType != 0 {
			return nil, fmt.Errorf("plan %s %s: unsupported file type %v", op, src, entry.Mode.Type())
		}
		if plan.Op != OpDelete {
			entry.Dst = plan.DstRoot
			disp, err := resolveEntryCollision(&entry, opts.Resolver)
			if err != nil {
				return nil, err
			}
			entry.Disposition = disp
		}
		if entry.Disposition != DispSkip {
			plan.Entries = append(plan.Entries, entry)
			if entry.Kind == fsx.KindFile {
				plan.TotalBytes += entry.Size
			}
		}
		plan.TotalEntries = len(plan.Entries)
		return plan, nil
	}

	walkErr := fsx.Walk(ctx, src, opts.Walk, func(ev fsx.Event) error {
		switch ev.Type {
		case fsx.Diagnostic:
			if ev.Diag == fsx.DiagCancelled {
				return nil
			}
			plan.Errors = append(plan.Errors, fsx.PathError{Path: ev.Path, Kind: ev.Diag, Err: ev.Err})
			return nil
		case fsx.LeaveDir:
			return nil
		}

		entry := PlanEntry{
			Src:        ev.Path,
			Rel:        ev.Rel,
			Kind:       ev.Entry.Kind,
			Size:       ev.Entry.Size,
			Mode:       ev.Entry.Mode,
			LinkTarget: ev.Entry.LinkTarget,
		}
		if entry.Kind != fsx.KindFile {
			entry.Size = 0
		}

		// FIFOs, sockets, and devices cannot be content-copied; opening one
		// can block forever. Delete handles them fine, copy and move record
		// them as planning errors and leave them out of the plan.
		if plan.Op != OpDelete && entry.Kind == fsx.KindFile && entry.Mode&fs.ModeType != 0 {
			plan.Errors = append(plan.Errors, fsx.PathError{
				Path: ev.Path,
				Kind: fsx.DiagIOFailure,
				Err:  fmt.Errorf("unsupported file type %v", entry.Mode.Type()),
			})
			return nil
		}

		if plan.Op != OpDelete {
			entry.Dst = destFor(plan.DstRoot, ev.Rel)
			disp, err := resolveEntryCollision(&entry, opts.Resolver)
			if err != nil {
				return err
			}
			entry.Disposition = disp
			if disp == DispSkip && entry.Kind == fsx.KindDir {
				plan.Entries = append(plan.Entries, entry)
				return fsx.SkipDir
			}
		}

		if entry.Disposition != DispSkip {
			plan.TotalBytes += entry.Size
		}
		plan.Entries = append(plan.Entries, entry)

		publish(Progress{
			Phase:        PhasePlanning,
			CurrentPath:  ev.Path,
			EntriesTotal: len(plan.Entries),
			BytesTotal:   plan.TotalBytes,
		}, false)
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, walkErr
	}

	plan.TotalEntries = 0
	for _, entry := range plan.Entries {
		if entry.Disposition != DispSkip {
			plan.TotalEntries++
		}
	}
	return plan, nil
}

// resolveDestRoot decides where the source root lands inside dstDir,
// resolving a root-level collision with the caller before anything else
// happens. Returns "" when the caller skipped the whole operation.
func resolveDestRoot(src, dstDir string, resolver CollisionResolver) (string, error) {
	leaf := filepath.Base(src)
	for {
		dst := filepath.Join(dstDir, leaf)
		if fsx.SameObject(src, dst) {
			return "", fmt.Errorf("%s: source and destination are the same", src)
		}
		if _, err := os.Lstat(dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return dst, nil
			}
			return "", fmt.Errorf("probe destination %s: %w", dst, err)
		}
		if resolver == nil {
			return "", fmt.Errorf("destination %s already exists: %w", dst, ErrAborted)
		}
		res := resolver(src, dst)
		switch res.Decision {
		case DecideOverwrite:
			return dst, nil
		case DecideSkip:
			return "", nil
		case DecideRename:
			if err := ValidateName(res.NewName); err != nil {
				return "", fmt.Errorf("rename resolution: %w", err)
			}
			leaf = res.NewName
			// Loop: the renamed destination is probed again.
		default:
			return "", ErrAborted
		}
	}
}

// resolveEntryCollision probes one planned destination and asks the resolver
// if something is already there. Directory-over-directory lands as overwrite
// (a merge) without asking.
func resolveEntryCollision(entry *PlanEntry, resolver CollisionResolver) (Disposition, error) {
	for {
		existing, err := os.Lstat(entry.Dst)
		if err != nil {
			return DispApply, nil
		}
		if entry.Kind == fsx.KindDir && existing.IsDir() {
			return DispOverwrite, nil
		}
		if resolver == nil {
			return DispSkip, fmt.Errorf("destination %s already exists: %w", entry.Dst, ErrAborted)
		}
		res := resolver(entry.Src, entry.Dst)
		switch res.Decision {
		case DecideOverwrite:
			return DispOverwrite, nil
		case DecideSkip:
			return DispSkip, nil
		case DecideRename:
			if err := ValidateName(res.NewName); err != nil {
				return DispSkip, fmt.Errorf("rename resolution: %w", err)
			}
			entry.Dst = filepath.Join(filepath.Dir(entry.Dst), res.NewName)
			// Loop: re-probe the renamed destination.
		default:
			return DispSkip, ErrAborted
		}
	}
}

func destFor(dstRoot, rel string) string {
	if rel == "." {
		return dstRoot
	}
	return filepath.Join(dstRoot, rel)
}

func kindOf(info fs.FileInfo) fsx.Kind {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		return fsx.KindSymlink
	case info.IsDir():
		return fsx.KindDir
	default:
		return fsx.KindFile
	}
}
