// Package fsx implements the directory traversal engine shared by the size
// calculator, search, bulk file operations, and archive writer. The walker is
// cycle-safe (ancestry set of filesystem identities), depth-bounded, and
// error-tolerant: per-entry failures become Diagnostic events and the walk
// keeps going.
package fsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/duopane/duopane/internal/logging"
)

// DefaultMaxDepth bounds recursion when WalkOptions.MaxDepth is zero. The
// depth bound holds independently of cycle detection: on filesystems where
// identities are unreliable it is the last line of defense.
const DefaultMaxDepth = 256

// Kind classifies an entry without following symlinks.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// Entry describes one filesystem object as seen by the walker. Metadata comes
// from lstat, so for symlinks it describes the link itself.
type Entry struct {
	Name       string
	Path       string // full path, root-joined
	Rel        string // path relative to the walk root, "." for the root
	Kind       Kind
	Size       int64
	Mode       fs.FileMode
	ModTime    time.Time
	LinkTarget string // readlink result, symlinks only
	ID         Identity
}

// TargetInfo stats through the link for symlink entries, exposing the
// target's metadata without the walker having descended into it.
func (e Entry) TargetInfo() (fs.FileInfo, error) {
	return os.Stat(e.Path)
}

// EventType discriminates walker events.
type EventType int

const (
	EnterDir EventType = iota
	FileEntry
	LeaveDir
	Diagnostic
)

// DiagKind classifies a Diagnostic event.
type DiagKind int

const (
	DiagNotFound DiagKind = iota
	DiagPermissionDenied
	DiagCyclicSymlink
	DiagDepthExceeded
	DiagCancelled
	DiagIOFailure
)

func (k DiagKind) String() string {
	switch k {
	case DiagNotFound:
		return "not found"
	case DiagPermissionDenied:
		return "permission denied"
	case DiagCyclicSymlink:
		return "cyclic symlink"
	case DiagDepthExceeded:
		return "depth exceeded"
	case DiagCancelled:
		return "cancelled"
	default:
		return "i/o failure"
	}
}

// Event is one step of a traversal. Entry is populated for EnterDir and
// FileEntry; Diag and Err for Diagnostic events. Path is always set.
type Event struct {
	Type  EventType
	Path  string
	Rel   string
	Entry Entry
	Diag  DiagKind
	Err   error
}

// VisitFunc consumes walker events. Returning SkipDir from an EnterDir event
// prunes that directory (its LeaveDir still fires); returning SkipDir from
// any other event skips the remainder of the containing directory. Returning
// SkipAll stops the walk. Any other non-nil error also stops the walk and is
// returned from Walk.
type VisitFunc func(Event) error

// SkipDir and SkipAll mirror fs.SkipDir / fs.SkipAll so call sites read like
// fs.WalkDir consumers.
var (
	SkipDir = fs.SkipDir
	SkipAll = fs.SkipAll
)

// WalkOptions configures one traversal.
type WalkOptions struct {
	// FollowSymlinks descends through symlinks that resolve to directories.
	// Off by default: symlinks are opaque leaves.
	FollowSymlinks bool
	// MaxDepth bounds descent below the root; 0 means DefaultMaxDepth.
	MaxDepth int
	// SkipNames prunes directories whose base name is in the set. Pruning is
	// silent: no Diagnostic event fires for a skipped directory.
	SkipNames map[string]struct{}
	// Debug receives trace lines; nil means no logging.
	Debug logging.Sink
}

func (o WalkOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o WalkOptions) debug() logging.Sink {
	if o.Debug == nil {
		return logging.Nop{}
	}
	return o.Debug
}

// classifyDiag maps an I/O error to a diagnostic kind.
func classifyDiag(err error) DiagKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return DiagNotFound
	case errors.Is(err, fs.ErrPermission):
		return DiagPermissionDenied
	default:
		return DiagIOFailure
	}
}

type walker struct {
	ctx   context.Context
	opts  WalkOptions
	fn    VisitFunc
	anc   *ancestry
	debug logging.Sink
}

// Walk traverses the tree rooted at root, invoking fn for every event. A
// stat failure on the root itself is returned as an error (nothing was
// visited); every failure below the root is reported as a Diagnostic event
// and the walk continues. Cancellation yields a final Diagnostic(Cancelled)
// event and Walk returns ctx.Err().
func Walk(ctx context.Context, root string, opts WalkOptions, fn VisitFunc) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	w := &walker{
		ctx:   ctx,
		opts:  opts,
		fn:    fn,
		anc:   newAncestry(),
		debug: opts.debug(),
	}

	entry := w.makeEntry(root, ".", info)

	if entry.Kind != KindDir {
		if entry.Kind == KindSymlink && opts.FollowSymlinks {
			return w.walkSymlink(entry, 0)
		}
		err := fn(Event{Type: FileEntry, Path: root, Rel: ".", Entry: entry})
		if err == SkipDir || err == SkipAll {
			return nil
		}
		return err
	}

	entry.ID = identityAt(root)
	err = w.walkDir(entry, 0)
	if err == SkipAll || err == SkipDir {
		return nil
	}
	return err
}

// makeEntry builds an Entry from lstat metadata.
func (w *walker) makeEntry(path, rel string, info fs.FileInfo) Entry {
	entry := Entry{
		Name:    info.Name(),
		Path:    path,
		Rel:     rel,
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		ID:      identityOf(info),
	}
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		entry.Kind = KindSymlink
		if target, err := os.Readlink(path); err == nil {
			entry.LinkTarget = target
		}
	case info.IsDir():
		entry.Kind = KindDir
	default:
		entry.Kind = KindFile
	}
	return entry
}

// cancelled emits the final Cancelled diagnostic and returns ctx.Err().
func (w *walker) cancelled(path, rel string) error {
	w.debug.Printf("walk cancelled at %s", path)
	ev := Event{Type: Diagnostic, Path: path, Rel: rel, Diag: DiagCancelled, Err: w.ctx.Err()}
	if err := w.fn(ev); err != nil && err != SkipDir && err != SkipAll {
		return err
	}
	return w.ctx.Err()
}

// diag reports a non-fatal condition for path. The caller decides whether to
// continue; the returned error is nil unless the visitor pruned or stopped.
func (w *walker) diag(path, rel string, kind DiagKind, cause error) error {
	w.debug.Printf("walk diagnostic %s: %s", kind, path)
	return w.fn(Event{Type: Diagnostic, Path: path, Rel: rel, Diag: kind, Err: cause})
}

// walkDir descends into entry, which must be a directory whose identity is
// already resolved. depth is the directory's own depth below the root.
func (w *walker) walkDir(dir Entry, depth int) error {
	if w.ctx.Err() != nil {
		return w.cancelled(dir.Path, dir.Rel)
	}

	if !dir.ID.Valid() {
		dir.ID = identityAt(dir.Path)
	}
	if dir.ID.Valid() {
		if w.anc.contains(dir.ID) {
			return w.diag(dir.Path, dir.Rel, DiagCyclicSymlink, nil)
		}
		w.anc.push(dir.ID)
		defer w.anc.pop()
	}

	if err := w.fn(Event{Type: EnterDir, Path: dir.Path, Rel: dir.Rel, Entry: dir}); err != nil {
		if err == SkipDir {
			return w.fn(Event{Type: LeaveDir, Path: dir.Path, Rel: dir.Rel})
		}
		return err
	}

	if err := w.readEntries(dir, depth); err != nil {
		return err
	}

	return w.fn(Event{Type: LeaveDir, Path: dir.Path, Rel: dir.Rel})
}

// readEntries lists dir and visits each child. Listing order is whatever the
// underlying directory yields; callers needing sorted output sort their own
// materialized batch.
func (w *walker) readEntries(dir Entry, depth int) error {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		derr := w.diag(dir.Path, dir.Rel, classifyDiag(err), err)
		if derr == SkipDir {
			return nil
		}
		return derr
	}

	for _, dirent := range entries {
		if w.ctx.Err() != nil {
			return w.cancelled(dir.Path, dir.Rel)
		}

		childPath := filepath.Join(dir.Path, dirent.Name())
		childRel := joinRel(dir.Rel, dirent.Name())

		info, err := dirent.Info()
		if err != nil {
			if derr := w.diag(childPath, childRel, classifyDiag(err), err); derr != nil {
				if derr == SkipDir {
					return nil
				}
				return derr
			}
			continue
		}

		child := w.makeEntry(childPath, childRel, info)

		if child.Kind == KindDir {
			if _, skip := w.opts.SkipNames[child.Name]; skip {
				w.debug.Printf("walk skip %s", childPath)
				continue
			}
		}

		var verr error
		switch child.Kind {
		case KindDir:
			verr = w.descend(child, depth+1)
		case KindSymlink:
			if w.opts.FollowSymlinks {
				verr = w.walkSymlink(child, depth)
			} else {
				verr = w.fn(Event{Type: FileEntry, Path: childPath, Rel: childRel, Entry: child})
			}
		default:
			verr = w.fn(Event{Type: FileEntry, Path: childPath, Rel: childRel, Entry: child})
		}
		if verr != nil {
			if verr == SkipDir {
				return nil
			}
			return verr
		}
	}
	return nil
}

// descend enforces the depth bound and recurses into child at the given
// depth (the child's own depth below the root).
func (w *walker) descend(child Entry, depth int) error {
	if depth > w.opts.maxDepth() {
		return w.diag(child.Path, child.Rel, DiagDepthExceeded, nil)
	}
	return w.walkDir(child, depth)
}

// walkSymlink handles a symlink in follow mode: directory targets are
// descended (with the same identity check), everything else is a leaf
// reported with the link's own metadata.
func (w *walker) walkSymlink(link Entry, depth int) error {
	target, err := os.Stat(link.Path)
	if err != nil {
		// Broken link: still a leaf worth reporting, plus a diagnostic.
		if derr := w.diag(link.Path, link.Rel, classifyDiag(err), err); derr != nil {
			return derr
		}
		return w.fn(Event{Type: FileEntry, Path: link.Path, Rel: link.Rel, Entry: link})
	}

	if !target.IsDir() {
		return w.fn(Event{Type: FileEntry, Path: link.Path, Rel: link.Rel, Entry: link})
	}

	dir := link
	dir.Kind = KindDir
	dir.Size = target.Size()
	dir.Mode = target.Mode()
	dir.ModTime = target.ModTime()
	dir.ID = identityOf(target)
	return w.descend(dir, depth+1)
}

func joinRel(parent, name string) string {
	if parent == "." || parent == "" {
		return name
	}
	return parent + string(filepath.Separator) + name
}
