// Package archive builds tar streams from the traversal engine's entry
// stream. Because the entries come from fsx.Walk, archive creation inherits
// its cycle and depth protection: a looping symlink or an over-deep branch
// is skipped and reported, never encoded forever.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/duopane/duopane/internal/fsx"
)

// WriteTar archives the tree rooted at root into w. Per-entry failures
// (cycles, depth overruns, unreadable directories or files, unsupported file
// types) are returned as skipped entries rather than failing the archive; an
// error is returned only for an unreadable root, a write failure on w, or
// cancellation.
func WriteTar(ctx context.Context, w io.Writer, root string, opts fsx.WalkOptions) ([]fsx.PathError, error) {
	tw := tar.NewWriter(w)
	var skipped []fsx.PathError

	base := filepath.Base(root)

	err := fsx.Walk(ctx, root, opts, func(ev fsx.Event) error {
		switch ev.Type {
		case fsx.Diagnostic:
			if ev.Diag == fsx.DiagCancelled {
				return nil
			}
			skipped = append(skipped, fsx.PathError{Path: ev.Path, Kind: ev.Diag, Err: ev.Err})
			return nil
		case fsx.LeaveDir:
			return nil
		}

		name := ev.Rel
		if name == "." {
			name = base
		} else {
			name = filepath.ToSlash(filepath.Join(base, ev.Rel))
		}

		if ev.Entry.Kind == fsx.KindFile {
			return writeFile(ctx, tw, ev.Entry, name, &skipped)
		}

		header := headerFor(ev.Entry, name)
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return skipped, err
	}

	if err := tw.Close(); err != nil {
		return skipped, fmt.Errorf("finish tar stream: %w", err)
	}
	return skipped, nil
}

func headerFor(entry fsx.Entry, name string) *tar.Header {
	if entry.Kind == fsx.KindSymlink {
		return &tar.Header{
			Typeflag: tar.TypeSymlink,
			Name:     name,
			Linkname: entry.LinkTarget,
			Mode:     int64(entry.Mode.Perm()),
			ModTime:  entry.ModTime,
		}
	}
	return &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     name + "/",
		Mode:     int64(entry.Mode.Perm()),
		ModTime:  entry.ModTime,
	}
}

// writeFile encodes one regular file. The source is opened and stat-confirmed
// before any header is emitted, so a failure here skips the entry cleanly
// instead of leaving a header whose body never arrives. Only failures on the
// output stream abort the archive.
func writeFile(ctx context.Context, tw *tar.Writer, entry fsx.Entry, name string, skipped *[]fsx.PathError) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.Mode&fs.ModeType != 0 {
		*skipped = append(*skipped, fsx.PathError{
			Path: entry.Path,
			Kind: fsx.DiagIOFailure,
			Err:  fmt.Errorf("unsupported file type %v", entry.Mode.Type()),
		})
		return nil
	}

	file, err := os.Open(entry.Path)
	if err != nil {
		*skipped = append(*skipped, fsx.PathError{Path: entry.Path, Kind: diagKind(err), Err: err})
		return nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		*skipped = append(*skipped, fsx.PathError{Path: entry.Path, Kind: diagKind(err), Err: err})
		return nil
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header %s: %w", name, err)
	}
	if _, err := io.CopyN(tw, file, header.Size); err != nil {
		return fmt.Errorf("archive %s: %w", entry.Path, err)
	}
	return nil
}

func diagKind(err error) fsx.DiagKind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsx.DiagNotFound
	case errors.Is(err, fs.ErrPermission):
		return fsx.DiagPermissionDenied
	default:
		return fsx.DiagIOFailure
	}
}
