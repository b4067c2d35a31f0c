package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTarContainsEveryEntryOnce(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("beta"), 0o644))

	var buf bytes.Buffer
	skipped, err := WriteTar(context.Background(), &buf, src, fsx.WalkOptions{})
	require.NoError(t, err)
	assert.Empty(t, skipped)

	seen := map[string]int{}
	bodies := map[string]string{}
	reader := tar.NewReader(&buf)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen[header.Name]++
		if header.Typeflag == tar.TypeReg {
			body, err := io.ReadAll(reader)
			require.NoError(t, err)
			bodies[header.Name] = string(body)
		}
	}

	assert.Equal(t, map[string]int{
		"proj/":          1,
		"proj/a.txt":     1,
		"proj/sub/":      1,
		"proj/sub/b.txt": 1,
	}, seen)
	assert.Equal(t, "alpha", bodies["proj/a.txt"])
	assert.Equal(t, "beta", bodies["proj/sub/b.txt"])
}

func TestWriteTarSkipsCyclicBranch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation not reliable on this platform")
	}
	root := t.TempDir()
	src := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(src, filepath.Join(src, "loop")))

	done := make(chan struct{})
	var buf bytes.Buffer
	var skipped []fsx.PathError
	var err error
	go func() {
		skipped, err = WriteTar(context.Background(), &buf, src, fsx.WalkOptions{FollowSymlinks: true})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("archiving a cyclic tree did not terminate")
	}

	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, fsx.DiagCyclicSymlink, skipped[0].Kind)
}

func TestWriteTarOpaqueSymlinkEncodedAsLink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation not reliable on this platform")
	}
	root := t.TempDir()
	src := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "alias")))

	var buf bytes.Buffer
	_, err := WriteTar(context.Background(), &buf, src, fsx.WalkOptions{})
	require.NoError(t, err)

	reader := tar.NewReader(&buf)
	var linkname string
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Typeflag == tar.TypeSymlink {
			linkname = header.Linkname
		}
	}
	assert.Equal(t, "real.txt", linkname)
}

func TestWriteTarSkipsUnreadableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod-based permission denial not supported on this platform")
	}
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks do not apply")
	}
	root := t.TempDir()
	src := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "locked.txt"), []byte("secret"), 0o000))
	require.NoError(t, os.WriteFile(filepath.Join(src, "z.txt"), []byte("zeta"), 0o644))

	var buf bytes.Buffer
	skipped, err := WriteTar(context.Background(), &buf, src, fsx.WalkOptions{})
	require.NoError(t, err, "an unreadable file must not fail the archive")
	require.Len(t, skipped, 1)
	assert.Equal(t, fsx.DiagPermissionDenied, skipped[0].Kind)
	assert.Contains(t, skipped[0].Path, "locked.txt")

	seen := map[string]int{}
	bodies := map[string]string{}
	reader := tar.NewReader(&buf)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err, "the stream must stay well-formed past the skip")
		seen[header.Name]++
		if header.Typeflag == tar.TypeReg {
			body, err := io.ReadAll(reader)
			require.NoError(t, err)
			bodies[header.Name] = string(body)
		}
	}

	assert.Equal(t, map[string]int{
		"proj/":      1,
		"proj/a.txt": 1,
		"proj/z.txt": 1,
	}, seen, "no header may be emitted for the skipped file")
	assert.Equal(t, "alpha", bodies["proj/a.txt"])
	assert.Equal(t, "zeta", bodies["proj/z.txt"])
}

func TestWriteTarUnreadableRoot(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteTar(context.Background(), &buf, filepath.Join(t.TempDir(), "missing"), fsx.WalkOptions{})
	require.Error(t, err)
}
