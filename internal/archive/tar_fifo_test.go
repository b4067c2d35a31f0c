//go:build unix

package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/duopane/duopane/internal/fsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTarSkipsFifo(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "proj")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, syscall.Mkfifo(filepath.Join(src, "pipe"), 0o644))

	var buf bytes.Buffer
	skipped, err := WriteTar(context.Background(), &buf, src, fsx.WalkOptions{})
	require.NoError(t, err, "a fifo must be skipped, never opened")
	require.Len(t, skipped, 1)
	assert.Equal(t, fsx.DiagIOFailure, skipped[0].Kind)
	assert.Contains(t, skipped[0].Path, "pipe")

	seen := map[string]int{}
	reader := tar.NewReader(&buf)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seen[header.Name]++
	}
	assert.Equal(t, map[string]int{
		"proj/":      1,
		"proj/a.txt": 1,
	}, seen)
}
