package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSinkWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	sink, err := NewFileSink(path, 0)
	require.NoError(t, err)
	defer sink.Close()

	sink.Printf("walk enter %s", "/tmp/a")
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "walk enter /tmp/a")
}

func TestFileSinkRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	sink, err := NewFileSink(path, 256)
	require.NoError(t, err)
	defer sink.Close()

	line := strings.Repeat("x", 64)
	for i := 0; i < 20; i++ {
		sink.Printf("%s", line)
	}

	old, err := os.Stat(path + ".old")
	require.NoError(t, err, "rotation should have produced a .old file")
	require.Greater(t, old.Size(), int64(0))

	current, err := os.Stat(path)
	require.NoError(t, err)
	require.Less(t, current.Size(), old.Size()+256)
}

func TestNopSink(t *testing.T) {
	var sink Sink = Nop{}
	sink.Printf("ignored %d", 1)
}
