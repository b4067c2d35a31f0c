// Package logging provides the debug sink the engine writes diagnostics to.
// The sink is injected by the caller; nothing in this module logs unless a
// sink was configured.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Sink receives debug lines from the traversal and operation engine.
// Implementations must be safe for concurrent use.
type Sink interface {
	Printf(format string, args ...any)
}

// Nop discards everything. It is the default when no debug log is configured.
type Nop struct{}

func (Nop) Printf(string, ...any) {}

// DefaultMaxBytes bounds a FileSink before it rotates.
const DefaultMaxBytes = 4 << 20

// FileSink appends timestamped lines to a single file. When the file grows
// past the configured bound it is rotated once to "<path>.old" and reopened,
// so disk usage stays within roughly twice the bound.
type FileSink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	size     int64
	maxBytes int64
}

// NewFileSink opens (or creates) the debug log at path. maxBytes <= 0 uses
// DefaultMaxBytes.
func NewFileSink(path string, maxBytes int64) (*FileSink, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat debug log %s: %w", path, err)
	}
	return &FileSink{
		path:     path,
		file:     file,
		size:     info.Size(),
		maxBytes: maxBytes,
	}, nil
}

func (s *FileSink) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
	n, err := s.file.WriteString(line)
	if err != nil {
		return
	}
	s.size += int64(n)
	if s.size > s.maxBytes {
		s.rotate()
	}
}

// rotate renames the current file to "<path>.old" and reopens. Called with
// the mutex held.
func (s *FileSink) rotate() {
	s.file.Close()
	s.file = nil
	if err := os.Rename(s.path, s.path+".old"); err != nil {
		return
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	s.file = file
	s.size = 0
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
