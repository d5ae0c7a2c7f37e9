package mailbox

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/forward-unwrap/internal/ports"
)

// FileSource yields a single message read from a file or stdin
type FileSource struct {
	name string
	r    io.Reader
	file *os.File
}

// NewFileSource opens a single raw message file
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &FileSource{name: path, r: f, file: f}, nil
}

// NewReaderSource wraps a reader such as os.Stdin
func NewReaderSource(name string, r io.Reader) *FileSource {
	return &FileSource{name: name, r: r}
}

// Each reads the whole input and calls fn once
func (s *FileSource) Each(ctx context.Context, fn ports.MessageFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := io.ReadAll(s.r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.name, err)
	}
	return fn(s.name, raw)
}

// Close closes the underlying file, if one was opened
func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
