// Package mailbox reads raw messages from files, mbox archives and IMAP
// servers for batch extraction.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/emersion/go-mbox"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/ports"
)

// MboxSource iterates the messages of an mbox archive
type MboxSource struct {
	name   string
	r      io.Reader
	closer io.Closer
	logger *zap.Logger
}

// NewMboxSource opens an mbox file
func NewMboxSource(path string, logger *zap.Logger) (*MboxSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox %s: %w", path, err)
	}
	return &MboxSource{name: path, r: f, closer: f, logger: logger}, nil
}

// NewMboxReader reads an mbox stream the caller owns
func NewMboxReader(name string, r io.Reader, logger *zap.Logger) *MboxSource {
	return &MboxSource{name: name, r: r, logger: logger}
}

// Each calls fn with every message in file order
func (s *MboxSource) Each(ctx context.Context, fn ports.MessageFunc) error {
	reader := mbox.NewReader(s.r)
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read message %d of %s: %w", i, s.name, err)
		}

		raw, err := io.ReadAll(msg)
		if err != nil {
			return fmt.Errorf("failed to read message %d of %s: %w", i, s.name, err)
		}
		if len(raw) == 0 {
			s.logger.Debug("Skipping empty mbox entry", zap.Int("index", i))
			continue
		}

		if err := fn(fmt.Sprintf("%s#%d", s.name, i), raw); err != nil {
			return err
		}
	}
}

// Close closes the mbox file
func (s *MboxSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
