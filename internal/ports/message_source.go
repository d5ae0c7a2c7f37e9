package ports

import (
	"context"
)

// MessageFunc receives one raw message and an identifier for logging
type MessageFunc func(id string, raw []byte) error

// MessageSource yields raw messages from a mailbox
type MessageSource interface {
	// Each calls fn for every message until the source is exhausted,
	// ctx is cancelled or fn returns an error.
	Each(ctx context.Context, fn MessageFunc) error

	// Close releases the underlying file or connection
	Close() error
}
