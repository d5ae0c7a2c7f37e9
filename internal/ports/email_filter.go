package ports

import (
	"context"

	"github.com/mikey/forward-unwrap/internal/core"
)

// EmailFilter defines the interface for front ends that feed raw mail to the service
type EmailFilter interface {
	// ProcessMessage unwraps one raw message
	ProcessMessage(ctx context.Context, raw []byte) (*core.Result, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
