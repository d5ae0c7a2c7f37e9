package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/adapters/filter"
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/di"
	"github.com/mikey/forward-unwrap/internal/factory"
	"github.com/mikey/forward-unwrap/internal/ports"
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	logger *zap.Logger,
	cliFilter *filter.CliFilter,
	source ports.MessageSource,
	reviewer core.ChainReviewer,
	cache factory.Cache,
) error {
	defer logger.Sync()
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("Failed to close message source", zap.Error(err))
		}
		if closer, ok := reviewer.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close reviewer", zap.Error(err))
			}
		}
		if cache != nil {
			cache.Stop()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	count, err := cliFilter.Run(ctx, source)
	logger.Debug("Finished", zap.Int("messages", count))
	return err
}
