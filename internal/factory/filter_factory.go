package factory

import (
	"io"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/adapters/filter"
	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ForwardService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.ForwardService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreatePostfixFilter creates the SMTP content filter
func (f *FilterFactory) CreatePostfixFilter() (*filter.PostfixFilter, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}
	opts, err := NewExtractorFactory(f.cfg, f.logger).Options()
	if err != nil {
		return nil, err
	}
	return filter.NewPostfixFilter(f.service, f.logger, serverCfg, opts), nil
}

// CreateCliFilter creates the CLI filter writing to out
func (f *FilterFactory) CreateCliFilter(out io.Writer, jsonOutput, verbose bool) (*filter.CliFilter, error) {
	opts, err := NewExtractorFactory(f.cfg, f.logger).Options()
	if err != nil {
		return nil, err
	}
	return filter.NewCliFilter(f.service, f.logger, out, opts, jsonOutput, verbose), nil
}
