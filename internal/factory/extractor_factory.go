package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/extract"
)

// ExtractorFactory builds the extractor and its default options from configuration
type ExtractorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExtractorFactory creates a new extractor factory
func NewExtractorFactory(cfg *config.Config, logger *zap.Logger) *ExtractorFactory {
	return &ExtractorFactory{cfg: cfg, logger: logger}
}

// Options returns the configured extraction defaults
func (f *ExtractorFactory) Options() (core.Options, error) {
	extractCfg, err := f.cfg.GetExtract()
	if err != nil {
		return core.Options{}, err
	}
	return core.Options{
		MaxDepth:      extractCfg.MaxDepth,
		Timeout:       extractCfg.Timeout,
		SkipMIMELayer: extractCfg.SkipMIME,
	}, nil
}

// CreateExtractor creates an extractor using the configured defaults
func (f *ExtractorFactory) CreateExtractor() (*extract.Extractor, error) {
	opts, err := f.Options()
	if err != nil {
		return nil, err
	}
	return extract.NewExtractor(f.logger, opts), nil
}
