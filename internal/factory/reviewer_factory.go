package factory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/adapters/bedrock"
	"github.com/mikey/forward-unwrap/internal/adapters/gemini"
	"github.com/mikey/forward-unwrap/internal/adapters/openai"
	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

// ReviewerFactory creates the optional chain reviewer
type ReviewerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewReviewerFactory creates a new reviewer factory
func NewReviewerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ReviewerFactory {
	return &ReviewerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateReviewer returns the configured reviewer, or nil when review is off
func (f *ReviewerFactory) CreateReviewer(ctx context.Context) (core.ChainReviewer, error) {
	provider := strings.ToLower(strings.TrimSpace(f.cfg.GetReview().Provider))

	switch provider {
	case "", "none":
		f.logger.Debug("Chain review disabled")
		return nil, nil
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported review provider: %s", provider)
	}
}
