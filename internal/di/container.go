package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/factory"
	"github.com/mikey/forward-unwrap/internal/logging"
	"github.com/mikey/forward-unwrap/internal/ports"
	"github.com/mikey/forward-unwrap/internal/utils"
	"github.com/mikey/forward-unwrap/internal/whitelist"
)

// BuildContainer creates and configures the container for the SMTP filter daemon
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreatePostfixFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideService registers everything between configuration and the
// ForwardService. Config and logger must already be provided.
func provideService(container *dig.Container) error {
	providers := []interface{}{
		utils.NewTextProcessor,
		factory.NewReviewerFactory,
		factory.NewCacheFactory,
		factory.NewExtractorFactory,
		factory.NewFilterFactory,

		func(f *factory.ReviewerFactory) (core.ChainReviewer, error) {
			return f.CreateReviewer(context.Background())
		},
		func(f *factory.CacheFactory) (factory.Cache, error) {
			return f.CreateCacheRepository()
		},
		func(f *factory.ExtractorFactory) (core.Extractor, error) {
			return f.CreateExtractor()
		},
		func(cfg *config.Config, logger *zap.Logger) core.DomainMatcher {
			domains := cfg.GetReview().SkipDomains
			if len(domains) > 0 {
				logger.Info("Loaded review skip domains", zap.Strings("domains", domains))
			}
			return whitelist.NewChecker(domains, logger)
		},
		newForwardService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

func newForwardService(
	cfg *config.Config,
	logger *zap.Logger,
	extractor core.Extractor,
	reviewer core.ChainReviewer,
	cacheFactory *factory.CacheFactory,
	cache factory.Cache,
	skip core.DomainMatcher,
) (*core.ForwardService, error) {
	ttl, err := cacheFactory.GetCacheTTL()
	if err != nil {
		return nil, err
	}

	var repo core.CacheRepository
	if cache != nil {
		repo = cache
	}

	return core.NewForwardService(
		extractor,
		reviewer,
		repo,
		skip,
		logger,
		cacheFactory.IsCacheEnabled() && repo != nil,
		ttl,
		cfg.GetReview().Threshold,
	), nil
}
