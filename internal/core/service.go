package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ForwardService extracts forwarded chains, caching results and asking a
// reviewer for a second opinion when the confidence score is low.
type ForwardService struct {
	extractor       Extractor
	reviewer        ChainReviewer
	cache           CacheRepository
	skip            DomainMatcher
	logger          *zap.Logger
	cacheEnabled    bool
	cacheTTL        time.Duration
	reviewThreshold int
}

// NewForwardService creates a new forward extraction service.
// reviewer, cache and skip may be nil.
func NewForwardService(
	extractor Extractor,
	reviewer ChainReviewer,
	cache CacheRepository,
	skip DomainMatcher,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	reviewThreshold int,
) *ForwardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForwardService{
		extractor:       extractor,
		reviewer:        reviewer,
		cache:           cache,
		skip:            skip,
		logger:          logger,
		cacheEnabled:    cacheEnabled && cache != nil,
		cacheTTL:        cacheTTL,
		reviewThreshold: reviewThreshold,
	}
}

// CacheKey identifies a raw message in the result cache
func CacheKey(raw []byte, opts Options) string {
	sum := sha256.New()
	sum.Write(raw)
	fmt.Fprintf(sum, "|%d|%t", opts.MaxDepth, opts.SkipMIMELayer)
	return hex.EncodeToString(sum.Sum(nil))
}

// Process extracts the deepest message from raw
func (s *ForwardService) Process(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	useCache := s.cacheEnabled && len(opts.CustomDetectors) == 0
	key := CacheKey(raw, opts)

	if useCache {
		if result, ok := s.fromCache(ctx, key); ok {
			s.logger.Debug("Cache hit for message", zap.String("key", key))
			return result, nil
		}
	}

	result := s.extractor.Extract(ctx, raw, opts)
	if result == nil {
		return nil, fmt.Errorf("extractor returned no result")
	}

	s.logger.Info("Extracted forward chain",
		zap.String("id", result.ID),
		zap.String("method", result.Diagnostics.Method),
		zap.Int("depth", result.Diagnostics.Depth),
		zap.Int("confidence", s.score(result)))

	if s.shouldReview(result) {
		review, err := s.reviewer.ReviewChain(ctx, result)
		if err != nil {
			s.logger.Warn("Chain review failed", zap.String("id", result.ID), zap.Error(err))
			result.Diagnostics.AddWarning("Review failed: " + err.Error())
		} else if review != nil {
			result.Review = review
			if review.Depth != result.Diagnostics.Depth {
				s.logger.Info("Reviewer disagrees on depth",
					zap.String("id", result.ID),
					zap.Int("detected", result.Diagnostics.Depth),
					zap.Int("reviewed", review.Depth))
			}
		}
	}

	if useCache {
		s.store(ctx, key, result)
	}
	return result, nil
}

func (s *ForwardService) score(result *Result) int {
	if result.Confidence == nil {
		return 0
	}
	return result.Confidence.Score
}

func (s *ForwardService) shouldReview(result *Result) bool {
	if s.reviewer == nil || result.Diagnostics.Depth == 0 {
		return false
	}
	if s.score(result) >= s.reviewThreshold {
		return false
	}
	if s.skip != nil && result.From != nil && s.skip.IsWhitelisted(result.From.Address) {
		s.logger.Info("Skipping review for whitelisted domain",
			zap.String("sender", result.From.Address),
			zap.String("action", "whitelist_bypass"))
		return false
	}
	return true
}

func (s *ForwardService) fromCache(ctx context.Context, key string) (*Result, bool) {
	entry, err := s.cache.Get(ctx, key)
	if err != nil || entry == nil {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(entry.Result, &result); err != nil {
		s.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &result, true
}

func (s *ForwardService) store(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("Failed to encode result for cache", zap.Error(err))
		return
	}
	now := time.Now()
	entry := &CacheEntry{
		Key:       key,
		Result:    data,
		Depth:     result.Diagnostics.Depth,
		Score:     s.score(result),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cacheTTL),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.logger.Error("Failed to update cache", zap.Error(err))
	}
}
