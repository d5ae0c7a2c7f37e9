package core

import (
	"context"
)

// Detector recognizes one forward-header dialect
type Detector interface {
	// Name identifies the detector in diagnostics and history flags
	Name() string

	// Priority orders detectors; lower values win ties
	Priority() int

	// Detect looks for a forward boundary and never fails
	Detect(text string) DetectionResult
}

// Extractor unwraps a raw message into its deepest level
type Extractor interface {
	// Extract always returns a result; failures become fallback results
	Extract(ctx context.Context, raw []byte, opts Options) *Result
}

// ChainReviewer asks an external model for a second opinion on a chain
type ChainReviewer interface {
	// ReviewChain estimates depth and original sender of a forwarded body
	ReviewChain(ctx context.Context, result *Result) (*ChainReview, error)
}

// DomainMatcher reports whether an address belongs to a configured domain list
type DomainMatcher interface {
	IsWhitelisted(from string) bool
}

// CacheRepository defines the interface for caching extraction results
type CacheRepository interface {
	// Get retrieves a cached entry by content key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
