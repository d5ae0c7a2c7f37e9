package factory

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/forward-unwrap/internal/adapters/cache"
	"github.com/mikey/forward-unwrap/internal/config"
	"github.com/mikey/forward-unwrap/internal/core"
	"github.com/mikey/forward-unwrap/internal/utils"
)

func newConfig(values map[string]interface{}) *config.Config {
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range values {
		cfg.Set(k, v)
	}
	return cfg
}

func TestCreateReviewer(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		wantNil bool
		wantErr string
	}{
		{name: "default is off", wantNil: true},
		{name: "explicit none", values: map[string]interface{}{"review.provider": "None"}, wantNil: true},
		{name: "unknown provider", values: map[string]interface{}{"review.provider": "llama"}, wantErr: "unsupported review provider: llama"},
		{name: "openai without key", values: map[string]interface{}{"review.provider": "openai"}, wantErr: "openai.api_key is required for the openai reviewer"},
		{name: "gemini without key", values: map[string]interface{}{"review.provider": "gemini"}, wantErr: "gemini.api_key is required for the gemini reviewer"},
		{name: "openai with key", values: map[string]interface{}{"review.provider": "openai", "openai.api_key": "sk-test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewReviewerFactory(newConfig(tt.values), zap.NewNop(), utils.NewTextProcessor(nil))
			reviewer, err := f.CreateReviewer(context.Background())
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.Nil(t, reviewer)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, reviewer)
			} else {
				assert.NotNil(t, reviewer)
			}
		})
	}
}

func TestCreateCacheRepository(t *testing.T) {
	disabled, err := NewCacheFactory(newConfig(map[string]interface{}{"cache.enabled": false}), zap.NewNop()).CreateCacheRepository()
	require.NoError(t, err)
	assert.Nil(t, disabled)

	memory, err := NewCacheFactory(newConfig(nil), zap.NewNop()).CreateCacheRepository()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, memory)
	memory.Stop()

	sqlitePath := filepath.Join(t.TempDir(), "nested", "cache.db")
	sqlite, err := NewCacheFactory(newConfig(map[string]interface{}{
		"cache.type":        "sqlite",
		"cache.sqlite_path": sqlitePath,
	}), zap.NewNop()).CreateCacheRepository()
	require.NoError(t, err)
	assert.IsType(t, &cache.SQLiteCache{}, sqlite)
	sqlite.Stop()

	_, err = NewCacheFactory(newConfig(map[string]interface{}{"cache.type": "redis"}), zap.NewNop()).CreateCacheRepository()
	assert.EqualError(t, err, "unsupported cache type: redis")

	_, err = NewCacheFactory(newConfig(map[string]interface{}{"cache.ttl": "soon"}), zap.NewNop()).CreateCacheRepository()
	assert.Error(t, err)
}

func TestCacheSettings(t *testing.T) {
	f := NewCacheFactory(newConfig(map[string]interface{}{"cache.ttl": "2h"}), zap.NewNop())

	ttl, err := f.GetCacheTTL()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
	assert.True(t, f.IsCacheEnabled())
}

func TestExtractorOptions(t *testing.T) {
	f := NewExtractorFactory(newConfig(map[string]interface{}{
		"extract.max_depth": 4,
		"extract.timeout":   "3s",
		"extract.skip_mime": true,
	}), zap.NewNop())

	opts, err := f.Options()
	require.NoError(t, err)
	assert.Equal(t, core.Options{MaxDepth: 4, Timeout: 3 * time.Second, SkipMIMELayer: true}, opts)

	extractor, err := f.CreateExtractor()
	require.NoError(t, err)
	assert.NotNil(t, extractor)
}

func TestFilterFactory(t *testing.T) {
	cfg := newConfig(nil)
	service := core.NewForwardService(nil, nil, nil, nil, zap.NewNop(), false, 0, 0)
	f := NewFilterFactory(cfg, zap.NewNop(), service)

	postfix, err := f.CreatePostfixFilter()
	require.NoError(t, err)
	assert.NotNil(t, postfix)

	cli, err := f.CreateCliFilter(&bytes.Buffer{}, true, false)
	require.NoError(t, err)
	assert.NotNil(t, cli)

	cfg.Set("server.read_timeout", "never")
	_, err = f.CreatePostfixFilter()
	assert.Error(t, err)
}
