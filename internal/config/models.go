package config

import (
	"time"
)

// ServerConfig is the SMTP content filter configuration
type ServerConfig struct {
	ListenAddress   string
	RelayHost       string
	RelayPort       int
	RelayEnabled    bool
	MaxMessageBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	HeaderPrefix    string
}

// ExtractConfig holds the extraction defaults
type ExtractConfig struct {
	MaxDepth int
	Timeout  time.Duration
	SkipMIME bool
}

// ReviewConfig selects and tunes the optional chain reviewer
type ReviewConfig struct {
	Provider     string
	Threshold    int
	MaxBodyChars int
	SkipDomains  []string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// CacheConfig represents the result cache configuration
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// IMAPConfig represents the IMAP mailbox source
type IMAPConfig struct {
	Address   string
	Username  string
	Password  string
	Mailbox   string
	SinceDays int
	TLS       bool
}

// GetServer returns the SMTP filter configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		RelayHost:       c.GetString("server.relay_host"),
		RelayPort:       c.GetInt("server.relay_port"),
		RelayEnabled:    c.GetBool("server.relay_enabled"),
		MaxMessageBytes: c.v.GetInt64("server.max_message_bytes"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		HeaderPrefix:    c.GetString("server.header_prefix"),
	}, nil
}

// GetExtract returns the extraction defaults
func (c *Config) GetExtract() (ExtractConfig, error) {
	timeout, err := c.GetDuration("extract.timeout")
	if err != nil {
		return ExtractConfig{}, err
	}
	return ExtractConfig{
		MaxDepth: c.GetInt("extract.max_depth"),
		Timeout:  timeout,
		SkipMIME: c.GetBool("extract.skip_mime"),
	}, nil
}

// GetReview returns the reviewer configuration
func (c *Config) GetReview() ReviewConfig {
	return ReviewConfig{
		Provider:     c.GetString("review.provider"),
		Threshold:    c.GetInt("review.threshold"),
		MaxBodyChars: c.GetInt("review.max_body_chars"),
		SkipDomains:  c.GetStringSlice("review.skip_domains"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetIMAP returns the IMAP source configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Address:   c.GetString("imap.address"),
		Username:  c.GetString("imap.username"),
		Password:  c.GetString("imap.password"),
		Mailbox:   c.GetString("imap.mailbox"),
		SinceDays: c.GetInt("imap.since_days"),
		TLS:       c.GetBool("imap.tls"),
	}
}
