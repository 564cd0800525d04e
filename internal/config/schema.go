package config

import (
	"time"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/window"
)

// Config holds lectern configuration.
// Loaded from config.yaml, overridable with LECTERN_* environment variables.
type Config struct {
	// MaxRetries caps attempts per model call when the backend throttles.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// InitialBackoff is the first retry delay in seconds; it doubles each
	// attempt.
	InitialBackoff float64 `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	// RetryForIncompleteJSON is the total number of model turns allowed
	// when coaxing schema-valid JSON out of a model.
	RetryForIncompleteJSON int `mapstructure:"retry_for_incomplete_json" yaml:"retry_for_incomplete_json"`
	// MaxPagesPerCall bounds how many pages go into a single model call.
	MaxPagesPerCall int `mapstructure:"max_pages_per_call" yaml:"max_pages_per_call"`
	// SlidingWindowOverlap is the page overlap between consecutive windows
	// when processing large documents. Zero disables windowing.
	SlidingWindowOverlap int `mapstructure:"sliding_window_overlap" yaml:"sliding_window_overlap"`
	// ClassificationPrefix is the object store prefix for classifier
	// sample files.
	ClassificationPrefix string `mapstructure:"classification_prefix" yaml:"classification_prefix"`

	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Embedding EmbeddingCfg           `mapstructure:"embedding" yaml:"embedding"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Store     StoreCfg               `mapstructure:"store" yaml:"store"`
}

// ProviderCfg configures a model provider.
type ProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`             // "bedrock", "openai"
	Model     string `mapstructure:"model" yaml:"model"`           // Model identifier
	Region    string `mapstructure:"region" yaml:"region"`         // AWS region (bedrock)
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`     // Override endpoint (openai-compatible)
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// EmbeddingCfg configures the image embedding model used for
// classification.
type EmbeddingCfg struct {
	Provider   string `mapstructure:"provider" yaml:"provider"` // "bedrock"
	Model      string `mapstructure:"model" yaml:"model"`
	Region     string `mapstructure:"region" yaml:"region"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

// DefaultsCfg specifies default selections for model calls.
type DefaultsCfg struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// StoreCfg configures object storage for classifier samples.
type StoreCfg struct {
	// Root is a local directory or s3://bucket prefix.
	Root string `mapstructure:"root" yaml:"root"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:             5,
		InitialBackoff:         1.0,
		RetryForIncompleteJSON: 2,
		MaxPagesPerCall:        20,
		SlidingWindowOverlap:   0,
		ClassificationPrefix:   "lectern_classification",
		Providers: map[string]ProviderCfg{
			"bedrock": {
				Type:      "bedrock",
				Model:     "anthropic.claude-3-sonnet-20240229-v1:0",
				Region:    "us-east-1",
				RateLimit: 60,
				Enabled:   true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		Embedding: EmbeddingCfg{
			Provider:   "bedrock",
			Model:      "amazon.titan-embed-image-v1",
			Region:     "us-east-1",
			Dimensions: 1024,
		},
		Defaults: DefaultsCfg{
			Provider:    "bedrock",
			MaxTokens:   4096,
			Temperature: 0,
		},
		Store: StoreCfg{
			Root: "$HOME/.lectern/store",
		},
	}
}

// InitialBackoffDuration returns InitialBackoff as a duration.
func (c *Config) InitialBackoffDuration() time.Duration {
	return time.Duration(c.InitialBackoff * float64(time.Second))
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return &errs.ConfigurationError{Key: "max_retries", Value: c.MaxRetries, Message: "must be at least 1"}
	}
	if c.InitialBackoff <= 0 {
		return &errs.ConfigurationError{Key: "initial_backoff", Value: c.InitialBackoff, Message: "must be positive"}
	}
	if c.RetryForIncompleteJSON < 1 {
		return &errs.ConfigurationError{Key: "retry_for_incomplete_json", Value: c.RetryForIncompleteJSON, Message: "must be at least 1"}
	}
	if c.MaxPagesPerCall < 1 {
		return &errs.ConfigurationError{Key: "max_pages_per_call", Value: c.MaxPagesPerCall, Message: "must be at least 1"}
	}
	if c.SlidingWindowOverlap < 0 || c.SlidingWindowOverlap > window.MaxOverlap {
		return &errs.ConfigurationError{Key: "sliding_window_overlap", Value: c.SlidingWindowOverlap, Message: "must be between 0 and 10"}
	}
	if c.SlidingWindowOverlap > 0 && c.SlidingWindowOverlap >= c.MaxPagesPerCall {
		return &errs.ConfigurationError{Key: "sliding_window_overlap", Value: c.SlidingWindowOverlap, Message: "must be smaller than max_pages_per_call"}
	}
	if c.ClassificationPrefix == "" {
		return &errs.ConfigurationError{Key: "classification_prefix", Message: "must not be empty"}
	}
	if c.Defaults.Provider != "" {
		p, ok := c.Providers[c.Defaults.Provider]
		if !ok {
			return &errs.ConfigurationError{Key: "defaults.provider", Value: c.Defaults.Provider, Message: "not a configured provider"}
		}
		if !p.Enabled {
			return &errs.ConfigurationError{Key: "defaults.provider", Value: c.Defaults.Provider, Message: "provider is disabled"}
		}
	}
	return nil
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
