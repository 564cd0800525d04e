package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/lectern/internal/errs"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 1.0 {
		t.Errorf("InitialBackoff = %v, want 1.0", cfg.InitialBackoff)
	}
	if cfg.RetryForIncompleteJSON != 2 {
		t.Errorf("RetryForIncompleteJSON = %d, want 2", cfg.RetryForIncompleteJSON)
	}
	if cfg.MaxPagesPerCall != 20 {
		t.Errorf("MaxPagesPerCall = %d, want 20", cfg.MaxPagesPerCall)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"negative backoff", func(c *Config) { c.InitialBackoff = -1 }},
		{"zero json retries", func(c *Config) { c.RetryForIncompleteJSON = 0 }},
		{"zero pages per call", func(c *Config) { c.MaxPagesPerCall = 0 }},
		{"overlap too large", func(c *Config) { c.SlidingWindowOverlap = 11 }},
		{"overlap exceeds window", func(c *Config) { c.MaxPagesPerCall = 3; c.SlidingWindowOverlap = 3 }},
		{"empty classification prefix", func(c *Config) { c.ClassificationPrefix = "" }},
		{"unknown default provider", func(c *Config) { c.Defaults.Provider = "nope" }},
		{"disabled default provider", func(c *Config) {
			p := c.Providers["bedrock"]
			p.Enabled = false
			c.Providers["bedrock"] = p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errs.IsConfiguration(err) {
				t.Errorf("Validate() = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestInitialBackoffDuration(t *testing.T) {
	cfg := &Config{InitialBackoff: 1.5}
	if got := cfg.InitialBackoffDuration(); got.Seconds() != 1.5 {
		t.Errorf("InitialBackoffDuration = %v", got)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("LECTERN_TEST_KEY", "secret123")

	tests := []struct {
		input string
		want  string
	}{
		{"${LECTERN_TEST_KEY}", "secret123"},
		{"prefix-${LECTERN_TEST_KEY}-suffix", "prefix-secret123-suffix"},
		{"${LECTERN_UNSET_KEY_XYZ}", ""},
		{"no-vars", "no-vars"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.input); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEnabledProviders(t *testing.T) {
	cfg := DefaultConfig()
	enabled := cfg.EnabledProviders()
	if _, ok := enabled["bedrock"]; !ok {
		t.Error("bedrock should be enabled by default")
	}
	if _, ok := enabled["openai"]; ok {
		t.Error("openai should be disabled by default")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Lectern configuration") {
		t.Error("config missing header comment")
	}
	for _, key := range []string{"max_retries", "retry_for_incomplete_json", "classification_prefix", "providers", "embedding"} {
		if !strings.Contains(content, key) {
			t.Errorf("config missing key %q", key)
		}
	}
}

// First run writes under ~/.lectern, which does not exist yet.
func TestWriteDefaultCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lectern", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat written config: %v", err)
	}
}
