// Package config provides configuration management for the jobhealth tools.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	// BuildkiteAPIToken authenticates with Buildkite. Empty means no fetch is attempted.
	BuildkiteAPIToken string `env:"BUILDKITE_API_TOKEN"`
	// BuildkiteAPIURL overrides the API root, mainly for tests and proxies.
	BuildkiteAPIURL string `env:"BUILDKITE_API_URL" envDefault:"https://api.buildkite.com/v2"`

	Org      string `env:"BUILDKITE_ORG" envDefault:"vllm"`
	Pipeline string `env:"BUILDKITE_PIPELINE" envDefault:"ci"`
	Branch   string `env:"BUILDKITE_BRANCH" envDefault:"main"`

	// BuildLimit caps the builds fetched per refresh.
	BuildLimit int `env:"JOBHEALTH_BUILD_LIMIT" envDefault:"100"`
	// TargetCommits stops paging once this many distinct commits were seen.
	TargetCommits int `env:"JOBHEALTH_TARGET_COMMITS" envDefault:"30"`
	PageSize      int `env:"JOBHEALTH_PAGE_SIZE" envDefault:"50"`
	// RequestsPerSecond paces page requests; 0 disables pacing.
	RequestsPerSecond float64 `env:"JOBHEALTH_REQUESTS_PER_SECOND" envDefault:"0"`

	RefreshInterval time.Duration `env:"JOBHEALTH_REFRESH_INTERVAL" envDefault:"5m"`

	LogLevel  string `env:"JOBHEALTH_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"JOBHEALTH_LOG_FORMAT" envDefault:"text"`

	// RedpandaBrokers enables snapshot publishing to Redpanda/Kafka.
	RedpandaBrokers []string `env:"REDPANDA_BROKERS" envSeparator:","`
}

// LoadFromEnv loads configuration from environment variables. It does not
// validate, so callers can apply overrides first and then call Validate.
func LoadFromEnv() (*Config, error) {
	return load(env.Options{})
}

// LoadFromMap loads configuration from the given variables instead of the
// process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values a refresh depends on.
func (c *Config) Validate() error {
	if c.Org == "" || c.Pipeline == "" {
		return fmt.Errorf("BUILDKITE_ORG and BUILDKITE_PIPELINE must not be empty")
	}
	if c.BuildLimit <= 0 {
		return fmt.Errorf("JOBHEALTH_BUILD_LIMIT must be positive, got %d", c.BuildLimit)
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return fmt.Errorf("JOBHEALTH_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("JOBHEALTH_REQUESTS_PER_SECOND must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("JOBHEALTH_REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	return nil
}

// HasCredential reports whether a Buildkite token is configured.
func (c *Config) HasCredential() bool {
	return c.BuildkiteAPIToken != ""
}

// AgenticMode reports whether snapshots should be published to Redpanda.
func (c *Config) AgenticMode() bool {
	return len(c.RedpandaBrokers) > 0
}
