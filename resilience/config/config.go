package config

import (
	"fmt"
	"os"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/retry"
	"github.com/LerianStudio/lib-resilience/resilience/timeout"
	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration values in either time.ParseDuration form
// ("250ms", "1m30s") or as an integer nanosecond count.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any

	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}

		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root of a resilience policy document.
type Config struct {
	Retry          RetryConfig          `yaml:"retry"`
	Timeout        TimeoutConfig        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig mirrors retry.Policy. Pointer fields distinguish "unset"
// (library default applies) from an explicit zero.
type RetryConfig struct {
	MaxRetries  *int     `yaml:"max_retries"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
	JitterRatio *float64 `yaml:"jitter_ratio"`
}

// TimeoutConfig mirrors timeout.Policy.
type TimeoutConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// CircuitBreakerConfig mirrors circuitbreaker.Options.
type CircuitBreakerConfig struct {
	FailuresBeforeOpen    int64    `yaml:"failures_before_open"`
	OpenInterval          Duration `yaml:"open_interval"`
	HalfOpenProbeInterval Duration `yaml:"half_open_probe_interval"`
	FailureRatio          float64  `yaml:"failure_ratio"`
	MinRequests           int64    `yaml:"min_requests"`
}

// Load reads and validates a policy document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a policy document.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", *c.Retry.MaxRetries)
	}

	if c.Retry.JitterRatio != nil && (*c.Retry.JitterRatio < 0 || *c.Retry.JitterRatio > 1) {
		return fmt.Errorf("retry.jitter_ratio must be in [0,1], got %v", *c.Retry.JitterRatio)
	}

	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must be >= 0")
	}

	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.base_delay %v exceeds retry.max_delay %v", c.Retry.BaseDelay.Std(), c.Retry.MaxDelay.Std())
	}

	if c.CircuitBreaker.FailureRatio < 0 || c.CircuitBreaker.FailureRatio > 1 {
		return fmt.Errorf("circuit_breaker.failure_ratio must be in [0,1], got %v", c.CircuitBreaker.FailureRatio)
	}

	return nil
}

// RetryPolicy materializes the retry section, applying library defaults for
// unset fields.
func (c *Config) RetryPolicy() retry.Policy {
	pol := retry.DefaultPolicy()

	if c.Retry.MaxRetries != nil {
		pol.MaxRetries = *c.Retry.MaxRetries
	}

	if c.Retry.BaseDelay > 0 {
		pol.BaseDelay = c.Retry.BaseDelay.Std()
	}

	if c.Retry.MaxDelay > 0 {
		pol.MaxDelay = c.Retry.MaxDelay.Std()
	}

	if c.Retry.JitterRatio != nil {
		pol.JitterRatio = *c.Retry.JitterRatio
	}

	return pol
}

// TimeoutPolicy materializes the timeout section.
func (c *Config) TimeoutPolicy() timeout.Policy {
	pol := timeout.DefaultPolicy()

	if c.Timeout.Timeout > 0 {
		pol.Timeout = c.Timeout.Timeout.Std()
	}

	return pol
}

// BreakerOptions materializes the circuit breaker section.
func (c *Config) BreakerOptions() circuitbreaker.Options {
	opts := circuitbreaker.DefaultOptions()

	if c.CircuitBreaker.FailuresBeforeOpen > 0 {
		opts.FailuresBeforeOpen = c.CircuitBreaker.FailuresBeforeOpen
	}

	if c.CircuitBreaker.OpenInterval > 0 {
		opts.OpenInterval = c.CircuitBreaker.OpenInterval.Std()
	}

	if c.CircuitBreaker.HalfOpenProbeInterval > 0 {
		opts.HalfOpenProbeInterval = c.CircuitBreaker.HalfOpenProbeInterval.Std()
	}

	opts.FailureRatio = c.CircuitBreaker.FailureRatio
	opts.MinRequests = c.CircuitBreaker.MinRequests

	return opts
}
