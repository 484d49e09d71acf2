// Package config loads polling profiles and backend settings
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// Environment overrides, applied after the file
const (
	EnvBackendURL     = "JOBPOLL_BACKEND_URL"
	EnvLogLevel       = "JOBPOLL_LOG_LEVEL"
	EnvMetricsAddr    = "JOBPOLL_METRICS_ADDR"
	EnvRequestTimeout = "JOBPOLL_REQUEST_TIMEOUT"
)

type (
	Backend struct {
		URL            string        `yaml:"url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	}

	Logging struct {
		Level string `yaml:"level"`
	}

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the metrics endpoint
	}

	// Profile is one engine configuration as written in the file
	Profile struct {
		InitialDelay      time.Duration `yaml:"initial_delay"`
		MaxPollingTime    time.Duration `yaml:"max_polling_time"`
		MaxAttempts       int           `yaml:"max_attempts"`
		RetryDelay        time.Duration `yaml:"retry_delay"`
		UseBackoff        bool          `yaml:"use_backoff"`
		BackoffMultiplier float64       `yaml:"backoff_multiplier"`
		MaxBackoffDelay   time.Duration `yaml:"max_backoff_delay"`
	}

	// StatusProfile configures the fixed-interval status poller
	StatusProfile struct {
		Interval    time.Duration `yaml:"interval"`
		MaxAttempts int           `yaml:"max_attempts"`
	}

	Polling struct {
		OCR       Profile       `yaml:"ocr"`
		Admission Profile       `yaml:"admission"`
		Status    StatusProfile `yaml:"status"`
	}

	Config struct {
		Backend Backend `yaml:"backend"`
		Logging Logging `yaml:"logging"`
		Metrics Metrics `yaml:"metrics"`
		Polling Polling `yaml:"polling"`
	}
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend: Backend{
			URL:            "http://localhost:8090",
			RequestTimeout: 10 * time.Second,
		},
		Logging: Logging{Level: "info"},
		Polling: Polling{
			OCR:       defaultProfile(),
			Admission: defaultProfile(),
			Status: StatusProfile{
				Interval:    poll.DefaultStatusInterval,
				MaxAttempts: poll.DefaultStatusMaxAttempts,
			},
		},
	}
}

func defaultProfile() Profile {
	d := poll.DefaultConfig()
	return Profile{
		InitialDelay:      d.InitialDelay,
		MaxPollingTime:    d.MaxPollingTime,
		MaxAttempts:       d.MaxAttempts,
		RetryDelay:        d.RetryDelay,
		UseBackoff:        d.UseBackoff,
		BackoffMultiplier: d.BackoffMultiplier,
		MaxBackoffDelay:   d.MaxBackoffDelay,
	}
}

// Load reads path over the defaults, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment loading: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Metrics.Addr = v
	}

	timeout, err := osGetEnvDuration(EnvRequestTimeout)
	if err != nil {
		return err
	}
	if timeout != 0 {
		c.Backend.RequestTimeout = timeout
	}
	return nil
}

// Validate rejects settings the engine would otherwise silently replace
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend url is required (set via " + EnvBackendURL + ")")
	}
	if c.Backend.RequestTimeout <= 0 {
		return errors.New("backend request_timeout must be positive")
	}

	profiles := map[string]Profile{"ocr": c.Polling.OCR, "admission": c.Polling.Admission}
	for name, p := range profiles {
		if p.MaxAttempts <= 0 {
			return fmt.Errorf("polling.%s.max_attempts must be positive", name)
		}
		if p.MaxPollingTime <= 0 {
			return fmt.Errorf("polling.%s.max_polling_time must be positive", name)
		}
		if p.InitialDelay < 0 || p.RetryDelay < 0 {
			return fmt.Errorf("polling.%s delays must not be negative", name)
		}
		if p.UseBackoff && p.BackoffMultiplier < 1 {
			return fmt.Errorf("polling.%s.backoff_multiplier must be at least 1", name)
		}
	}

	if c.Polling.Status.Interval <= 0 {
		return errors.New("polling.status.interval must be positive")
	}
	if c.Polling.Status.MaxAttempts <= 0 {
		return errors.New("polling.status.max_attempts must be positive")
	}
	return nil
}

// PollConfig converts the profile into an engine configuration tagged with name
func (p Profile) PollConfig(name string) poll.Config {
	cfg := poll.DefaultConfig()
	cfg.Name = name
	cfg.InitialDelay = p.InitialDelay
	cfg.MaxPollingTime = p.MaxPollingTime
	cfg.MaxAttempts = p.MaxAttempts
	cfg.RetryDelay = p.RetryDelay
	cfg.UseBackoff = p.UseBackoff
	cfg.BackoffMultiplier = p.BackoffMultiplier
	cfg.MaxBackoffDelay = p.MaxBackoffDelay
	return cfg
}

// Options converts the profile into status poller options
func (s StatusProfile) Options() []poll.StatusOption {
	return []poll.StatusOption{
		poll.WithStatusInterval(s.Interval),
		poll.WithStatusMaxAttempts(s.MaxAttempts),
	}
}

func osGetEnvDuration(s string) (time.Duration, error) {
	val := os.Getenv(s)
	if val == "" {
		return time.Duration(0), nil
	}

	res, err := time.ParseDuration(val)
	if err != nil {
		return time.Duration(0), fmt.Errorf("invalid duration format for %s=%q: %w", s, val, err)
	}
	return res, nil
}
