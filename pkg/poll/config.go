package poll

import (
	"time"

	"github.com/jzx17/jobpoll/pkg/types"
)

// Default polling parameters
const (
	DefaultInitialDelay      = 3 * time.Second
	DefaultMaxPollingTime    = 120 * time.Second
	DefaultMaxAttempts       = 20
	DefaultRetryDelay        = 3 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultMaxBackoffDelay   = 10 * time.Second
	DefaultName              = "poll"
)

// ErrorClassifier reports whether a fetch error must stop polling
type ErrorClassifier func(error) bool

// Config holds the parameters of one ProcessWithRetry invocation.
//
// Out-of-range budgets and unset collaborators are replaced by defaults when
// the configuration is normalized; zero delays are valid and mean no wait.
type Config struct {
	// InitialDelay is waited once before the first attempt
	InitialDelay time.Duration

	// MaxPollingTime bounds the elapsed time checked at the top of every iteration
	MaxPollingTime time.Duration

	// MaxAttempts bounds the number of fetch calls
	MaxAttempts int

	// RetryDelay is the first inter-attempt delay
	RetryDelay time.Duration

	// UseBackoff grows the inter-attempt delay after every wait
	UseBackoff bool

	// BackoffMultiplier is applied to the delay after every wait
	BackoffMultiplier float64

	// MaxBackoffDelay caps every inter-attempt delay
	MaxBackoffDelay time.Duration

	// OnProgress is invoked once per executed attempt
	OnProgress ProgressFunc

	// Name tags events and log lines
	Name string

	// Events receives structured engine events
	Events EventHandler

	// Clock drives every wait and elapsed-time measurement
	Clock types.Clock

	// Classifier decides which fetch errors are terminal
	Classifier ErrorClassifier
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() Config {
	return Config{
		InitialDelay:      DefaultInitialDelay,
		MaxPollingTime:    DefaultMaxPollingTime,
		MaxAttempts:       DefaultMaxAttempts,
		RetryDelay:        DefaultRetryDelay,
		UseBackoff:        true,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxBackoffDelay:   DefaultMaxBackoffDelay,
		Name:              DefaultName,
	}
}

// normalize fills collaborators and clamps out-of-range values
func (c Config) normalize() Config {
	if c.InitialDelay < 0 {
		c.InitialDelay = 0
	}
	if c.MaxPollingTime <= 0 {
		c.MaxPollingTime = DefaultMaxPollingTime
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if c.MaxBackoffDelay <= 0 {
		c.MaxBackoffDelay = DefaultMaxBackoffDelay
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Events == nil {
		c.Events = NopEventHandler{}
	}
	if c.Clock == nil {
		c.Clock = types.NewRealClock()
	}
	if c.Classifier == nil {
		c.Classifier = types.IsTerminal
	}
	return c
}

// Option is a configuration option for a polling invocation
type Option func(*Config)

// NewConfig builds a normalized configuration from the defaults and opts
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.normalize()
}

// WithConfig replaces the whole configuration, typically with a loaded profile.
// Options applied after it still take effect.
func WithConfig(profile Config) Option {
	return func(c *Config) {
		*c = profile
	}
}

// WithInitialDelay sets the delay before the first attempt
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxPollingTime sets the elapsed-time budget
func WithMaxPollingTime(d time.Duration) Option {
	return func(c *Config) {
		c.MaxPollingTime = d
	}
}

// WithMaxAttempts sets the attempt budget
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryDelay sets the base inter-attempt delay
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithBackoff enables or disables exponential backoff
func WithBackoff(enabled bool) Option {
	return func(c *Config) {
		c.UseBackoff = enabled
	}
}

// WithBackoffMultiplier sets the backoff growth factor
func WithBackoffMultiplier(multiplier float64) Option {
	return func(c *Config) {
		c.BackoffMultiplier = multiplier
	}
}

// WithMaxBackoffDelay sets the backoff cap
func WithMaxBackoffDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxBackoffDelay = d
	}
}

// WithProgress sets the progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.OnProgress = fn
	}
}

// WithName sets the tag used in events and logs
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithEventHandler sets the event handler
func WithEventHandler(handler EventHandler) Option {
	return func(c *Config) {
		c.Events = handler
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithErrorClassifier sets the terminal-error classifier
func WithErrorClassifier(classifier ErrorClassifier) Option {
	return func(c *Config) {
		c.Classifier = classifier
	}
}
