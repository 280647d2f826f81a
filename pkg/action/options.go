package action

import (
	"log/slog"
	"time"

	"github.com/mineclover/context-action-go/pkg/types"
)

// ErrorPolicy decides how the engine reacts to a blocking handler failure
type ErrorPolicy int

const (
	// ErrorPolicyAbort settles the dispatch as errored on the first
	// blocking handler failure; remaining handlers do not run
	ErrorPolicyAbort ErrorPolicy = iota

	// ErrorPolicyContinue records the failure on the outcome and keeps
	// walking the snapshot
	ErrorPolicyContinue
)

// String returns string representation of the policy
func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicyAbort:
		return "Abort"
	case ErrorPolicyContinue:
		return "Continue"
	default:
		return "Unknown"
	}
}

// Config holds register-wide configuration
type Config struct {
	// Logger receives structured engine logs; defaults to slog.Default()
	Logger *slog.Logger

	// Clock drives all engine timing; defaults to the real clock
	Clock types.Clock

	// ErrorPolicy is applied when a blocking handler fails
	ErrorPolicy ErrorPolicy

	// DefaultHandlerTimeout bounds handlers that set no timeout of their
	// own; zero means unbounded
	DefaultHandlerTimeout time.Duration

	// MaxBackground caps concurrently running fire-and-forget handlers;
	// zero means unlimited
	MaxBackground int

	// BackgroundErrorHandler receives failures of fire-and-forget handlers;
	// when nil they are logged at error level
	BackgroundErrorHandler func(*BackgroundHandlerError)

	// PreDispatchHooks run before each dispatch; any hook returning false
	// cancels it
	PreDispatchHooks []PreDispatchHook

	// PostDispatchHooks observe every settled outcome
	PostDispatchHooks []PostDispatchHook
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logger:      slog.Default(),
		Clock:       types.NewRealClock(),
		ErrorPolicy: ErrorPolicyAbort,
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) types.Option[*Config] {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithClock sets the clock used for handler timeouts, retry delays and
// dispatch durations
func WithClock(clock types.Clock) types.Option[*Config] {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithErrorPolicy sets the blocking-handler failure policy
func WithErrorPolicy(policy ErrorPolicy) types.Option[*Config] {
	return func(c *Config) {
		c.ErrorPolicy = policy
	}
}

// WithDefaultHandlerTimeout bounds every handler that sets no timeout itself
func WithDefaultHandlerTimeout(d time.Duration) types.Option[*Config] {
	return func(c *Config) {
		if d > 0 {
			c.DefaultHandlerTimeout = d
		}
	}
}

// WithMaxBackground caps concurrently running fire-and-forget handlers
func WithMaxBackground(n int) types.Option[*Config] {
	return func(c *Config) {
		if n > 0 {
			c.MaxBackground = n
		}
	}
}

// WithBackgroundErrorHandler sets the notification channel for failures of
// fire-and-forget handlers
func WithBackgroundErrorHandler(fn func(*BackgroundHandlerError)) types.Option[*Config] {
	return func(c *Config) {
		c.BackgroundErrorHandler = fn
	}
}

// WithPreDispatchHook appends a hook that runs before each dispatch
func WithPreDispatchHook(hook PreDispatchHook) types.Option[*Config] {
	return func(c *Config) {
		if hook != nil {
			c.PreDispatchHooks = append(c.PreDispatchHooks, hook)
		}
	}
}

// WithPostDispatchHook appends a hook that observes every settled outcome
func WithPostDispatchHook(hook PostDispatchHook) types.Option[*Config] {
	return func(c *Config) {
		if hook != nil {
			c.PostDispatchHooks = append(c.PostDispatchHooks, hook)
		}
	}
}

// dispatchOptions collects per-dispatch overrides
type dispatchOptions struct {
	failOnError bool
	timeout     time.Duration
}

// DispatchOption configures one dispatch call
type DispatchOption func(*dispatchOptions)

// WithFailOnError makes the dispatch call return an error when the outcome
// is aborted or errored, instead of the default resolve-with-status contract
func WithFailOnError() DispatchOption {
	return func(o *dispatchOptions) {
		o.failOnError = true
	}
}

// WithDispatchTimeout bounds the whole dispatch; on expiry the remaining
// handlers are aborted
func WithDispatchTimeout(d time.Duration) DispatchOption {
	return func(o *dispatchOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}
