// Package retry provides retry policies for failed handler invocations
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy decides whether a failed invocation should be retried and how long
// to wait before the next attempt. Policies are immutable after construction
// and safe for concurrent use across dispatches.
type Policy interface {
	// ShouldRetry reports whether the given error on the given zero-based
	// attempt should be retried
	ShouldRetry(err error, attempt int) bool

	// NextDelay returns the delay before the next attempt
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the total number of attempts allowed
	MaxAttempts() int
}

// Condition reports whether an error is worth retrying
type Condition func(error) bool

// DefaultCondition retries every error except context cancellation and
// deadline expiry, which indicate the dispatch itself is done.
func DefaultCondition(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// basePolicy carries the fields shared by all policies
type basePolicy struct {
	maxAttempts  int
	condition    Condition
	jitterFactor float64
	maxDelay     time.Duration
}

func newBasePolicy(maxAttempts int, opts ...PolicyOption) basePolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	p := basePolicy{
		maxAttempts: maxAttempts,
		condition:   DefaultCondition,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p *basePolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxAttempts-1 {
		return false
	}
	return p.condition(err)
}

func (p *basePolicy) MaxAttempts() int {
	return p.maxAttempts
}

// clamp applies the max-delay cap and jitter to a computed delay
func (p *basePolicy) clamp(delay time.Duration) time.Duration {
	if p.maxDelay > 0 && delay > p.maxDelay {
		delay = p.maxDelay
	}
	if p.jitterFactor > 0 {
		jitterRange := float64(delay) * p.jitterFactor
		jitterAmount := (rand.Float64() - 0.5) * 2 * jitterRange
		jittered := delay + time.Duration(jitterAmount)
		if jittered < 0 {
			jittered = delay / 2
		}
		delay = jittered
	}
	return delay
}

// PolicyOption configures a policy at construction time
type PolicyOption func(*basePolicy)

// WithCondition sets a custom retry condition
func WithCondition(cond Condition) PolicyOption {
	return func(p *basePolicy) {
		if cond != nil {
			p.condition = cond
		}
	}
}

// WithJitter enables jitter as a fraction of the computed delay (0.1 = ±10%)
func WithJitter(factor float64) PolicyOption {
	return func(p *basePolicy) {
		if factor > 0 {
			p.jitterFactor = factor
		}
	}
}

// WithMaxDelay caps the delay produced by growing backoff policies
func WithMaxDelay(d time.Duration) PolicyOption {
	return func(p *basePolicy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// FixedDelay retries with a constant delay between attempts
type FixedDelay struct {
	basePolicy
	delay time.Duration
}

// NewFixedDelay creates a fixed-delay policy with the given total attempts
func NewFixedDelay(maxAttempts int, delay time.Duration, opts ...PolicyOption) *FixedDelay {
	return &FixedDelay{
		basePolicy: newBasePolicy(maxAttempts, opts...),
		delay:      delay,
	}
}

// NextDelay returns the delay before the next attempt
func (p *FixedDelay) NextDelay(attempt int) time.Duration {
	return p.clamp(p.delay)
}

// ExponentialBackoff doubles the delay after each failed attempt
type ExponentialBackoff struct {
	basePolicy
	initialDelay time.Duration
	multiplier   float64
}

// NewExponentialBackoff creates an exponential backoff policy starting at
// initialDelay and doubling each attempt unless WithMultiplier overrides it
func NewExponentialBackoff(maxAttempts int, initialDelay time.Duration, opts ...PolicyOption) *ExponentialBackoff {
	p := &ExponentialBackoff{
		basePolicy:   newBasePolicy(maxAttempts, opts...),
		initialDelay: initialDelay,
		multiplier:   2.0,
	}
	if p.maxDelay == 0 {
		// growing delays need a cap to stay bounded
		p.maxDelay = 30 * time.Second
	}
	return p
}

// SetMultiplier overrides the growth factor; values below 1 are ignored
func (p *ExponentialBackoff) SetMultiplier(m float64) *ExponentialBackoff {
	if m >= 1 {
		p.multiplier = m
	}
	return p
}

// NextDelay returns initialDelay * multiplier^attempt, capped and jittered
func (p *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.initialDelay) * math.Pow(p.multiplier, float64(attempt))
	if delay > float64(math.MaxInt64) {
		return p.clamp(p.maxDelay)
	}
	return p.clamp(time.Duration(delay))
}

// None returns a policy that never retries; useful to override a
// register-wide default for a single handler
func None() Policy {
	return &FixedDelay{basePolicy: basePolicy{maxAttempts: 1, condition: DefaultCondition}}
}
