package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultCondition(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", errors.Join(errors.New("attempt"), context.Canceled), false},
		{"ordinary error", errors.New("transient"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultCondition(tt.err); got != tt.want {
				t.Errorf("DefaultCondition(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFixedDelay(t *testing.T) {
	policy := NewFixedDelay(3, 100*time.Millisecond)

	if got := policy.MaxAttempts(); got != 3 {
		t.Errorf("MaxAttempts() = %d, want 3", got)
	}
	for attempt := 0; attempt < 3; attempt++ {
		if got := policy.NextDelay(attempt); got != 100*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want 100ms", attempt, got)
		}
	}
}

func TestFixedDelayShouldRetry(t *testing.T) {
	policy := NewFixedDelay(3, time.Millisecond)
	err := errors.New("transient")

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"first attempt retries", err, 0, true},
		{"second attempt retries", err, 1, true},
		{"last attempt does not", err, 2, false},
		{"beyond last does not", err, 5, false},
		{"cancellation never retries", context.Canceled, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestMaxAttemptsClamped(t *testing.T) {
	for _, n := range []int{0, -3} {
		policy := NewFixedDelay(n, time.Millisecond)
		if got := policy.MaxAttempts(); got != 1 {
			t.Errorf("MaxAttempts() with input %d = %d, want 1", n, got)
		}
		if policy.ShouldRetry(errors.New("transient"), 0) {
			t.Error("single-attempt policy must never retry")
		}
	}
}

func TestExponentialBackoffGrowth(t *testing.T) {
	policy := NewExponentialBackoff(5, 10*time.Millisecond)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 80 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := policy.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	// negative attempts fall back to the initial delay
	if got := policy.NextDelay(-1); got != 10*time.Millisecond {
		t.Errorf("NextDelay(-1) = %v, want 10ms", got)
	}
}

func TestExponentialBackoffDefaultCap(t *testing.T) {
	policy := NewExponentialBackoff(50, time.Second)

	// far attempts stay bounded even without an explicit cap
	if got := policy.NextDelay(40); got != 30*time.Second {
		t.Errorf("NextDelay(40) = %v, want 30s", got)
	}
}

func TestExponentialBackoffMultiplier(t *testing.T) {
	policy := NewExponentialBackoff(4, 10*time.Millisecond).SetMultiplier(3)

	if got := policy.NextDelay(2); got != 90*time.Millisecond {
		t.Errorf("NextDelay(2) = %v, want 90ms", got)
	}

	// multipliers below one are ignored
	policy.SetMultiplier(0.5)
	if got := policy.NextDelay(2); got != 90*time.Millisecond {
		t.Errorf("NextDelay(2) after bad multiplier = %v, want 90ms", got)
	}
}

func TestWithMaxDelay(t *testing.T) {
	policy := NewExponentialBackoff(10, 10*time.Millisecond, WithMaxDelay(50*time.Millisecond))

	if got := policy.NextDelay(0); got != 10*time.Millisecond {
		t.Errorf("NextDelay(0) = %v, want 10ms", got)
	}
	if got := policy.NextDelay(6); got != 50*time.Millisecond {
		t.Errorf("NextDelay(6) = %v, want the 50ms cap", got)
	}
}

func TestWithJitterBounds(t *testing.T) {
	policy := NewFixedDelay(3, 100*time.Millisecond, WithJitter(0.5))

	lo := 50 * time.Millisecond
	hi := 150 * time.Millisecond
	for i := 0; i < 200; i++ {
		got := policy.NextDelay(0)
		if got < lo || got > hi {
			t.Fatalf("NextDelay(0) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestWithCondition(t *testing.T) {
	retryable := errors.New("retryable")
	policy := NewFixedDelay(3, time.Millisecond, WithCondition(func(err error) bool {
		return errors.Is(err, retryable)
	}))

	if !policy.ShouldRetry(retryable, 0) {
		t.Error("condition match should retry")
	}
	if policy.ShouldRetry(errors.New("other"), 0) {
		t.Error("condition miss should not retry")
	}
}

func TestNone(t *testing.T) {
	policy := None()

	if got := policy.MaxAttempts(); got != 1 {
		t.Errorf("MaxAttempts() = %d, want 1", got)
	}
	if policy.ShouldRetry(errors.New("transient"), 0) {
		t.Error("None() must never retry")
	}
	if got := policy.NextDelay(0); got != 0 {
		t.Errorf("NextDelay(0) = %v, want 0", got)
	}
}
