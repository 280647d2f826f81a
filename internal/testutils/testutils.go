// Package testutils provides shared helpers for pipeline tests
package testutils

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

// TestContext returns a context cancelled automatically at test cleanup,
// bounded by the given timeout
func TestContext(t testing.TB, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// QuietLogger returns a logger that discards all output, keeping test runs
// readable
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Receive waits for a value on ch or fails the test after timeout
func Receive[T any](t testing.TB, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %s", msg)
		var zero T
		return zero
	}
}
