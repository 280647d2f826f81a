package action

import (
	"context"
	"fmt"
)

// Typed adapts a payload-typed callback to the HandlerFunc shape. A dispatch
// whose payload is not assignable to T fails that handler with
// ErrPayloadType; the error policy then decides the dispatch's fate.
func Typed[T any](fn func(ctx context.Context, payload T, ctrl *Controller) error) HandlerFunc {
	return func(ctx context.Context, payload any, ctrl *Controller) error {
		typed, ok := payload.(T)
		if !ok {
			var zero T
			return fmt.Errorf("%w: want %T, got %T", ErrPayloadType, zero, payload)
		}
		return fn(ctx, typed, ctrl)
	}
}

// ResultsAs filters an outcome's results down to the values assignable to T,
// preserving execution order
func ResultsAs[T any](out *Outcome) []T {
	results := make([]T, 0, len(out.Results))
	for _, r := range out.Results {
		if v, ok := r.(T); ok {
			results = append(results, v)
		}
	}
	return results
}

// PayloadAs returns the outcome's final payload as T
func PayloadAs[T any](out *Outcome) (T, bool) {
	v, ok := out.Payload.(T)
	return v, ok
}
