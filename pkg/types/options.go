package types

// Option is a generic functional option applied to a configurable value
type Option[T any] func(T)

// ApplyOptions applies a list of options to a value in order
func ApplyOptions[T any](target T, opts ...Option[T]) T {
	for _, opt := range opts {
		if opt != nil {
			opt(target)
		}
	}
	return target
}
