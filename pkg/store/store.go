// Package store provides a generic observable value container. Stores are
// the external collaborators action handlers read and write; the engine
// itself never touches them.
package store

import (
	"sort"
	"sync"
)

// Store holds a single value of type T with synchronous, immediately
// observable writes and subscription-based change notification. Safe for
// concurrent use from any number of handlers and dispatches.
type Store[T any] struct {
	name string

	mu      sync.RWMutex
	value   T
	subs    map[uint64]func(T)
	nextSub uint64
}

// New creates a store with the given name and initial value
func New[T any](name string, initial T) *Store[T] {
	return &Store[T]{
		name:  name,
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Name returns the store's name
func (s *Store[T]) Name() string {
	return s.name
}

// GetValue returns the current value. Always fresh: a value written by an
// earlier handler in the same blocking chain is visible here.
func (s *Store[T]) GetValue() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// SetValue replaces the value and notifies subscribers synchronously
func (s *Store[T]) SetValue(v T) {
	s.mu.Lock()
	s.value = v
	subs := s.orderedSubsLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update atomically replaces the value with fn(current) and notifies
// subscribers synchronously. The updater runs under the store's lock and
// must not call back into the store.
func (s *Store[T]) Update(fn func(current T) T) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.value = fn(s.value)
	v := s.value
	subs := s.orderedSubsLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers a change listener and returns its idempotent
// unsubscribe function. Listeners run synchronously on the writer's
// goroutine, in subscription order.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SubscriberCount returns the number of active subscriptions
func (s *Store[T]) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// orderedSubsLocked returns subscribers in subscription order; ids are
// monotonic so sorting them recovers registration order
func (s *Store[T]) orderedSubsLocked() []func(T) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}
