package action

import (
	"sort"
	"sync"
)

// Registry maintains, per action name, the canonical ordered handler list.
// Every mutation publishes a freshly sorted slice and never touches a
// published one, so a slice handed out as a snapshot stays valid while
// registrations and removals continue concurrently.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]*handlerEntry
	seq      uint64
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]*handlerEntry),
	}
}

// Register inserts a handler for the action and returns its idempotent
// unregister function. The list is kept sorted by (priority desc,
// registration order asc). An explicit id colliding with an existing one
// fails with DuplicateHandlerIDError and leaves the registry untouched.
func (r *Registry) Register(action string, fn HandlerFunc, opts ...HandlerOption) (UnregisterFunc, error) {
	if action == "" {
		return nil, &InvalidHandlerConfigError{Field: "action", Reason: "empty action name"}
	}
	if fn == nil {
		return nil, &InvalidHandlerConfigError{Field: "callback", Reason: "nil handler func"}
	}

	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.timeout < 0 {
		return nil, &InvalidHandlerConfigError{Field: "timeout", Reason: "negative duration"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.handlers[action]
	id := cfg.id
	if id == "" {
		id = newHandlerID()
	} else {
		for _, e := range list {
			if e.id == id {
				return nil, &DuplicateHandlerIDError{Action: action, ID: id}
			}
		}
	}

	r.seq++
	entry := &handlerEntry{
		id:        id,
		fn:        fn,
		priority:  cfg.priority,
		blocking:  cfg.blocking,
		tags:      cfg.tags,
		category:  cfg.category,
		once:      cfg.once,
		condition: cfg.condition,
		timeout:   cfg.timeout,
		retry:     cfg.retry,
		seq:       r.seq,
	}

	next := make([]*handlerEntry, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, entry)
	sortEntries(next)
	r.handlers[action] = next

	return func() { r.removeEntry(action, entry) }, nil
}

// Unregister removes the handler with the given id; no-op when absent
func (r *Registry) Unregister(action, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.handlers[action] {
		if e.id == id {
			r.removeLocked(action, e)
			return
		}
	}
}

// Handlers returns a read-only view of the action's handlers in execution
// order. Mutating the returned slice does not affect the registry.
func (r *Registry) Handlers(action string) []HandlerInfo {
	r.mu.RLock()
	list := r.handlers[action]
	r.mu.RUnlock()

	infos := make([]HandlerInfo, 0, len(list))
	for _, e := range list {
		infos = append(infos, e.info())
	}
	return infos
}

// Count returns the number of handlers registered for the action
func (r *Registry) Count(action string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[action])
}

// Actions returns the action names with at least one handler, sorted
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshot returns the action's current handler slice. Published slices are
// immutable, so the caller may iterate without holding the lock.
func (r *Registry) snapshot(action string) []*handlerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[action]
}

// removeEntry removes exactly this entry; safe to call repeatedly
func (r *Registry) removeEntry(action string, target *handlerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(action, target)
}

func (r *Registry) removeLocked(action string, target *handlerEntry) {
	list := r.handlers[action]
	next := make([]*handlerEntry, 0, len(list))
	for _, e := range list {
		if e != target {
			next = append(next, e)
		}
	}
	if len(next) == len(list) {
		return
	}
	if len(next) == 0 {
		delete(r.handlers, action)
		return
	}
	r.handlers[action] = next
}

// sortEntries orders by priority descending, registration sequence ascending.
// The sequence makes the comparison a total order, so equal-priority handlers
// keep their registration order across any number of re-sorts.
func sortEntries(entries []*handlerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
}
