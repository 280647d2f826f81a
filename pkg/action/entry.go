package action

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mineclover/context-action-go/pkg/retry"
)

// HandlerFunc is the callback shape every handler implements. The payload is
// the dispatch's current value at invocation time; the controller is the only
// channel for influencing control flow and reporting results.
type HandlerFunc func(ctx context.Context, payload any, ctrl *Controller) error

// UnregisterFunc removes the handler it was returned for. Calling it more
// than once is a no-op.
type UnregisterFunc func()

// handlerEntry is one registered handler. Entries are immutable after
// registration except for the fired flag of once-handlers.
type handlerEntry struct {
	id        string
	fn        HandlerFunc
	priority  int
	blocking  bool
	tags      []string
	category  string
	once      bool
	condition func(payload any) bool
	timeout   time.Duration
	retry     retry.Policy

	// seq is the registration sequence number, the tie-break for equal
	// priorities; lower seq runs first
	seq uint64

	// fired is set when a once-handler claims its single execution
	fired atomic.Bool
}

// handlerConfig collects the options applied during registration
type handlerConfig struct {
	id        string
	priority  int
	blocking  bool
	tags      []string
	category  string
	once      bool
	condition func(payload any) bool
	timeout   time.Duration
	retry     retry.Policy
}

func defaultHandlerConfig() handlerConfig {
	// handlers sequence by default; fire-and-forget is the opt-in
	return handlerConfig{blocking: true}
}

// HandlerOption configures one handler at registration time
type HandlerOption func(*handlerConfig)

// WithPriority sets the execution priority; higher runs earlier. Equal
// priorities run in registration order.
func WithPriority(priority int) HandlerOption {
	return func(c *handlerConfig) {
		c.priority = priority
	}
}

// WithID sets an explicit handler id. Ids must be unique within one action's
// handler list; collisions fail the registration.
func WithID(id string) HandlerOption {
	return func(c *handlerConfig) {
		c.id = id
	}
}

// WithBlocking controls whether the engine awaits the handler before moving
// to the next one. Blocking is the default; WithBlocking(false) makes the
// handler fire-and-forget on its own goroutine.
func WithBlocking(blocking bool) HandlerOption {
	return func(c *handlerConfig) {
		c.blocking = blocking
	}
}

// WithTags attaches classification tags; they have no execution effect
func WithTags(tags ...string) HandlerOption {
	return func(c *handlerConfig) {
		c.tags = append(c.tags, tags...)
	}
}

// WithCategory attaches a classification category; no execution effect
func WithCategory(category string) HandlerOption {
	return func(c *handlerConfig) {
		c.category = category
	}
}

// WithOnce unregisters the handler after its first execution. The claim is
// atomic, so concurrent dispatches fire it at most once.
func WithOnce() HandlerOption {
	return func(c *handlerConfig) {
		c.once = true
	}
}

// WithCondition skips the handler for dispatches whose current payload does
// not satisfy the predicate. A skipped handler reports no result.
func WithCondition(cond func(payload any) bool) HandlerOption {
	return func(c *handlerConfig) {
		c.condition = cond
	}
}

// WithHandlerTimeout bounds one invocation of the handler. On expiry the
// handler's context is cancelled and the invocation fails with
// ErrHandlerTimeout.
func WithHandlerTimeout(d time.Duration) HandlerOption {
	return func(c *handlerConfig) {
		c.timeout = d
	}
}

// WithRetry retries failed invocations of this handler per the policy,
// waiting out the policy's delays on the register's clock
func WithRetry(policy retry.Policy) HandlerOption {
	return func(c *handlerConfig) {
		c.retry = policy
	}
}

// newHandlerID generates a unique handler id from a timestamp plus a
// monotonic component, so ids created in the same millisecond still sort
// in creation order
func newHandlerID() string {
	return "handler-" + ulid.Make().String()
}

// HandlerInfo is the read-only public view of a registered handler
type HandlerInfo struct {
	// ID is the handler's unique id within its action
	ID string

	// Priority is the execution priority, higher first
	Priority int

	// Blocking reports whether the engine awaits this handler
	Blocking bool

	// Tags is the handler's classification tags
	Tags []string

	// Category is the handler's classification category
	Category string
}

func (e *handlerEntry) info() HandlerInfo {
	tags := make([]string, len(e.tags))
	copy(tags, e.tags)
	return HandlerInfo{
		ID:       e.id,
		Priority: e.priority,
		Blocking: e.blocking,
		Tags:     tags,
		Category: e.category,
	}
}
