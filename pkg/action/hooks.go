package action

import (
	"context"
)

// PreDispatchHook runs before a dispatch begins executing handlers.
// Returning false cancels the dispatch; its outcome settles as aborted and
// no handler runs. Hooks run in registration order and the first refusal
// wins.
type PreDispatchHook func(ctx context.Context, action string, payload any) bool

// PostDispatchHook observes a settled outcome. Hooks run in registration
// order on the dispatching goroutine; they must not retain the outcome's
// payload beyond the call if handlers share it.
type PostDispatchHook func(ctx context.Context, outcome *Outcome)
