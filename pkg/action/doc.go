// Package action provides a framework-agnostic action dispatch pipeline:
// named actions, multiple prioritized handlers per action, and per-dispatch
// control flow through a controller.
//
// Key concepts:
//
// 1. Registration:
//   - Any number of handlers per action name, ordered by priority (higher
//     first) with registration order breaking ties
//   - Register returns an idempotent unregister function
//   - Explicit handler ids are rejected on collision; omitted ids are
//     generated from a timestamp plus a monotonic component
//
// 2. Dispatch:
//   - Each dispatch walks a snapshot of the handler list taken at dispatch
//     start, so registry mutation mid-flight never corrupts the walk
//   - Blocking handlers (the default) run strictly sequentially; a handler
//     registered with WithBlocking(false) is launched on its own goroutine
//     and raced past
//   - Concurrent dispatches of the same action are independent
//
// 3. Controller:
//   - Handlers receive a Controller to mutate the payload, abort the
//     pipeline, jump forward to a lower priority tier, or report a result
//   - Results aggregate in execution order on the dispatch outcome
//
// 4. Failure semantics:
//   - A blocking handler failure settles the dispatch as errored (or is
//     recorded and skipped under ErrorPolicyContinue)
//   - Background handler failures are delivered to a register-wide handler
//     and never crash a dispatch that already settled
//   - Handler panics are recovered and carry the captured stack
//   - Dispatch itself resolves with a status instead of failing; the
//     rejecting contract is the WithFailOnError opt-in
//
// Basic usage:
//
//	register := action.New()
//	defer register.Close()
//
//	unregister, err := register.Register("user.login",
//		func(ctx context.Context, payload any, ctrl *action.Controller) error {
//			ctrl.SetResult("session-created")
//			return nil
//		},
//		action.WithPriority(100),
//	)
//	if err != nil {
//		return err
//	}
//	defer unregister()
//
//	outcome, err := register.DispatchWithResult(ctx, "user.login", credentials)
//	if err != nil {
//		return err
//	}
//	if outcome.Success() {
//		use(outcome.Results)
//	}
//
// Handlers influence the pipeline through the controller:
//
//	func validate(ctx context.Context, payload any, ctrl *action.Controller) error {
//		if !ok(payload) {
//			ctrl.Abort("validation failed")
//			return nil
//		}
//		ctrl.ModifyPayload(func(current any) any {
//			return normalize(current)
//		})
//		return nil
//	}
//
// Thread safety: all public types are safe for concurrent use. Handlers of
// one dispatch share that dispatch's controller state; fire-and-forget
// handlers interact with it best-effort, exactly like any unawaited work.
package action
