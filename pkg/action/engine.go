package action

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// runDispatch drives one dispatch through the handler snapshot, honoring
// blocking semantics and controller signals. Blocking handlers run strictly
// sequentially in snapshot order; fire-and-forget handlers are launched and
// raced past. The walk stops as soon as the status leaves StatusRunning,
// whether through an abort, a failure or context cancellation.
func (r *ActionRegister) runDispatch(ctx context.Context, d *dispatchState, snapshot []*handlerEntry, start time.Time) *Outcome {
	d.transition(StatusPending, StatusRunning)
	d.log.Debug("dispatch started", "handlers", len(snapshot))

	var handlerErrs []error

	cursor := 0
	for cursor < len(snapshot) && d.Status() == StatusRunning {
		if err := ctx.Err(); err != nil {
			d.abort("context done", err)
			break
		}

		entry := snapshot[cursor]

		if entry.condition != nil && !entry.condition(d.getPayload()) {
			d.log.Debug("handler skipped by condition", "handler_id", entry.id)
			cursor++
			continue
		}

		if entry.once {
			if !entry.fired.CompareAndSwap(false, true) {
				cursor++
				continue
			}
			r.registry.removeEntry(d.action, entry)
		}

		ctrl := &Controller{d: d, slot: cursor}

		if !entry.blocking {
			r.launchBackground(ctx, d, entry, ctrl)
		} else {
			d.log.Debug("invoking handler", "handler_id", entry.id, "priority", entry.priority)
			r.stats.handlersExecuted.Add(1)

			if err := r.invokeHandler(ctx, d, entry, ctrl); err != nil {
				// control signals from a failed handler do not apply
				d.takeJump()

				// a dead dispatch context settles as aborted, not as a
				// handler failure
				if ctx.Err() != nil {
					d.abort("context done", ctx.Err())
					break
				}

				execErr := wrapHandlerError(d.action, entry, err)
				if r.cfg.ErrorPolicy == ErrorPolicyContinue && d.Status() == StatusRunning {
					d.log.Warn("handler failed, continuing",
						"handler_id", entry.id, "error", execErr)
					handlerErrs = append(handlerErrs, execErr)
					cursor++
					continue
				}
				d.fail(execErr)
				break
			}
		}

		if d.Status() != StatusRunning {
			break
		}
		if target, ok := d.takeJump(); ok {
			cursor = nextCursor(d, snapshot, cursor, target)
		} else {
			cursor++
		}
	}

	d.transition(StatusRunning, StatusCompleted)

	out := r.buildOutcome(d, start, handlerErrs)
	d.log.Debug("dispatch settled",
		"status", out.Status.String(), "duration", out.Duration, "results", len(out.Results))
	return out
}

// nextCursor applies a jump request: resume at the first not-yet-run entry
// whose priority is at most target, or past the end when none qualifies.
// A target above the current entry's priority points at tiers that already
// ran, so it is ignored.
func nextCursor(d *dispatchState, snapshot []*handlerEntry, cursor, target int) int {
	current := snapshot[cursor]
	if target > current.priority {
		d.log.Warn("ignoring jump toward an already-passed priority",
			"current_priority", current.priority, "target_priority", target)
		return cursor + 1
	}
	for i := cursor + 1; i < len(snapshot); i++ {
		if snapshot[i].priority <= target {
			if skipped := i - cursor - 1; skipped > 0 {
				d.log.Debug("priority jump", "skipped", skipped, "target_priority", target)
			}
			return i
		}
	}
	return len(snapshot)
}

// invokeHandler runs one handler turn, applying its retry policy when set
func (r *ActionRegister) invokeHandler(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller) error {
	if entry.retry == nil {
		return r.invokeOnce(ctx, d, entry, ctrl)
	}
	return r.invokeWithRetry(ctx, d, entry, ctrl)
}

// invokeWithRetry re-invokes a failing handler per its policy, waiting out
// the delays on the register's clock
func (r *ActionRegister) invokeWithRetry(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller) error {
	policy := entry.retry
	var lastErr error

	maxAttempts := policy.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := r.invokeOnce(ctx, d, entry, ctrl)
		if err == nil {
			return nil
		}
		lastErr = err

		// panics indicate bugs, not transient failures
		var panicErr *HandlerPanicError
		if errors.As(err, &panicErr) {
			return err
		}
		if !policy.ShouldRetry(err, attempt) {
			break
		}

		if delay := policy.NextDelay(attempt); delay > 0 {
			select {
			case <-r.clock.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		d.log.Debug("retrying handler", "handler_id", entry.id, "attempt", attempt+2)
	}

	return lastErr
}

// invokeOnce runs a single attempt, bounded by the handler's timeout or the
// register-wide default
func (r *ActionRegister) invokeOnce(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller) error {
	timeout := entry.timeout
	if timeout == 0 {
		timeout = r.cfg.DefaultHandlerTimeout
	}
	if timeout > 0 {
		return r.invokeWithTimeout(ctx, d, entry, ctrl, timeout)
	}
	return callHandler(ctx, d, entry, ctrl)
}

// invokeWithTimeout runs the handler on its own goroutine and bounds the
// wait with a clock timer, so mock clocks drive timeouts in tests. On
// expiry the handler's context is cancelled; the handler itself keeps its
// goroutine until it honors the cancellation.
func (r *ActionRegister) invokeWithTimeout(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller, timeout time.Duration) error {
	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callHandler(hctx, d, entry, ctrl)
	}()

	timer := r.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C():
		cancel()
		return fmt.Errorf("handler %q: %w after %v", entry.id, ErrHandlerTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// callHandler runs the callback with panic recovery
func callHandler(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerPanicError{
				Action:    d.action,
				HandlerID: entry.id,
				Value:     rec,
				Stack:     debug.Stack(),
			}
		}
	}()
	return entry.fn(ctx, d.getPayload(), ctrl)
}

// launchBackground starts a fire-and-forget handler. It runs with the
// dispatch's values but without its cancellation: a settled dispatch must
// not retract work already handed to the background.
func (r *ActionRegister) launchBackground(ctx context.Context, d *dispatchState, entry *handlerEntry, ctrl *Controller) {
	bctx := context.WithoutCancel(ctx)
	r.backgroundWG.Add(1)
	r.stats.backgroundLaunched.Add(1)
	d.log.Debug("handler launched in background", "handler_id", entry.id, "priority", entry.priority)

	go func() {
		defer r.backgroundWG.Done()

		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}

		r.stats.handlersExecuted.Add(1)
		if err := r.invokeHandler(bctx, d, entry, ctrl); err != nil {
			r.stats.backgroundErrors.Add(1)
			r.notifyBackgroundError(&BackgroundHandlerError{
				Action:     d.action,
				HandlerID:  entry.id,
				DispatchID: d.id,
				Cause:      err,
			})
		}
	}()
}

// wrapHandlerError normalizes a handler failure for the outcome; recovered
// panics already carry their own context
func wrapHandlerError(action string, entry *handlerEntry, err error) error {
	var panicErr *HandlerPanicError
	if errors.As(err, &panicErr) {
		return err
	}
	return &HandlerExecutionError{Action: action, HandlerID: entry.id, Cause: err}
}

// buildOutcome snapshots the dispatch state into its settled outcome
func (r *ActionRegister) buildOutcome(d *dispatchState, start time.Time, handlerErrs []error) *Outcome {
	reason, err := d.settledDetail()
	return &Outcome{
		DispatchID:    d.id,
		Action:        d.action,
		Status:        d.Status(),
		Payload:       d.getPayload(),
		Results:       d.results(),
		AbortReason:   reason,
		Err:           err,
		HandlerErrors: handlerErrs,
		Duration:      r.clock.Since(start),
	}
}
