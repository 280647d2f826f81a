package action

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// dispatchState is the shared per-dispatch core behind every Controller view.
// It owns the payload, the status machine, the abort detail, the pending
// priority jump and the result slots.
type dispatchState struct {
	id     string
	action string
	log    *slog.Logger

	status atomic.Int32

	mu          sync.Mutex
	payload     any
	abortReason string
	err         error
	jump        *int
	slots       []resultSlot
}

// resultSlot distinguishes "no result reported" from a reported nil
type resultSlot struct {
	set   bool
	value any
}

func newDispatchState(id, action string, payload any, log *slog.Logger, slotCount int) *dispatchState {
	return &dispatchState{
		id:      id,
		action:  action,
		log:     log,
		payload: payload,
		slots:   make([]resultSlot, slotCount),
	}
}

// Status returns the dispatch status
func (d *dispatchState) Status() DispatchStatus {
	return DispatchStatus(d.status.Load())
}

// transition moves the status machine from one state to another atomically
func (d *dispatchState) transition(from, to DispatchStatus) bool {
	return d.status.CompareAndSwap(int32(from), int32(to))
}

// abort settles the dispatch as aborted. The first call wins; later calls
// and calls after any other terminal state are no-ops.
func (d *dispatchState) abort(reason string, detail error) bool {
	if !d.transition(StatusRunning, StatusAborted) && !d.transition(StatusPending, StatusAborted) {
		return false
	}
	d.mu.Lock()
	d.abortReason = reason
	d.err = detail
	d.mu.Unlock()
	d.log.Debug("dispatch aborted", "reason", reason)
	return true
}

// fail settles the dispatch as errored with the given detail
func (d *dispatchState) fail(err error) bool {
	if !d.transition(StatusRunning, StatusErrored) {
		return false
	}
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	return true
}

func (d *dispatchState) getPayload() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.payload
}

// modifyPayload replaces the payload with fn(current). The updater runs
// outside the lock so it may freely use the controller; concurrent updates
// from fire-and-forget handlers race, exactly as unawaited work does.
func (d *dispatchState) modifyPayload(fn func(any) any) {
	if fn == nil {
		return
	}
	if d.Status().Terminal() {
		d.log.Debug("payload modification ignored after dispatch settled")
		return
	}
	next := fn(d.getPayload())
	d.mu.Lock()
	d.payload = next
	d.mu.Unlock()
}

func (d *dispatchState) requestJump(priority int) {
	if d.Status().Terminal() {
		return
	}
	d.mu.Lock()
	v := priority
	d.jump = &v
	d.mu.Unlock()
}

// takeJump consumes the pending jump target, if any
func (d *dispatchState) takeJump() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.jump == nil {
		return 0, false
	}
	v := *d.jump
	d.jump = nil
	return v, true
}

func (d *dispatchState) setResult(slot int, v any) {
	if d.Status().Terminal() {
		d.log.Debug("handler result ignored after dispatch settled")
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < 0 || slot >= len(d.slots) {
		return
	}
	d.slots[slot] = resultSlot{set: true, value: v}
}

// results collapses the filled slots into a list ordered by snapshot
// position, which equals execution order for the blocking chain
func (d *dispatchState) results() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]any, 0, len(d.slots))
	for _, s := range d.slots {
		if s.set {
			out = append(out, s.value)
		}
	}
	return out
}

func (d *dispatchState) settledDetail() (reason string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.abortReason, d.err
}

// Controller is the single channel by which a handler influences pipeline
// control flow and reports results. Each handler invocation receives its own
// view bound to that handler's result slot; all views of one dispatch share
// the payload, status and abort state.
//
// A controller is live for the duration of its dispatch. Once the dispatch
// settles, mutating operations become no-ops.
type Controller struct {
	d    *dispatchState
	slot int
}

// Next is an advisory marker that the handler approves continuing to the
// next handler. Returning nil from the handler means the same thing; an
// abort overrides either.
func (c *Controller) Next() {}

// Abort terminates the pipeline after the current handler returns. No
// subsequent handler runs. The first abort wins; repeated calls keep the
// first reason.
func (c *Controller) Abort(reason string) {
	c.d.abort(reason, nil)
}

// AbortWithError aborts like Abort and attaches an error detail that
// surfaces on the outcome
func (c *Controller) AbortWithError(reason string, err error) {
	c.d.abort(reason, err)
}

// ModifyPayload replaces the current payload with fn(current). Subsequent
// handlers receive the new value. Callable any number of times within one
// handler; the last call wins.
func (c *Controller) ModifyPayload(fn func(current any) any) {
	c.d.modifyPayload(fn)
}

// GetPayload returns the current payload, reflecting every modification made
// by earlier handlers
func (c *Controller) GetPayload() any {
	return c.d.getPayload()
}

// JumpToPriority resumes execution at the first not-yet-run handler whose
// priority is less than or equal to the given value, skipping the handlers
// in between. If no remaining handler qualifies the pipeline completes.
// Jumps toward already-executed priority tiers are ignored and logged.
func (c *Controller) JumpToPriority(priority int) {
	c.d.requestJump(priority)
}

// SetResult records the value as this handler's contribution to the
// outcome's result list. It does not affect control flow. Repeated calls
// overwrite this handler's previous value.
func (c *Controller) SetResult(v any) {
	c.d.setResult(c.slot, v)
}

// Results returns the values reported so far, in execution order
func (c *Controller) Results() []any {
	return c.d.results()
}

// Status returns the dispatch's current status
func (c *Controller) Status() DispatchStatus {
	return c.d.Status()
}

// AbortReason returns the reason of the winning abort, or the empty string
func (c *Controller) AbortReason() string {
	reason, _ := c.d.settledDetail()
	return reason
}

// Action returns the dispatched action name
func (c *Controller) Action() string {
	return c.d.action
}

// DispatchID returns the unique id of this dispatch
func (c *Controller) DispatchID() string {
	return c.d.id
}
