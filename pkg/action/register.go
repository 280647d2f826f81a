package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mineclover/context-action-go/pkg/types"
)

// ActionRegister is the public facade of the pipeline: handler registration,
// dispatch, abort-all and lifecycle. A register is safe for concurrent use;
// concurrent dispatches of the same action run independent snapshots and
// controllers.
type ActionRegister struct {
	cfg      *Config
	log      *slog.Logger
	clock    types.Clock
	registry *Registry

	mu   sync.Mutex
	live map[string]*liveDispatch

	backgroundWG sync.WaitGroup
	sem          chan struct{}
	stats        statsCounters

	closed    atomic.Bool
	closeOnce sync.Once
}

// liveDispatch tracks one in-flight dispatch so AbortAll can reach it
type liveDispatch struct {
	state  *dispatchState
	cancel context.CancelFunc
}

// New creates an ActionRegister with the given options
func New(opts ...types.Option[*Config]) *ActionRegister {
	cfg := types.ApplyOptions(DefaultConfig(), opts...)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}

	r := &ActionRegister{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "action-register"),
		clock:    cfg.Clock,
		registry: NewRegistry(),
		live:     make(map[string]*liveDispatch),
	}
	if cfg.MaxBackground > 0 {
		r.sem = make(chan struct{}, cfg.MaxBackground)
	}
	return r
}

// Register adds a handler for the action name and returns its idempotent
// unregister function. Registration is safe during active dispatches; a
// running dispatch keeps iterating the snapshot it started with.
func (r *ActionRegister) Register(action string, fn HandlerFunc, opts ...HandlerOption) (UnregisterFunc, error) {
	if r.closed.Load() {
		return nil, ErrRegisterClosed
	}
	return r.registry.Register(action, fn, opts...)
}

// Unregister removes the handler with the given id; no-op when absent
func (r *ActionRegister) Unregister(action, id string) {
	r.registry.Unregister(action, id)
}

// Handlers returns the action's handlers in execution order
func (r *ActionRegister) Handlers(action string) []HandlerInfo {
	return r.registry.Handlers(action)
}

// Actions returns the action names with at least one handler, sorted
func (r *ActionRegister) Actions() []string {
	return r.registry.Actions()
}

// Dispatch runs the action's pipeline to a terminal state. By default the
// returned error is nil even when the outcome aborted or errored; callers
// that care about the terminal state use DispatchWithResult, or opt into the
// rejecting contract with WithFailOnError. Dispatching an action with zero
// registered handlers is valid and settles as completed.
func (r *ActionRegister) Dispatch(ctx context.Context, action string, payload any, opts ...DispatchOption) error {
	_, err := r.DispatchWithResult(ctx, action, payload, opts...)
	return err
}

// DispatchWithResult runs the pipeline like Dispatch and returns the settled
// outcome with the aggregated handler results
func (r *ActionRegister) DispatchWithResult(ctx context.Context, action string, payload any, opts ...DispatchOption) (*Outcome, error) {
	if r.closed.Load() {
		return nil, ErrRegisterClosed
	}

	var dopts dispatchOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&dopts)
		}
	}

	r.stats.dispatched.Add(1)
	id := uuid.NewString()
	dlog := r.log.With("action", action, "dispatch_id", id)
	start := r.clock.Now()

	snapshot := r.registry.snapshot(action)
	d := newDispatchState(id, action, payload, dlog, len(snapshot))

	for _, hook := range r.cfg.PreDispatchHooks {
		if !hook(ctx, action, payload) {
			d.abort("rejected by pre-dispatch hook", nil)
			out := r.buildOutcome(d, start, nil)
			r.stats.recordOutcome(out.Status)
			r.runPostHooks(ctx, out)
			return out, dispatchError(&dopts, out)
		}
	}

	dctx := ctx
	var cancel context.CancelFunc
	if dopts.timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, dopts.timeout)
	} else {
		dctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.trackDispatch(id, d, cancel)
	defer r.untrackDispatch(id)

	out := r.runDispatch(dctx, d, snapshot, start)
	r.stats.recordOutcome(out.Status)
	r.runPostHooks(ctx, out)
	return out, dispatchError(&dopts, out)
}

// AbortAll aborts in-flight dispatches: every one when called with no
// arguments, otherwise only those of the given action names. Future
// dispatches are unaffected. Best-effort: a blocking handler already in
// flight sees its context cancelled, and background handlers already
// launched run to completion.
func (r *ActionRegister) AbortAll(actions ...string) {
	var filter map[string]struct{}
	if len(actions) > 0 {
		filter = make(map[string]struct{}, len(actions))
		for _, a := range actions {
			filter[a] = struct{}{}
		}
	}

	r.mu.Lock()
	targets := make([]*liveDispatch, 0, len(r.live))
	for _, ld := range r.live {
		if filter != nil {
			if _, ok := filter[ld.state.action]; !ok {
				continue
			}
		}
		targets = append(targets, ld)
	}
	r.mu.Unlock()

	for _, ld := range targets {
		ld.state.abort("aborted by AbortAll", nil)
		ld.cancel()
	}
	if len(targets) > 0 {
		r.log.Debug("abort signal sent", "dispatches", len(targets))
	}
}

// Shutdown stops accepting work, aborts in-flight dispatches and waits for
// background handlers until ctx expires
func (r *ActionRegister) Shutdown(ctx context.Context) error {
	r.closed.Store(true)
	r.AbortAll()

	done := make(chan struct{})
	go func() {
		r.backgroundWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Debug("shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}
}

// Close stops the register immediately without draining background work.
// Safe to call more than once.
func (r *ActionRegister) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.AbortAll()
	})
	return nil
}

// Stats returns a point-in-time snapshot of register activity
func (r *ActionRegister) Stats() Stats {
	r.mu.Lock()
	active := len(r.live)
	r.mu.Unlock()
	return r.stats.snapshot(active)
}

func (r *ActionRegister) trackDispatch(id string, d *dispatchState, cancel context.CancelFunc) {
	r.mu.Lock()
	r.live[id] = &liveDispatch{state: d, cancel: cancel}
	r.mu.Unlock()
}

func (r *ActionRegister) untrackDispatch(id string) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

func (r *ActionRegister) runPostHooks(ctx context.Context, out *Outcome) {
	for _, hook := range r.cfg.PostDispatchHooks {
		hook(ctx, out)
	}
}

// notifyBackgroundError delivers a background failure to the configured
// handler, falling back to the log. The handler call is recovered so a
// faulty observer cannot take the engine down.
func (r *ActionRegister) notifyBackgroundError(bgErr *BackgroundHandlerError) {
	if handler := r.cfg.BackgroundErrorHandler; handler != nil {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("background error handler panicked", "panic", rec)
			}
		}()
		handler(bgErr)
		return
	}
	r.log.Error("background handler failed",
		"action", bgErr.Action,
		"handler_id", bgErr.HandlerID,
		"dispatch_id", bgErr.DispatchID,
		"error", bgErr.Cause)
}

// dispatchError maps an outcome to the dispatch call's error return under
// the chosen contract
func dispatchError(opts *dispatchOptions, out *Outcome) error {
	if !opts.failOnError {
		return nil
	}
	switch out.Status {
	case StatusErrored:
		return out.Err
	case StatusAborted:
		if out.Err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDispatchAborted, out.AbortReason, out.Err)
		}
		return fmt.Errorf("%w: %s", ErrDispatchAborted, out.AbortReason)
	default:
		return nil
	}
}
