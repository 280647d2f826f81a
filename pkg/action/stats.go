package action

import (
	"sync/atomic"
)

// Stats is a point-in-time snapshot of register activity
type Stats struct {
	// Dispatched counts dispatch calls accepted by the register
	Dispatched int64

	// Completed counts dispatches settled as completed
	Completed int64

	// Aborted counts dispatches settled as aborted
	Aborted int64

	// Errored counts dispatches settled as errored
	Errored int64

	// HandlersExecuted counts handler invocations, blocking and background
	HandlersExecuted int64

	// BackgroundLaunched counts fire-and-forget handler launches
	BackgroundLaunched int64

	// BackgroundErrors counts failures reported by background handlers
	BackgroundErrors int64

	// ActiveDispatches is the number of dispatches in flight right now
	ActiveDispatches int
}

// statsCounters is the live atomic backing of Stats
type statsCounters struct {
	dispatched         atomic.Int64
	completed          atomic.Int64
	aborted            atomic.Int64
	errored            atomic.Int64
	handlersExecuted   atomic.Int64
	backgroundLaunched atomic.Int64
	backgroundErrors   atomic.Int64
}

func (c *statsCounters) snapshot(active int) Stats {
	return Stats{
		Dispatched:         c.dispatched.Load(),
		Completed:          c.completed.Load(),
		Aborted:            c.aborted.Load(),
		Errored:            c.errored.Load(),
		HandlersExecuted:   c.handlersExecuted.Load(),
		BackgroundLaunched: c.backgroundLaunched.Load(),
		BackgroundErrors:   c.backgroundErrors.Load(),
		ActiveDispatches:   active,
	}
}

func (c *statsCounters) recordOutcome(status DispatchStatus) {
	switch status {
	case StatusCompleted:
		c.completed.Add(1)
	case StatusAborted:
		c.aborted.Add(1)
	case StatusErrored:
		c.errored.Add(1)
	}
}
