package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineclover/context-action-go/internal/testutils"
)

func newTestDispatch(t *testing.T, payload any, slots int) *dispatchState {
	t.Helper()
	return newDispatchState("dispatch-1", "user.update", payload, testutils.QuietLogger(), slots)
}

func TestDispatchStatusString(t *testing.T) {
	tests := []struct {
		status   DispatchStatus
		want     string
		terminal bool
	}{
		{StatusPending, "Pending", false},
		{StatusRunning, "Running", false},
		{StatusCompleted, "Completed", true},
		{StatusAborted, "Aborted", true},
		{StatusErrored, "Errored", true},
		{DispatchStatus(42), "Unknown", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
		assert.Equal(t, tt.terminal, tt.status.Terminal())
	}
}

func TestControllerAbortFirstWins(t *testing.T) {
	d := newTestDispatch(t, nil, 2)
	require.True(t, d.transition(StatusPending, StatusRunning))

	first := &Controller{d: d, slot: 0}
	second := &Controller{d: d, slot: 1}

	first.Abort("validation failed")
	second.Abort("too late")

	assert.Equal(t, StatusAborted, d.Status())
	assert.Equal(t, "validation failed", first.AbortReason())
	assert.Equal(t, "validation failed", second.AbortReason())
}

func TestControllerAbortWithError(t *testing.T) {
	d := newTestDispatch(t, nil, 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	detail := errors.New("quota exceeded")
	ctrl := &Controller{d: d, slot: 0}
	ctrl.AbortWithError("rejected", detail)

	reason, err := d.settledDetail()
	assert.Equal(t, "rejected", reason)
	assert.Same(t, detail, err)
}

func TestControllerAbortBeforeRunning(t *testing.T) {
	// a dispatch cancelled before its first handler settles from Pending
	d := newTestDispatch(t, nil, 0)

	require.True(t, d.abort("cancelled early", nil))
	assert.Equal(t, StatusAborted, d.Status())

	// the status machine refuses to leave a terminal state
	assert.False(t, d.transition(StatusPending, StatusRunning))
	assert.False(t, d.fail(errors.New("ignored")))
}

func TestControllerModifyPayloadLastWins(t *testing.T) {
	d := newTestDispatch(t, "original", 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	ctrl := &Controller{d: d, slot: 0}
	assert.Equal(t, "original", ctrl.GetPayload())

	ctrl.ModifyPayload(func(current any) any {
		return current.(string) + "-first"
	})
	ctrl.ModifyPayload(func(current any) any {
		return current.(string) + "-second"
	})

	assert.Equal(t, "original-first-second", ctrl.GetPayload())
}

func TestControllerResultSlots(t *testing.T) {
	d := newTestDispatch(t, nil, 3)
	require.True(t, d.transition(StatusPending, StatusRunning))

	first := &Controller{d: d, slot: 0}
	third := &Controller{d: d, slot: 2}

	// slots collapse in snapshot order no matter who reports first
	third.SetResult("from-third")
	first.SetResult("from-first")

	assert.Equal(t, []any{"from-first", "from-third"}, first.Results())

	// a reported nil is a real result, not an empty slot
	second := &Controller{d: d, slot: 1}
	second.SetResult(nil)
	assert.Equal(t, []any{"from-first", nil, "from-third"}, first.Results())
}

func TestControllerSetResultOverwrites(t *testing.T) {
	d := newTestDispatch(t, nil, 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	ctrl := &Controller{d: d, slot: 0}
	ctrl.SetResult("draft")
	ctrl.SetResult("final")

	assert.Equal(t, []any{"final"}, ctrl.Results())
}

func TestControllerSetResultOutOfRange(t *testing.T) {
	d := newTestDispatch(t, nil, 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	d.setResult(-1, "below")
	d.setResult(5, "beyond")

	assert.Empty(t, d.results())
}

func TestControllerJumpConsumedOnce(t *testing.T) {
	d := newTestDispatch(t, nil, 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	ctrl := &Controller{d: d, slot: 0}
	ctrl.JumpToPriority(10)

	target, ok := d.takeJump()
	require.True(t, ok)
	assert.Equal(t, 10, target)

	_, ok = d.takeJump()
	assert.False(t, ok)
}

func TestControllerJumpLastRequestWins(t *testing.T) {
	d := newTestDispatch(t, nil, 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	ctrl := &Controller{d: d, slot: 0}
	ctrl.JumpToPriority(50)
	ctrl.JumpToPriority(5)

	target, ok := d.takeJump()
	require.True(t, ok)
	assert.Equal(t, 5, target)
}

func TestControllerMutationsAfterSettlement(t *testing.T) {
	d := newTestDispatch(t, "payload", 1)
	require.True(t, d.transition(StatusPending, StatusRunning))

	ctrl := &Controller{d: d, slot: 0}
	ctrl.SetResult("kept")
	ctrl.Abort("done")

	ctrl.SetResult("dropped")
	ctrl.ModifyPayload(func(any) any { return "dropped" })
	ctrl.JumpToPriority(1)

	assert.Equal(t, []any{"kept"}, ctrl.Results())
	assert.Equal(t, "payload", ctrl.GetPayload())
	_, ok := d.takeJump()
	assert.False(t, ok)
}

func TestControllerAccessors(t *testing.T) {
	d := newTestDispatch(t, 7, 0)
	ctrl := &Controller{d: d, slot: 0}

	assert.Equal(t, "user.update", ctrl.Action())
	assert.Equal(t, "dispatch-1", ctrl.DispatchID())
	assert.Equal(t, StatusPending, ctrl.Status())
	assert.Equal(t, 7, ctrl.GetPayload())
	assert.Empty(t, ctrl.AbortReason())
	assert.Empty(t, ctrl.Results())

	// Next is advisory only
	ctrl.Next()
	assert.Equal(t, StatusPending, ctrl.Status())
}

func TestDispatchStateFail(t *testing.T) {
	d := newTestDispatch(t, nil, 0)
	require.True(t, d.transition(StatusPending, StatusRunning))

	cause := errors.New("handler exploded")
	require.True(t, d.fail(cause))
	assert.Equal(t, StatusErrored, d.Status())

	_, err := d.settledDetail()
	assert.Same(t, cause, err)

	// fail after settlement is refused, first error kept
	assert.False(t, d.fail(errors.New("second")))
	_, err = d.settledDetail()
	assert.Same(t, cause, err)
}
