package driver

import (
	"context"

	"github.com/looplab/fsm"

	fsmutil "github.com/autopeer-io/fleetpeer/internal/pkg/util/fsm"
)

// Lifecycle states of a Reporter.
const (
	StateIdle     = "idle"
	StateTracking = "tracking"
	StateStopped  = "stopped"
	StateDenied   = "denied"
)

const (
	EventStart = "start"
	EventDeny  = "deny"
	EventStop  = "stop"
)

func (r *Reporter) newLifecycle() *fsm.FSM {
	events := fsm.Events{
		{Name: EventStart, Src: []string{StateIdle, StateStopped, StateDenied}, Dst: StateTracking},
		{Name: EventDeny, Src: []string{StateIdle, StateStopped, StateDenied, StateTracking}, Dst: StateDenied},
		{Name: EventStop, Src: []string{StateTracking}, Dst: StateStopped},
	}

	callbacks := fsm.Callbacks{
		"enter_" + StateTracking: fsmutil.WrapEvent(r.onTracking),
		"enter_" + StateDenied:   fsmutil.WrapEvent(r.onDenied),
		"enter_state": func(_ context.Context, e *fsm.Event) {
			r.logger.Info("Reporter state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	}

	return fsm.NewFSM(StateIdle, events, callbacks)
}

// onTracking clears the error left by a previous run or a denial, and the
// sample of a previous run so heartbeats never resend it.
func (r *Reporter) onTracking(_ context.Context, _ *fsm.Event) error {
	r.mu.Lock()
	r.lastErr = nil
	r.last = nil
	r.mu.Unlock()
	return nil
}

func (r *Reporter) onDenied(_ context.Context, _ *fsm.Event) error {
	r.mu.Lock()
	r.lastErr = ErrPermissionDenied
	r.mu.Unlock()
	return nil
}

func (r *Reporter) transition(ctx context.Context, event string) error {
	return fsmutil.Fire(ctx, r.lifecycle, event)
}
