// Package fsm holds helpers around looplab/fsm.
package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts a callback that returns an error. A non-nil error is
// stored on the event, so Event returns it to the caller.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// Fire triggers event on f. A transition into the state f is already in is
// not an error.
func Fire(ctx context.Context, f *fsm.FSM, event string, args ...any) error {
	err := f.Event(ctx, event, args...)
	var noop fsm.NoTransitionError
	if err != nil && !errors.As(err, &noop) {
		return err
	}
	return nil
}
