// Package driver keeps the position row of one signed-in driver fresh: it
// watches a location source, pushes every sample and re-sends the last one
// on a heartbeat so the driver stays online while stationary.
package driver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const DefaultHeartbeat = 15 * time.Second

// Values of Status.State.
const (
	StatusStopped  = "stopped"
	StatusTracking = "tracking"
	StatusError    = "error"
)

// Status is a snapshot of the reporter.
type Status struct {
	State string
	// Phase is the lifecycle state (idle, tracking, stopped or denied).
	Phase        string
	Err          error
	Code         string
	LastPosition *v1.Position
}

type Reporter struct {
	locator   Locator
	pusher    Pusher
	clock     clock.WithTicker
	heartbeat time.Duration
	onError   func(error)
	logger    log.Logger

	lifecycle *fsm.FSM

	// startMu serializes Start calls.
	startMu sync.Mutex

	mu       sync.Mutex
	last     *Sample
	lastPush *v1.Position
	lastErr  error
	active   *Handle

	// pushMu is held for the duration of a push; Stop takes it to make sure
	// no push is in flight once it returns.
	pushMu sync.Mutex
}

type Option func(*Reporter)

func WithClock(c clock.WithTicker) Option {
	return func(r *Reporter) { r.clock = c }
}

// WithHeartbeat sets the interval at which the last sample is re-sent.
func WithHeartbeat(d time.Duration) Option {
	return func(r *Reporter) { r.heartbeat = d }
}

// WithErrorHandler registers a callback invoked for every push or
// location failure. It may call Handle.Stop.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reporter) { r.onError = fn }
}

func WithLogger(l log.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

func NewReporter(locator Locator, pusher Pusher, opts ...Option) *Reporter {
	r := &Reporter{
		locator:   locator,
		pusher:    pusher,
		clock:     clock.RealClock{},
		heartbeat: DefaultHeartbeat,
		logger:    log.WithName("reporter"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lifecycle = r.newLifecycle()
	return r
}

// Handle controls a running tracking session.
type Handle struct {
	r       *Reporter
	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()
	once    sync.Once

	// stopped is guarded by r.pushMu.
	stopped bool
}

// Start asks for location permission and begins tracking. It returns
// ErrPermissionDenied if access is refused. Calling Start while tracking
// returns the running handle. Cancelling ctx stops tracking.
func (r *Reporter) Start(ctx context.Context) (*Handle, error) {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != nil {
		return active, nil
	}

	if err := r.locator.RequestPermission(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			r.deny()
			return nil, ErrPermissionDenied
		}
		r.fail(err)
		return nil, err
	}

	if err := r.transition(ctx, EventStart); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{r: r, ctx: runCtx, cancel: cancel}

	unwatch, err := r.locator.Watch(runCtx, watchOptions,
		func(s Sample) { r.onSample(runCtx, h, s) },
		r.fail,
	)
	if err != nil {
		cancel()
		if errors.Is(err, ErrPermissionDenied) {
			r.deny()
			return nil, ErrPermissionDenied
		}
		_ = r.transition(context.Background(), EventStop)
		r.fail(err)
		return nil, err
	}
	h.unwatch = unwatch

	r.mu.Lock()
	r.active = h
	r.mu.Unlock()

	r.logger.Info("Tracking started", "heartbeat", r.heartbeat, "transport", r.pusher.Transport())

	go r.runHeartbeat(runCtx, h)
	go func() {
		<-runCtx.Done()
		h.Stop()
	}()

	return h, nil
}

// Stop ends tracking. It is safe to call any number of times; once it
// returns no further push is made for this handle.
func (h *Handle) Stop() {
	h.once.Do(func() {
		r := h.r
		h.cancel()
		if h.unwatch != nil {
			h.unwatch()
		}

		r.pushMu.Lock()
		h.stopped = true
		r.pushMu.Unlock()

		if err := r.transition(context.Background(), EventStop); err != nil {
			r.logger.Debug("Stop transition skipped", "error", err)
		}

		r.mu.Lock()
		if r.active == h {
			r.active = nil
		}
		r.mu.Unlock()

		r.logger.Info("Tracking stopped")
	})
}

// Resend pushes the last sample now instead of waiting for the next
// heartbeat. It does nothing once the handle is stopped.
func (h *Handle) Resend() {
	if h.ctx.Err() != nil {
		return
	}
	h.r.beat(h.ctx, h)
}

// Status reports the current state, the last error and the last pushed position.
func (r *Reporter) Status() Status {
	phase := r.lifecycle.Current()

	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Phase: phase, Err: r.lastErr, Code: Code(r.lastErr)}
	if r.lastPush != nil {
		p := *r.lastPush
		st.LastPosition = &p
	}

	switch {
	case phase == StateDenied:
		st.State = StatusError
	case phase == StateTracking && r.lastErr != nil:
		st.State = StatusError
	case phase == StateTracking:
		st.State = StatusTracking
	default:
		st.State = StatusStopped
	}
	return st
}

func (r *Reporter) runHeartbeat(ctx context.Context, h *Handle) {
	ticker := r.clock.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.beat(ctx, h)
		}
	}
}

// beat re-sends the last sample, or asks for a one-shot fix when none has
// arrived yet.
func (r *Reporter) beat(ctx context.Context, h *Handle) {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()

	if last == nil {
		fixCtx, cancel := context.WithTimeout(ctx, oneShotOptions.Timeout)
		s, err := r.locator.Current(fixCtx, oneShotOptions)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				r.fail(err)
			}
			return
		}
		r.remember(s)
		last = &s
	}

	r.push(ctx, h, *last)
}

func (r *Reporter) onSample(ctx context.Context, h *Handle, s Sample) {
	r.remember(s)
	r.push(ctx, h, s)
}

func (r *Reporter) remember(s Sample) {
	r.mu.Lock()
	r.last = &s
	r.mu.Unlock()
}

func (r *Reporter) push(ctx context.Context, h *Handle, s Sample) {
	pos := s.Position()

	r.pushMu.Lock()
	if h.stopped {
		r.pushMu.Unlock()
		return
	}
	err := r.pusher.Push(ctx, pos)
	r.pushMu.Unlock()

	if err != nil {
		// A push cut short by Stop is not a failure.
		if ctx.Err() != nil {
			return
		}
		metrics.PositionPushes.WithLabelValues(r.pusher.Transport(), strings.ToLower(Code(err))).Inc()
		r.fail(err)
		return
	}

	metrics.PositionPushes.WithLabelValues(r.pusher.Transport(), "success").Inc()
	r.mu.Lock()
	r.lastPush = pos
	r.lastErr = nil
	r.mu.Unlock()
}

func (r *Reporter) deny() {
	if err := r.transition(context.Background(), EventDeny); err != nil {
		r.logger.Warn("Deny transition failed", "error", err)
	}
	r.logger.Warn("Location permission denied")
	if r.onError != nil {
		r.onError(ErrPermissionDenied)
	}
}

// fail records err as the last error and reports it. Tracking continues.
func (r *Reporter) fail(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	r.logger.Error(err, "Position reporting failed", "code", Code(err))
	if r.onError != nil {
		r.onError(err)
	}
}
