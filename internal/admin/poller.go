package admin

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const DefaultPollInterval = 5 * time.Second

// State is a snapshot of the poller.
type State struct {
	Drivers   []DriverView
	Counts    Counts
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// Filtered returns the drivers matching f. Counts always cover the full set.
func (s State) Filtered(f Filter) []DriverView {
	return f.Apply(s.Drivers)
}

// Sink receives every successfully fetched driver set.
type Sink func(drivers []DriverView)

// Poller keeps the roster of one organization fresh. Every trigger (start,
// the interval ticker, Refresh and change events) goes through one loop, so
// at most one fetch is in flight and triggers arriving meanwhile collapse
// into a single follow-up fetch.
type Poller struct {
	orgID    string
	source   RosterSource
	feed     ChangeFeed
	clock    clock.WithTicker
	interval time.Duration
	sink     Sink
	onUpdate func(State)
	logger   log.Logger

	mu    sync.Mutex
	state State
	// trigger belongs to the running loop; nil when stopped.
	trigger chan struct{}

	// applyMu is held while a result is applied; Stop takes it so nothing
	// is applied after it returns.
	applyMu sync.Mutex
	active  *PollHandle
}

type PollerOption func(*Poller)

func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

func WithPollerClock(c clock.WithTicker) PollerOption {
	return func(p *Poller) { p.clock = c }
}

// WithChangeFeed makes change events of the positions table trigger a refresh.
func WithChangeFeed(feed ChangeFeed) PollerOption {
	return func(p *Poller) { p.feed = feed }
}

func WithSink(s Sink) PollerOption {
	return func(p *Poller) { p.sink = s }
}

// WithUpdateHandler is called with the new state after every fetch, failed
// or not. Like the sink it runs on the poller loop and may call
// PollHandle.Stop.
func WithUpdateHandler(fn func(State)) PollerOption {
	return func(p *Poller) { p.onUpdate = fn }
}

// NewPoller returns ErrNoOrganization if orgID is empty.
func NewPoller(orgID string, source RosterSource, opts ...PollerOption) (*Poller, error) {
	if orgID == "" {
		return nil, ErrNoOrganization
	}
	p := &Poller{
		orgID:    orgID,
		source:   source,
		clock:    clock.RealClock{},
		interval: DefaultPollInterval,
		logger:   log.WithName("poller").WithValues("organizationID", orgID),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PollHandle stops a running poller.
type PollHandle struct {
	p           *Poller
	cancel      context.CancelFunc
	unsubscribe func()
	once        sync.Once
	done        chan struct{}

	// stopped is guarded by p.applyMu.
	stopped bool
}

// Start fetches immediately and keeps polling until Stop or ctx is done.
// A poller runs at most once at a time; Start on a running poller returns
// its handle.
func (p *Poller) Start(ctx context.Context) *PollHandle {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if p.active != nil {
		return p.active
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{p: p, cancel: cancel, done: make(chan struct{})}
	p.active = h

	trigger := make(chan struct{}, 1)
	p.mu.Lock()
	p.trigger = trigger
	p.mu.Unlock()

	if p.feed != nil {
		unsubscribe, err := p.feed.Subscribe(ctx, p.onChange)
		if err != nil {
			p.logger.Warn("Change feed unavailable, relying on polling", "error", err)
		} else {
			h.unsubscribe = unsubscribe
		}
	}

	p.Refresh()
	go p.loop(ctx, h, trigger)
	go p.tick(ctx)
	go func() {
		<-ctx.Done()
		h.Stop()
	}()

	return h
}

// Refresh asks for a fetch. It never blocks; if a fetch is already pending
// the request is merged with it.
func (p *Poller) Refresh() {
	p.mu.Lock()
	trigger := p.trigger
	p.mu.Unlock()
	if trigger == nil {
		return
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// State returns a copy of the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Drivers = append([]DriverView(nil), p.state.Drivers...)
	return s
}

// Stop ends polling. It is idempotent and safe to call from a sink or an
// update handler. A fetch finishing after Stop is discarded. Stop does not
// wait for a callback already running; Done is closed after it returns.
func (h *PollHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		if h.unsubscribe != nil {
			h.unsubscribe()
		}

		h.p.applyMu.Lock()
		h.stopped = true
		if h.p.active == h {
			h.p.active = nil
			h.p.mu.Lock()
			h.p.trigger = nil
			h.p.mu.Unlock()
		}
		h.p.applyMu.Unlock()
	})
}

// Done is closed when the refresh loop has exited.
func (h *PollHandle) Done() <-chan struct{} { return h.done }

func (h *PollHandle) isStopped() bool {
	h.p.applyMu.Lock()
	defer h.p.applyMu.Unlock()
	return h.stopped
}

func (p *Poller) onChange(ev v1.ChangeEvent) {
	if ev.Table != "positions" {
		return
	}
	if ev.OrganizationID != "" && ev.OrganizationID != p.orgID {
		return
	}
	p.Refresh()
}

func (p *Poller) tick(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.Refresh()
		}
	}
}

func (p *Poller) loop(ctx context.Context, h *PollHandle, trigger <-chan struct{}) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			p.fetch(ctx, h)
		}
	}
}

func (p *Poller) fetch(ctx context.Context, h *PollHandle) {
	p.mu.Lock()
	p.state.Loading = true
	p.mu.Unlock()

	roster, err := p.source.Roster(ctx)

	p.applyMu.Lock()
	if h.stopped || ctx.Err() != nil {
		p.mu.Lock()
		p.state.Loading = false
		p.mu.Unlock()
		p.applyMu.Unlock()
		metrics.RosterRefreshes.WithLabelValues("discarded").Inc()
		return
	}

	var drivers []DriverView
	p.mu.Lock()
	p.state.Loading = false
	if err != nil {
		// Keep the last good set on screen.
		p.state.Err = err
	} else {
		drivers = FromRoster(roster)
		p.state.Drivers = drivers
		p.state.Counts = Count(drivers)
		p.state.Err = nil
		p.state.UpdatedAt = p.clock.Now()
	}
	p.mu.Unlock()
	p.applyMu.Unlock()

	if err != nil {
		metrics.RosterRefreshes.WithLabelValues("error").Inc()
		p.logger.Error(err, "Roster refresh failed")
	} else {
		metrics.RosterRefreshes.WithLabelValues("success").Inc()
		p.logger.Debug("Roster refreshed", "drivers", len(drivers))
		if p.sink != nil && !h.isStopped() {
			p.sink(drivers)
		}
	}

	if p.onUpdate != nil && !h.isStopped() {
		p.onUpdate(p.State())
	}
}
