package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

type fakeSource struct {
	mu     sync.Mutex
	roster *v1.Roster
	err    error
	calls  int

	// gate, when set, holds every call until a value is sent.
	gate    chan struct{}
	started chan struct{}
}

func newFakeSource(r *v1.Roster) *fakeSource {
	return &fakeSource{roster: r, started: make(chan struct{}, 16)}
}

func (f *fakeSource) Roster(context.Context) (*v1.Roster, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	f.started <- struct{}{}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roster, f.err
}

func (f *fakeSource) set(r *v1.Roster, err error) {
	f.mu.Lock()
	f.roster, f.err = r, err
	f.mu.Unlock()
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitStarted(t *testing.T, f *fakeSource) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not start")
	}
}

func testRoster() *v1.Roster {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &v1.Roster{
		OrganizationID: "org-1",
		Total:          3,
		Online:         1,
		Drivers: []v1.Driver{
			{ID: "d-1", Name: "Alice", Online: true, Position: &v1.Position{Latitude: -23.5, Longitude: -46.6, Speed: 40, UpdatedAt: now}},
			{ID: "d-2", Name: "Bob", Position: &v1.Position{Latitude: -23.6, Longitude: -46.7, Speed: 20, UpdatedAt: now.Add(-time.Hour)}},
			{ID: "d-3", Name: "Carl"},
		},
	}
}

func newTestPoller(t *testing.T, src RosterSource, opts ...PollerOption) (*Poller, *clocktesting.FakeClock) {
	t.Helper()
	clk := clocktesting.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC))
	opts = append([]PollerOption{WithPollerClock(clk)}, opts...)
	p, err := NewPoller("org-1", src, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p, clk
}

func TestNewPollerRequiresOrganization(t *testing.T) {
	if _, err := NewPoller("", newFakeSource(nil)); !errors.Is(err, ErrNoOrganization) {
		t.Fatalf("NewPoller(\"\") error = %v, want ErrNoOrganization", err)
	}
}

func TestPollerFetchesOnStart(t *testing.T) {
	src := newFakeSource(testRoster())
	var mu sync.Mutex
	var sunk []DriverView
	p, clk := newTestPoller(t, src, WithSink(func(d []DriverView) {
		mu.Lock()
		sunk = d
		mu.Unlock()
	}))

	h := p.Start(context.Background())
	defer h.Stop()

	waitFor(t, "first refresh", func() bool { return !p.State().UpdatedAt.IsZero() })

	st := p.State()
	if st.Err != nil || st.Loading || !st.UpdatedAt.Equal(clk.Now()) {
		t.Errorf("State() = %+v", st)
	}
	want := Counts{Total: 3, Online: 1, Offline: 2, AvgSpeed: 20}
	if st.Counts != want {
		t.Errorf("Counts = %+v, want %+v", st.Counts, want)
	}
	mu.Lock()
	if len(sunk) != 3 || sunk[0].Status != StatusOnline || sunk[2].Position != nil {
		t.Errorf("sink got %+v", sunk)
	}
	mu.Unlock()

	if again := p.Start(context.Background()); again != h {
		t.Errorf("Start() on a running poller returned a new handle")
	}
}

func TestPollerCoalescesTriggers(t *testing.T) {
	src := newFakeSource(testRoster())
	src.gate = make(chan struct{})
	p, _ := newTestPoller(t, src)

	h := p.Start(context.Background())
	defer h.Stop()

	waitStarted(t, src)
	if !p.State().Loading {
		t.Errorf("Loading = false while a fetch is in flight")
	}
	for i := 0; i < 5; i++ {
		p.Refresh()
	}
	p.onChange(v1.ChangeEvent{Table: "positions", OrganizationID: "org-1"})

	src.gate <- struct{}{}
	waitStarted(t, src)
	src.gate <- struct{}{}

	waitFor(t, "follow-up applied", func() bool { return !p.State().Loading && src.callCount() == 2 })
	time.Sleep(20 * time.Millisecond)
	if n := src.callCount(); n != 2 {
		t.Fatalf("fetches = %d, want 2 (one in flight plus one follow-up)", n)
	}
}

func TestPollerKeepsLastGoodSetOnError(t *testing.T) {
	src := newFakeSource(testRoster())
	var updates []State
	var mu sync.Mutex
	p, _ := newTestPoller(t, src, WithUpdateHandler(func(s State) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	}))
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(updates)
	}

	h := p.Start(context.Background())
	defer h.Stop()
	waitFor(t, "first refresh", func() bool { return count() == 1 })

	boom := errors.New("hub unreachable")
	src.set(nil, boom)
	p.Refresh()
	waitFor(t, "failed refresh", func() bool { return count() == 2 })

	st := p.State()
	if !errors.Is(st.Err, boom) || len(st.Drivers) != 3 || st.Counts.Total != 3 {
		t.Fatalf("State() after failure = %+v, want error and previous drivers", st)
	}

	r := testRoster()
	r.Drivers = r.Drivers[:1]
	src.set(r, nil)
	p.Refresh()
	waitFor(t, "recovery", func() bool { return count() == 3 })
	if st := p.State(); st.Err != nil || len(st.Drivers) != 1 {
		t.Errorf("State() after recovery = %+v", st)
	}
}

func TestPollerInterval(t *testing.T) {
	src := newFakeSource(testRoster())
	p, clk := newTestPoller(t, src, WithPollInterval(5*time.Second))

	h := p.Start(context.Background())
	defer h.Stop()
	waitFor(t, "first refresh", func() bool { return !p.State().UpdatedAt.IsZero() })

	waitFor(t, "ticker", clk.HasWaiters)
	clk.Step(5 * time.Second)
	waitFor(t, "tick refresh", func() bool { return src.callCount() == 2 })
}

func TestPollerDiscardsResultAfterStop(t *testing.T) {
	src := newFakeSource(testRoster())
	src.gate = make(chan struct{})
	sinkCalls := 0
	p, _ := newTestPoller(t, src, WithSink(func([]DriverView) { sinkCalls++ }))

	h := p.Start(context.Background())
	waitStarted(t, src)

	h.Stop()
	h.Stop()
	src.gate <- struct{}{}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
	if st := p.State(); !st.UpdatedAt.IsZero() || len(st.Drivers) != 0 || st.Loading {
		t.Errorf("State() = %+v, want the late result discarded", st)
	}
	if sinkCalls != 0 {
		t.Errorf("sink called %d times after stop", sinkCalls)
	}

	p.Refresh()
	time.Sleep(20 * time.Millisecond)
	if src.callCount() != 1 {
		t.Errorf("Refresh() after stop fetched")
	}
}

func TestPollerCallbacksMayStop(t *testing.T) {
	tests := []struct {
		name string
		opt  func(stop func()) PollerOption
	}{
		{"sink", func(stop func()) PollerOption {
			return WithSink(func([]DriverView) { stop() })
		}},
		{"update handler", func(stop func()) PollerOption {
			return WithUpdateHandler(func(State) { stop() })
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(testRoster())
			var h *PollHandle
			ready := make(chan struct{})
			p, _ := newTestPoller(t, src, tt.opt(func() {
				<-ready
				h.Stop()
			}))

			h = p.Start(context.Background())
			close(ready)

			select {
			case <-h.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("Stop() from a callback did not return")
			}
			p.Refresh()
			time.Sleep(20 * time.Millisecond)
			if n := src.callCount(); n != 1 {
				t.Errorf("fetches = %d after Stop, want 1", n)
			}
		})
	}
}

type fakeFeed struct {
	mu           sync.Mutex
	fn           func(v1.ChangeEvent)
	unsubscribed bool
	err          error
}

func (f *fakeFeed) Subscribe(_ context.Context, fn func(v1.ChangeEvent)) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeFeed) emit(ev v1.ChangeEvent) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	fn(ev)
}

func TestPollerChangeFeed(t *testing.T) {
	src := newFakeSource(testRoster())
	feed := &fakeFeed{}
	p, _ := newTestPoller(t, src, WithChangeFeed(feed))

	h := p.Start(context.Background())
	waitFor(t, "first refresh", func() bool { return src.callCount() == 1 && !p.State().Loading })

	feed.emit(v1.ChangeEvent{Table: "users", OrganizationID: "org-1"})
	feed.emit(v1.ChangeEvent{Table: "positions", OrganizationID: "org-2"})
	time.Sleep(20 * time.Millisecond)
	if src.callCount() != 1 {
		t.Fatalf("unrelated events triggered a fetch")
	}

	feed.emit(v1.ChangeEvent{Table: "positions", Op: "upsert", DriverID: "d-1", OrganizationID: "org-1"})
	waitFor(t, "hinted refresh", func() bool { return src.callCount() == 2 })

	h.Stop()
	feed.mu.Lock()
	defer feed.mu.Unlock()
	if !feed.unsubscribed {
		t.Errorf("Stop() did not unsubscribe the change feed")
	}
}

func TestPollerSurvivesFeedFailure(t *testing.T) {
	src := newFakeSource(testRoster())
	p, _ := newTestPoller(t, src, WithChangeFeed(&fakeFeed{err: errors.New("dial refused")}))

	h := p.Start(context.Background())
	defer h.Stop()
	waitFor(t, "first refresh", func() bool { return !p.State().UpdatedAt.IsZero() })
}

func TestFilter(t *testing.T) {
	drivers := FromRoster(testRoster())
	st := State{Drivers: drivers, Counts: Count(drivers)}

	tests := []struct {
		filter Filter
		want   []string
	}{
		{FilterAll, []string{"d-1", "d-2", "d-3"}},
		{FilterOnline, []string{"d-1"}},
		{FilterOffline, []string{"d-2", "d-3"}},
	}
	for _, tt := range tests {
		got := st.Filtered(tt.filter)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d drivers, want %d", tt.filter, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("%s: [%d] = %s, want %s", tt.filter, i, got[i].ID, tt.want[i])
			}
		}
		if st.Counts.Total != 3 {
			t.Errorf("counts must cover the full set")
		}
	}

	if Filter("parked").Valid() {
		t.Errorf("unknown filter reported valid")
	}
}
