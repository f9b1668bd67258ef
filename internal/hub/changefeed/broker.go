package changefeed

import (
	"context"
	"sync"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
)

const defaultBuffer = 32

// Broker fans change events out to in-process subscribers, filtered by organization.
// A subscriber that does not keep up loses events rather than blocking Notify.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	buffer int
}

type subscriber struct {
	organizationID string
	ch             chan model.ChangeEvent
}

var _ core.ChangeNotifier = (*Broker)(nil)

// NewBroker returns a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{subs: make(map[uint64]*subscriber), buffer: buffer}
}

// Notify delivers ev to every subscriber of its organization. It never blocks.
func (b *Broker) Notify(_ context.Context, ev *model.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if s.organizationID != ev.OrganizationID {
			continue
		}
		select {
		case s.ch <- *ev:
		default:
			metrics.ChangeFeedDropped.Inc()
		}
	}
	return nil
}

// Subscribe registers a subscriber for one organization. The returned cancel
// func unregisters it and closes the channel; it is safe to call twice.
func (b *Broker) Subscribe(organizationID string) (<-chan model.ChangeEvent, func()) {
	s := &subscriber{organizationID: organizationID, ch: make(chan model.ChangeEvent, b.buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()
	metrics.ChangeFeedSubscribers.Inc()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
			metrics.ChangeFeedSubscribers.Dec()
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
