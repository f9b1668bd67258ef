package driver

import (
	"context"
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

const metersPerDegree = 111_320.0

// SimulatedLocator drives around a circle centred on an origin. The path is
// deterministic: the n-th sample is always the same point.
type SimulatedLocator struct {
	lat, lng float64
	radius   float64
	interval time.Duration
	steps    int
	deny     bool
	clock    clock.WithTicker

	mu   sync.Mutex
	next int
}

type SimulatedOption func(*SimulatedLocator)

// WithRadius sets the radius of the circuit in meters.
func WithRadius(meters float64) SimulatedOption {
	return func(l *SimulatedLocator) { l.radius = meters }
}

// WithSampleInterval sets how often Watch emits.
func WithSampleInterval(d time.Duration) SimulatedOption {
	return func(l *SimulatedLocator) { l.interval = d }
}

// WithDeniedPermission makes RequestPermission fail.
func WithDeniedPermission() SimulatedOption {
	return func(l *SimulatedLocator) { l.deny = true }
}

func WithLocatorClock(c clock.WithTicker) SimulatedOption {
	return func(l *SimulatedLocator) { l.clock = c }
}

func NewSimulatedLocator(lat, lng float64, opts ...SimulatedOption) *SimulatedLocator {
	l := &SimulatedLocator{
		lat:      lat,
		lng:      lng,
		radius:   500,
		interval: 5 * time.Second,
		steps:    120,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SimulatedLocator) RequestPermission(context.Context) error {
	if l.deny {
		return ErrPermissionDenied
	}
	return nil
}

func (l *SimulatedLocator) Watch(ctx context.Context, _ WatchOptions, fn func(Sample), _ func(error)) (func(), error) {
	if l.deny {
		return nil, ErrPermissionDenied
	}
	return emitEvery(ctx, l.clock, l.interval, func() (Sample, bool) { return l.advance(), true }, fn), nil
}

func (l *SimulatedLocator) Current(ctx context.Context, _ WatchOptions) (Sample, error) {
	if l.deny {
		return Sample{}, ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return Sample{}, ErrLocationTimeout
	}
	return l.advance(), nil
}

func (l *SimulatedLocator) advance() Sample {
	l.mu.Lock()
	i := l.next
	l.next++
	l.mu.Unlock()
	return l.sampleAt(i)
}

// sampleAt returns the i-th point of the circuit. The vehicle moves
// clockwise, so its heading is the tangent of the circle.
func (l *SimulatedLocator) sampleAt(i int) Sample {
	step := 2 * math.Pi / float64(l.steps)
	angle := step * float64(i%l.steps)

	north := l.radius * math.Cos(angle)
	east := l.radius * math.Sin(angle)

	heading := math.Mod(math.Atan2(math.Cos(angle), -math.Sin(angle))*180/math.Pi+360, 360)
	speed := l.radius * step / l.interval.Seconds()

	return Sample{
		Latitude:  l.lat + north/metersPerDegree,
		Longitude: l.lng + east/(metersPerDegree*math.Cos(l.lat*math.Pi/180)),
		Speed:     float(speed),
		Heading:   float(heading),
		Accuracy:  5,
		Timestamp: l.clock.Now(),
	}
}

// emitEvery calls fn with next() immediately and then on every tick, until
// ctx is done, cancel is called or next reports false.
func emitEvery(ctx context.Context, clk clock.WithTicker, interval time.Duration, next func() (Sample, bool), fn func(Sample)) func() {
	ctx, cancel := context.WithCancel(ctx)
	ticker := clk.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			s, ok := next()
			if !ok {
				return
			}
			fn(s)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
			}
		}
	}()

	return cancel
}
