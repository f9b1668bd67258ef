package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/utils/clock"
)

// Track is a recorded route replayed by ReplayLocator.
//
//	interval: 2s
//	loop: true
//	waypoints:
//	  - lat: -23.5505
//	    lng: -46.6333
//	    speed: 8.5     # m/s, optional
//	    heading: 90    # optional
//	    accuracy: 6
type Track struct {
	Interval  time.Duration `yaml:"interval"`
	Loop      bool          `yaml:"loop"`
	Waypoints []Waypoint    `yaml:"waypoints"`
}

type Waypoint struct {
	Latitude  float64  `yaml:"lat"`
	Longitude float64  `yaml:"lng"`
	Speed     *float64 `yaml:"speed,omitempty"`
	Heading   *float64 `yaml:"heading,omitempty"`
	Accuracy  float64  `yaml:"accuracy"`
}

// LoadTrack reads a YAML track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}
	return ParseTrack(data)
}

func ParseTrack(data []byte) (*Track, error) {
	t := &Track{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}
	if len(t.Waypoints) == 0 {
		return nil, errors.New("track has no waypoints")
	}
	for i, w := range t.Waypoints {
		if w.Latitude < -90 || w.Latitude > 90 || w.Longitude < -180 || w.Longitude > 180 {
			return nil, fmt.Errorf("waypoint %d out of range: (%v, %v)", i, w.Latitude, w.Longitude)
		}
	}
	if t.Interval <= 0 {
		t.Interval = 5 * time.Second
	}
	return t, nil
}

// ReplayLocator emits the waypoints of a Track one per interval. A track
// without loop stops at its last waypoint; Current keeps returning it.
type ReplayLocator struct {
	track *Track
	clock clock.WithTicker

	mu   sync.Mutex
	next int
}

func NewReplayLocator(track *Track, clk clock.WithTicker) *ReplayLocator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ReplayLocator{track: track, clock: clk}
}

func (l *ReplayLocator) RequestPermission(context.Context) error { return nil }

func (l *ReplayLocator) Watch(ctx context.Context, _ WatchOptions, fn func(Sample), _ func(error)) (func(), error) {
	return emitEvery(ctx, l.clock, l.track.Interval, l.advance, fn), nil
}

func (l *ReplayLocator) Current(ctx context.Context, _ WatchOptions) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, ErrLocationTimeout
	}
	l.mu.Lock()
	i := l.next - 1
	l.mu.Unlock()
	if i < 0 {
		i = 0
	}
	return l.sampleAt(i), nil
}

func (l *ReplayLocator) advance() (Sample, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.track.Waypoints)
	if l.next >= n {
		if !l.track.Loop {
			return Sample{}, false
		}
		l.next = 0
	}
	i := l.next
	l.next++
	return l.sampleAt(i), true
}

func (l *ReplayLocator) sampleAt(i int) Sample {
	w := l.track.Waypoints[i%len(l.track.Waypoints)]
	return Sample{
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Speed:     w.Speed,
		Heading:   w.Heading,
		Accuracy:  w.Accuracy,
		Timestamp: l.clock.Now(),
	}
}
