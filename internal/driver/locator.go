package driver

import (
	"context"
	"time"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

// Sample is one location fix as delivered by a Locator.
// Speed is in m/s; Speed and Heading are nil when the source does not know them.
type Sample struct {
	Latitude  float64
	Longitude float64
	Speed     *float64
	Heading   *float64
	Accuracy  float64
	Timestamp time.Time
}

// Position converts the sample to the wire form. Speed becomes km/h and
// unknown values are sent as 0.
func (s Sample) Position() *v1.Position {
	p := &v1.Position{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
	}
	if s.Speed != nil {
		p.Speed = *s.Speed * 3.6
	}
	if s.Heading != nil {
		p.Heading = *s.Heading
	}
	return p
}

// WatchOptions tune a location request.
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

var (
	watchOptions   = WatchOptions{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 60 * time.Second}
	oneShotOptions = WatchOptions{HighAccuracy: false, Timeout: 5 * time.Second, MaximumAge: 60 * time.Second}
)

// Locator is a source of location samples.
type Locator interface {
	// RequestPermission returns ErrPermissionDenied if location access is refused.
	RequestPermission(ctx context.Context) error

	// Watch delivers samples to fn until ctx is done or the returned cancel
	// function is called. Acquisition failures are reported to onErr.
	Watch(ctx context.Context, opts WatchOptions, fn func(Sample), onErr func(error)) (cancel func(), err error)

	// Current returns a single fix.
	Current(ctx context.Context, opts WatchOptions) (Sample, error)
}

func float(v float64) *float64 { return &v }
