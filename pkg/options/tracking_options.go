package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*TrackingOptions)(nil)

// TrackingOptions holds the timing knobs shared by the driver reporter,
// the admin poller and the hub roster.
type TrackingOptions struct {
	// Heartbeat is the interval at which a driver re-sends its position
	// even without fresh location samples.
	Heartbeat time.Duration `json:"heartbeat" mapstructure:"heartbeat"`

	// PollInterval is the admin roster refresh interval.
	PollInterval time.Duration `json:"poll-interval" mapstructure:"poll-interval"`

	// OnlineWindow is how recent a position must be for its driver to count as online.
	OnlineWindow time.Duration `json:"online-window" mapstructure:"online-window"`
}

func NewTrackingOptions() *TrackingOptions {
	return &TrackingOptions{
		Heartbeat:    15 * time.Second,
		PollInterval: 5 * time.Second,
		OnlineWindow: 60 * time.Second,
	}
}

func (o *TrackingOptions) Validate() []error {
	errs := []error{}

	if o.Heartbeat < 15*time.Second || o.Heartbeat > 30*time.Second {
		errs = append(errs, fmt.Errorf("tracking heartbeat must be within [15s, 30s], got %s", o.Heartbeat))
	}
	if o.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("tracking poll-interval must be at least 1s"))
	}
	if o.OnlineWindow <= o.Heartbeat {
		errs = append(errs, fmt.Errorf("tracking online-window (%s) must exceed the heartbeat (%s)", o.OnlineWindow, o.Heartbeat))
	}

	return errs
}

func (o *TrackingOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Heartbeat, join(prefixes, "tracking.heartbeat"), o.Heartbeat, "Driver position heartbeat interval (15s-30s).")
	fs.DurationVar(&o.PollInterval, join(prefixes, "tracking.poll-interval"), o.PollInterval, "Admin roster polling interval.")
	fs.DurationVar(&o.OnlineWindow, join(prefixes, "tracking.online-window"), o.OnlineWindow, "Maximum position age for a driver to be online.")
}
