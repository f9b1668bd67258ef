package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*LocationOptions)(nil)

const (
	LocationSourceSimulated = "simulated"
	LocationSourceReplay    = "replay"
)

// LocationOptions selects where the driver agent takes its positions from.
type LocationOptions struct {
	// Source is "simulated" or "replay".
	Source string `json:"source" mapstructure:"source"`

	// Track is the YAML track file replayed when Source is "replay".
	Track string `json:"track" mapstructure:"track"`

	// Latitude and Longitude are the centre of the simulated circuit.
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`

	// Radius of the simulated circuit in meters.
	Radius float64 `json:"radius" mapstructure:"radius"`

	// Interval between simulated samples.
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

func NewLocationOptions() *LocationOptions {
	return &LocationOptions{
		Source:    LocationSourceSimulated,
		Latitude:  -23.5505,
		Longitude: -46.6333,
		Radius:    500,
		Interval:  5 * time.Second,
	}
}

func (o *LocationOptions) Validate() []error {
	errs := []error{}

	switch o.Source {
	case LocationSourceSimulated:
		if o.Latitude < -90 || o.Latitude > 90 || o.Longitude < -180 || o.Longitude > 180 {
			errs = append(errs, fmt.Errorf("location origin (%v, %v) is out of range", o.Latitude, o.Longitude))
		}
		if o.Radius <= 0 {
			errs = append(errs, fmt.Errorf("location radius must be positive"))
		}
		if o.Interval <= 0 {
			errs = append(errs, fmt.Errorf("location interval must be positive"))
		}
	case LocationSourceReplay:
		if o.Track == "" {
			errs = append(errs, fmt.Errorf("location track is required for the replay source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown location source %q", o.Source))
	}

	return errs
}

func (o *LocationOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Source, join(prefixes, "location.source"), o.Source, "Location source: simulated or replay.")
	fs.StringVar(&o.Track, join(prefixes, "location.track"), o.Track, "YAML track file used by the replay source.")
	fs.Float64Var(&o.Latitude, join(prefixes, "location.latitude"), o.Latitude, "Latitude of the simulated circuit centre.")
	fs.Float64Var(&o.Longitude, join(prefixes, "location.longitude"), o.Longitude, "Longitude of the simulated circuit centre.")
	fs.Float64Var(&o.Radius, join(prefixes, "location.radius"), o.Radius, "Radius of the simulated circuit in meters.")
	fs.DurationVar(&o.Interval, join(prefixes, "location.interval"), o.Interval, "Interval between simulated samples.")
}
