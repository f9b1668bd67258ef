package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/internal/driver"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type DriverOptions struct {
	HubClientOptions *options.HubClientOptions `json:"hub" mapstructure:"hub"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	TrackingOptions  *options.TrackingOptions  `json:"tracking" mapstructure:"tracking"`
	LocationOptions  *options.LocationOptions  `json:"location" mapstructure:"location"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*DriverOptions)(nil)

func NewDriverOptions() *DriverOptions {
	return &DriverOptions{
		HubClientOptions: options.NewHubClientOptions(),
		MqttOptions:      options.NewMqttOptions(),
		TrackingOptions:  options.NewTrackingOptions(),
		LocationOptions:  options.NewLocationOptions(),
		Log:              log.NewOptions(),
	}
}

func (o *DriverOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HubClientOptions.AddFlags(fss.FlagSet("hub"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.TrackingOptions.AddFlags(fss.FlagSet("tracking"))
	o.LocationOptions.AddFlags(fss.FlagSet("location"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *DriverOptions) Complete() error {
	return nil
}

func (o *DriverOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HubClientOptions.Validate()...)
	if o.HubClientOptions.Email == "" || o.HubClientOptions.Password == "" {
		errs = append(errs, errors.New("--hub.email and --hub.password are required"))
	}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.TrackingOptions.Validate()...)
	errs = append(errs, o.LocationOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *DriverOptions) Config() (*driver.Config, error) {
	return &driver.Config{
		HubClientOptions: o.HubClientOptions,
		MqttOptions:      o.MqttOptions,
		TrackingOptions:  o.TrackingOptions,
		LocationOptions:  o.LocationOptions,
	}, nil
}
