package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// FleetctlOptions are shared by every fleetctl sub command.
type FleetctlOptions struct {
	HubClientOptions *options.HubClientOptions `json:"hub" mapstructure:"hub"`
	MqttOptions      *options.MqttOptions      `json:"mqtt" mapstructure:"mqtt"`
	TrackingOptions  *options.TrackingOptions  `json:"tracking" mapstructure:"tracking"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*FleetctlOptions)(nil)

func NewFleetctlOptions() *FleetctlOptions {
	o := &FleetctlOptions{
		HubClientOptions: options.NewHubClientOptions(),
		MqttOptions:      options.NewMqttOptions(),
		TrackingOptions:  options.NewTrackingOptions(),
		Log:              log.NewOptions(),
	}
	// Tables go to stdout.
	o.Log.Level = "warn"
	o.Log.OutputPaths = []string{"stderr"}
	return o
}

func (o *FleetctlOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HubClientOptions.AddFlags(fss.FlagSet("hub"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.TrackingOptions.AddFlags(fss.FlagSet("tracking"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *FleetctlOptions) Complete() error {
	return nil
}

func (o *FleetctlOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HubClientOptions.Validate()...)
	if o.HubClientOptions.Email == "" || o.HubClientOptions.Password == "" {
		errs = append(errs, errors.New("--hub.email and --hub.password are required"))
	}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.TrackingOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}
