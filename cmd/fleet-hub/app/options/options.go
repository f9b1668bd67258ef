package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/internal/hub"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type HubOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	StoreOptions    *options.StoreOptions    `json:"store" mapstructure:"store"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	AuthOptions     *options.AuthOptions     `json:"auth" mapstructure:"auth"`
	TrackingOptions *options.TrackingOptions `json:"tracking" mapstructure:"tracking"`
	SeedOptions     *options.SeedOptions     `json:"seed" mapstructure:"seed"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*HubOptions)(nil)

func NewHubOptions() *HubOptions {
	o := &HubOptions{
		HttpOptions:     options.NewHttpOptions(),
		MqttOptions:     options.NewMqttOptions(),
		StoreOptions:    options.NewStoreOptions(),
		S3Options:       options.NewS3Options(),
		AuthOptions:     options.NewAuthOptions(),
		TrackingOptions: options.NewTrackingOptions(),
		SeedOptions:     options.NewSeedOptions(),
		Log:             log.NewOptions(),
	}

	return o
}

func (o *HubOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.AuthOptions.AddFlags(fss.FlagSet("auth"))
	o.TrackingOptions.AddFlags(fss.FlagSet("tracking"))
	o.SeedOptions.AddFlags(fss.FlagSet("seed"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *HubOptions) Complete() error {
	return nil
}

func (o *HubOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	errs = append(errs, o.TrackingOptions.Validate()...)
	errs = append(errs, o.SeedOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *HubOptions) Config() (*hub.Config, error) {
	return &hub.Config{
		HttpOptions:     o.HttpOptions,
		MqttOptions:     o.MqttOptions,
		StoreOptions:    o.StoreOptions,
		S3Options:       o.S3Options,
		AuthOptions:     o.AuthOptions,
		TrackingOptions: o.TrackingOptions,
		SeedOptions:     o.SeedOptions,
	}, nil
}
