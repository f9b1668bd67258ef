package driver

import (
	"fmt"
	"os"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/hubclient"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type Config struct {
	HubClientOptions *options.HubClientOptions
	MqttOptions      *options.MqttOptions
	TrackingOptions  *options.TrackingOptions
	LocationOptions  *options.LocationOptions
}

func (cfg *Config) NewAgent() (*Agent, error) {
	client, err := hubclient.New(cfg.HubClientOptions)
	if err != nil {
		return nil, err
	}

	locator, err := cfg.newLocator()
	if err != nil {
		return nil, err
	}

	a := &Agent{
		client:    client,
		locator:   locator,
		email:     cfg.HubClientOptions.Email,
		password:  cfg.HubClientOptions.Password,
		heartbeat: cfg.TrackingOptions.Heartbeat,
		clock:     clock.RealClock{},
	}

	if cfg.MqttOptions.Enabled {
		a.topics = mqtttopic.NewBuilder(cfg.MqttOptions.TopicRoot)
		a.newMQTTClient = cfg.initMqttClient
	}

	return a, nil
}

func (cfg *Config) newLocator() (Locator, error) {
	lo := cfg.LocationOptions
	switch lo.Source {
	case options.LocationSourceReplay:
		track, err := LoadTrack(lo.Track)
		if err != nil {
			return nil, err
		}
		return NewReplayLocator(track, nil), nil
	default:
		return NewSimulatedLocator(lo.Latitude, lo.Longitude,
			WithRadius(lo.Radius),
			WithSampleInterval(lo.Interval),
		), nil
	}
}

func (cfg *Config) initMqttClient(driverID string) (mqtt.Client, error) {
	mqttConfig := cfg.MqttOptions.ToClientConfig()
	if mqttConfig.ClientID == "" {
		host, _ := os.Hostname()
		mqttConfig.ClientID = fmt.Sprintf("fleet-driver-%s-%s", driverID, host)
	}
	return mqtt.NewClient(mqttConfig)
}
