package hub

import (
	"context"
	"fmt"
	"os"

	"github.com/autopeer-io/fleetpeer/internal/hub/auth"
	"github.com/autopeer-io/fleetpeer/internal/hub/changefeed"
	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/internal/hub/server"
	"github.com/autopeer-io/fleetpeer/internal/hub/server/http"
	"github.com/autopeer-io/fleetpeer/internal/hub/storage"
	"github.com/autopeer-io/fleetpeer/internal/hub/store"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type Config struct {
	HttpOptions     *options.HttpOptions
	MqttOptions     *options.MqttOptions
	StoreOptions    *options.StoreOptions
	S3Options       *options.S3Options
	AuthOptions     *options.AuthOptions
	TrackingOptions *options.TrackingOptions
	SeedOptions     *options.SeedOptions
}

func (cfg *Config) NewHubServer(ctx context.Context) (*HubServer, error) {
	// 1. Infrastructure: Repository (Secondary Adapter)
	repo, err := store.Open(ctx, cfg.StoreOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// 2. Infrastructure: Storage, optional
	var objects core.Storage
	if cfg.S3Options.Enabled() {
		if objects, err = storage.NewMinIO(cfg.S3Options); err != nil {
			_ = repo.Close()
			return nil, err
		}
	}

	// 3. Infrastructure: Notifiers. The broker always runs; MQTT is optional.
	broker := changefeed.NewBroker(0)
	notifiers := changefeed.Multi{broker}

	checks := map[string]http.ReadyCheck{"store": repo.Ping}

	var mqttClient mqtt.Client
	builder := topic.NewBuilder(cfg.MqttOptions.TopicRoot)
	if cfg.MqttOptions.Enabled {
		if mqttClient, err = InitializeMQTTClient(cfg.MqttOptions); err != nil {
			_ = repo.Close()
			return nil, err
		}
		notifiers = append(notifiers, changefeed.NewMQTTNotifier(mqttClient, builder))
		checks["mqtt"] = func(context.Context) error {
			if !mqttClient.IsConnected() {
				return fmt.Errorf("not connected to broker")
			}
			return nil
		}
	}

	// 4. Core Domain Service
	svc := service.New(repo, notifiers, objects,
		auth.NewJWTIssuer(cfg.AuthOptions.Secret, cfg.AuthOptions.Issuer, nil),
		auth.NewBcryptHasher(0),
		service.WithOnlineWindow(cfg.TrackingOptions.OnlineWindow),
		service.WithTokenTTL(cfg.AuthOptions.TokenTTL),
		service.WithExportExpiry(cfg.S3Options.URLExpiry),
	)

	// 5. Ingress Servers (Primary Adapters)
	srvManager := server.NewManager(&server.Config{
		HttpOptions:          cfg.HttpOptions,
		MqttClient:           mqttClient,
		Topics:               builder,
		Broker:               broker,
		ReadyChecks:          checks,
		SessionPurgeInterval: sessionPurgeInterval,
	}, svc)

	return &HubServer{
		serverManager: srvManager,
		repo:          repo,
		storage:       objects,
		svc:           svc,
		seed:          cfg.SeedOptions,
	}, nil
}

// InitializeMQTTClient creates the hub client shared by ingress and the change feed notifier.
func InitializeMQTTClient(opts *options.MqttOptions) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("fleet-hub-%s", hostname)
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}

	return client, nil
}
