package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/internal/hub/server/http"
	"github.com/autopeer-io/fleetpeer/internal/hub/server/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// Server defines the common interface for all sub-servers (http, mqtt, janitor).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, svc *service.Service) *Manager {
	var servers []Server

	// MQTT ingress runs only when a client was configured.
	if cfg.MqttClient != nil {
		servers = append(servers, mqtt.NewServer(cfg.MqttClient, cfg.Topics, svc))
	}

	servers = append(servers, http.NewServer(cfg.HttpOptions, svc, cfg.Broker, cfg.ReadyChecks))

	if cfg.SessionPurgeInterval > 0 {
		servers = append(servers, NewJanitor(svc, cfg.SessionPurgeInterval))
	}

	return &Manager{
		servers: servers,
	}
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
