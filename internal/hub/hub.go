package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/internal/hub/server"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

const sessionPurgeInterval = 10 * time.Minute

// HubServer is the fleet backend: the HTTP API, MQTT ingress and change feed
// on top of one repository.
type HubServer struct {
	serverManager *server.Manager
	repo          core.Repository
	storage       core.Storage
	svc           *service.Service
	seed          *options.SeedOptions
}

func (s *HubServer) Run(ctx context.Context) error {
	defer func() {
		if err := s.repo.Close(); err != nil {
			log.Error(err, "Failed to close store")
		}
	}()

	if s.seed.Enabled() {
		if err := s.svc.Bootstrap(ctx, &service.SeedRequest{
			Organization:  s.seed.Organization,
			AdminName:     s.seed.AdminName,
			AdminEmail:    s.seed.AdminEmail,
			AdminPassword: s.seed.AdminPassword,
		}); err != nil {
			return fmt.Errorf("failed to bootstrap organization: %w", err)
		}
	}

	if s.storage != nil {
		if err := s.storage.CheckBucket(ctx); err != nil {
			// Exports fail until the bucket is reachable; the rest of the hub still serves.
			log.Error(err, "Export bucket is not available")
		}
	}

	if err := s.serverManager.Start(ctx); err != nil {
		return err
	}

	log.Info("fleet-hub stopped gracefully")
	return nil
}
