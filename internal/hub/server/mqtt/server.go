package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/convert"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/adapter"
	"github.com/autopeer-io/fleetpeer/internal/pkg/mqtt/paths"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// Server implements the MQTT ingress layer.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	svc    *service.Service
	logger log.Logger
}

// NewServer creates a new MQTT server (client).
func NewServer(client pkgmqtt.Client, builder *topic.Builder, svc *service.Service) *Server {
	return &Server{
		client: client,
		topics: builder,
		svc:    svc,
		logger: log.WithName("mqtt-ingress"),
	}
}

// Start connects to the broker and subscribes to topics.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	s.logger.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	s.logger.Info("MQTT Connected")

	if err := s.initMQTTSubscriptions(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	const qos = 1

	subscriptions := map[string]adapter.HandlerFunc{
		paths.Position: adapter.JSONHandler[v1.PositionReport](s.handlePosition),
	}

	for segment, handler := range subscriptions {
		fullTopic := s.topics.Shared(paths.GroupHub).BuildWildcard(segment)
		if err := s.client.Subscribe(ctx, fullTopic, qos, func(c context.Context, t string, p []byte) {
			if handleErr := handler(c, t, p); handleErr != nil {
				s.logger.Error(handleErr, "Handler execution failed", "topic", t)
			}
		}); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", fullTopic, err)
		}
	}

	return nil
}

// handlePosition authenticates the embedded token and stores the fix. The
// driver id in the topic must be the token subject.
func (s *Server) handlePosition(ctx context.Context, t string, msg *v1.PositionReport) error {
	driverID, ok := s.topics.ParseID(paths.Position, t)
	if !ok {
		return fmt.Errorf("unexpected position topic %q", t)
	}

	caller, err := s.svc.Authenticate(ctx, msg.Token)
	if err != nil {
		return fmt.Errorf("position from %s rejected: %w", driverID, err)
	}
	if caller.UserID != driverID {
		return fmt.Errorf("position from %s rejected: %w: topic does not match token subject", driverID, model.ErrForbidden)
	}

	if _, err := s.svc.ReportPosition(ctx, caller, convert.PositionFromV1(&msg.Position), service.SourceMQTT); err != nil {
		return fmt.Errorf("failed to store position of %s: %w", driverID, err)
	}
	return nil
}
