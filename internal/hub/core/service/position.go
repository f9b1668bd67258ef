package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
)

// Ingress sources, used as metric labels.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// ReportPosition stores the latest position of the calling driver and
// publishes a change event. The driver id and timestamp are taken from the
// caller and the hub clock, never from the payload.
func (s *Service) ReportPosition(ctx context.Context, caller *model.Principal, pos *model.Position, source string) (*model.Position, error) {
	if caller == nil || caller.Role != model.RoleDriver {
		metrics.PositionUpserts.WithLabelValues(source, "forbidden").Inc()
		return nil, model.ErrForbidden
	}

	stored := *pos
	stored.DriverID = caller.UserID
	stored.UpdatedAt = s.clock.Now().UTC()

	if err := stored.Validate(); err != nil {
		metrics.PositionUpserts.WithLabelValues(source, "invalid").Inc()
		return nil, err
	}

	if err := s.repo.Positions().Upsert(ctx, &stored); err != nil {
		metrics.PositionUpserts.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("failed to upsert position: %w", err)
	}
	metrics.PositionUpserts.WithLabelValues(source, "success").Inc()

	s.notify(ctx, &model.ChangeEvent{
		Table:          model.TablePositions,
		Op:             model.OpUpsert,
		DriverID:       stored.DriverID,
		OrganizationID: caller.OrganizationID,
		At:             stored.UpdatedAt,
	})

	return &stored, nil
}

// LatestPosition returns the latest position of a driver. Admins may read
// drivers of their own organization and drivers may read themselves.
func (s *Service) LatestPosition(ctx context.Context, caller *model.Principal, driverID string) (*model.Position, error) {
	if caller == nil {
		return nil, model.ErrUnauthenticated
	}

	if caller.UserID != driverID {
		if caller.Role != model.RoleAdmin {
			return nil, model.ErrForbidden
		}
		driver, err := s.repo.Users().Get(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if !driver.IsDriver() || driver.OrganizationID == "" || driver.OrganizationID != caller.OrganizationID {
			return nil, util.ErrNotFound
		}
	}

	pos, err := s.repo.Positions().Latest(ctx, driverID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	return pos, nil
}

// notify publishes best effort. A failure never fails the write that caused it.
func (s *Service) notify(ctx context.Context, ev *model.ChangeEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Error(err, "Failed to publish change event", "table", ev.Table, "driverID", ev.DriverID)
	}
}
