package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
)

// Roster lists every driver of an organization with its latest position and
// online status. Drivers without a position are included as offline.
func (s *Service) Roster(ctx context.Context, organizationID string) (*model.Roster, error) {
	if organizationID == "" {
		return nil, model.ErrNoOrganization
	}

	start := s.clock.Now()
	roster, err := s.roster(ctx, organizationID)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.RosterLatency.WithLabelValues(result).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	online := roster.OnlineCount()
	metrics.RosterDrivers.WithLabelValues(organizationID, "online").Set(float64(online))
	metrics.RosterDrivers.WithLabelValues(organizationID, "offline").Set(float64(len(roster.Drivers) - online))
	return roster, nil
}

// RosterFor runs Roster for the organization of an admin.
func (s *Service) RosterFor(ctx context.Context, caller *model.Principal) (*model.Roster, error) {
	if caller == nil || caller.Role != model.RoleAdmin {
		return nil, model.ErrForbidden
	}
	return s.Roster(ctx, caller.OrganizationID)
}

func (s *Service) roster(ctx context.Context, organizationID string) (*model.Roster, error) {
	drivers, err := s.repo.Users().ListDrivers(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	// Each goroutine owns one slot, so no lock is needed.
	positions := make([]*model.Position, len(drivers))

	var g errgroup.Group
	g.SetLimit(s.rosterConcurrency)
	for i, d := range drivers {
		g.Go(func() error {
			pos, err := s.repo.Positions().Latest(ctx, d.ID)
			switch {
			case err == nil:
				positions[i] = pos
			case errors.Is(err, util.ErrNotFound):
			default:
				s.logger.Error(err, "Failed to load driver position, treating as offline", "driverID", d.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	roster := &model.Roster{
		OrganizationID: organizationID,
		Drivers:        make([]model.DriverView, len(drivers)),
		GeneratedAt:    now,
	}
	for i, d := range drivers {
		roster.Drivers[i] = model.DriverView{
			ID:       d.ID,
			Name:     d.Name,
			Email:    d.Email,
			Position: positions[i],
			Online:   model.IsOnline(positions[i], now, s.onlineWindow),
		}
	}
	return roster, nil
}

// rosterRecords renders a roster as CSV rows with a header.
func rosterRecords(r *model.Roster) [][]string {
	records := make([][]string, 0, len(r.Drivers)+1)
	records = append(records, []string{"id", "name", "email", "status", "latitude", "longitude", "speed_kmh", "heading", "accuracy_m", "updated_at"})

	for _, d := range r.Drivers {
		status := "offline"
		if d.Online {
			status = "online"
		}
		row := []string{d.ID, d.Name, d.Email, status, "", "", "", "", "", ""}
		if p := d.Position; p != nil {
			row[4] = strconv.FormatFloat(p.Latitude, 'f', 6, 64)
			row[5] = strconv.FormatFloat(p.Longitude, 'f', 6, 64)
			row[6] = strconv.FormatFloat(p.Speed, 'f', 1, 64)
			row[7] = strconv.FormatFloat(p.Heading, 'f', 0, 64)
			row[8] = strconv.FormatFloat(p.Accuracy, 'f', 0, 64)
			row[9] = p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		records = append(records, row)
	}
	return records
}
