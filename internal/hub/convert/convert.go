// Package convert maps hub model types to the JSON wire types of pkg/api/v1.
package convert

import (
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

// PositionFromV1 returns the model position of a reported fix. The driver
// id and timestamp are left for the service to set.
func PositionFromV1(p *v1.Position) *model.Position {
	return &model.Position{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Speed:     p.Speed,
		Heading:   p.Heading,
		Accuracy:  p.Accuracy,
	}
}

func Position(p *model.Position) *v1.Position {
	if p == nil {
		return nil
	}
	return &v1.Position{
		DriverID:  p.DriverID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Speed:     p.Speed,
		Heading:   p.Heading,
		Accuracy:  p.Accuracy,
		UpdatedAt: p.UpdatedAt,
	}
}

func Roster(r *model.Roster) *v1.Roster {
	out := &v1.Roster{
		OrganizationID: r.OrganizationID,
		GeneratedAt:    r.GeneratedAt,
		Total:          len(r.Drivers),
		Online:         r.OnlineCount(),
		Drivers:        make([]v1.Driver, 0, len(r.Drivers)),
	}
	for i := range r.Drivers {
		d := &r.Drivers[i]
		out.Drivers = append(out.Drivers, v1.Driver{
			ID:       d.ID,
			Name:     d.Name,
			Email:    d.Email,
			Online:   d.Online,
			Position: Position(d.Position),
		})
	}
	return out
}

func Profile(p *model.Profile) v1.Profile {
	return v1.Profile{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Role:             string(p.Role),
		OrganizationID:   p.OrganizationID,
		OrganizationName: p.OrganizationName,
	}
}

func ChangeEvent(ev *model.ChangeEvent) v1.ChangeEvent {
	return v1.ChangeEvent{
		Table:          ev.Table,
		Op:             ev.Op,
		DriverID:       ev.DriverID,
		OrganizationID: ev.OrganizationID,
		At:             ev.At,
	}
}

func Export(e *model.Export) v1.Export {
	return v1.Export{Object: e.Object, URL: e.URL, Rows: e.Rows, ExpiresAt: e.ExpiresAt}
}
