// Package admin is the live fleet view of an administrator: a poller that
// keeps the roster of the organization fresh and a view that reconciles it
// onto the markers of a map widget.
package admin

import (
	"context"
	"errors"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

// ErrNoOrganization is returned when the administrator is not attached to
// an organization. There is nothing to poll until that is fixed.
var ErrNoOrganization = errors.New("administrator has no organization")

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DriverView is a roster entry as shown to the administrator.
type DriverView struct {
	ID       string
	Name     string
	Email    string
	Status   Status
	Position *v1.Position
}

func (d DriverView) Online() bool { return d.Status == StatusOnline }

// FromRoster converts a hub roster into view models, keeping its order.
func FromRoster(r *v1.Roster) []DriverView {
	out := make([]DriverView, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		v := DriverView{ID: d.ID, Name: d.Name, Email: d.Email, Status: StatusOffline}
		if d.Online {
			v.Status = StatusOnline
		}
		if d.Position != nil {
			p := *d.Position
			v.Position = &p
		}
		out = append(out, v)
	}
	return out
}

// Counts summarises a driver set. AvgSpeed is the mean km/h over all
// drivers, counting those without a position as stationary.
type Counts struct {
	Total    int
	Online   int
	Offline  int
	AvgSpeed float64
}

func Count(drivers []DriverView) Counts {
	c := Counts{Total: len(drivers)}
	var speed float64
	for _, d := range drivers {
		if d.Online() {
			c.Online++
		} else {
			c.Offline++
		}
		if d.Position != nil {
			speed += d.Position.Speed
		}
	}
	if c.Total > 0 {
		c.AvgSpeed = speed / float64(c.Total)
	}
	return c
}

type Filter string

const (
	FilterAll     Filter = "all"
	FilterOnline  Filter = "online"
	FilterOffline Filter = "offline"
)

func (f Filter) Valid() bool {
	return f == FilterAll || f == FilterOnline || f == FilterOffline
}

// Apply returns the drivers matching the filter.
func (f Filter) Apply(drivers []DriverView) []DriverView {
	if f == FilterAll || f == "" {
		return drivers
	}
	out := make([]DriverView, 0, len(drivers))
	for _, d := range drivers {
		if string(d.Status) == string(f) {
			out = append(out, d)
		}
	}
	return out
}

// RosterSource fetches the roster of the signed-in administrator.
type RosterSource interface {
	Roster(ctx context.Context) (*v1.Roster, error)
}

// ChangeFeed delivers change events. Events are hints that the roster may
// be stale; they carry no row data.
type ChangeFeed interface {
	Subscribe(ctx context.Context, fn func(v1.ChangeEvent)) (unsubscribe func(), err error)
}
