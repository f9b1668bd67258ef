package model

import (
	"fmt"
	"math"
	"time"
)

// Position is the latest fix of a driver. There is at most one per driver.
type Position struct {
	DriverID  string
	Latitude  float64
	Longitude float64
	// Speed in km/h.
	Speed float64
	// Heading in degrees clockwise from north.
	Heading float64
	// Accuracy radius in meters.
	Accuracy  float64
	UpdatedAt time.Time
}

// Validate rejects coordinates and metrics that cannot come from a GPS fix.
func (p *Position) Validate() error {
	switch {
	case p.DriverID == "":
		return fmt.Errorf("%w: driver id is required", ErrInvalidPosition)
	case math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidPosition, p.Latitude)
	case math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidPosition, p.Longitude)
	case p.Speed < 0 || math.IsNaN(p.Speed):
		return fmt.Errorf("%w: negative speed", ErrInvalidPosition)
	case p.Heading < 0 || p.Heading > 360 || math.IsNaN(p.Heading):
		return fmt.Errorf("%w: heading %v out of range", ErrInvalidPosition, p.Heading)
	case p.Accuracy < 0 || math.IsNaN(p.Accuracy):
		return fmt.Errorf("%w: negative accuracy", ErrInvalidPosition)
	}
	return nil
}

// IsOnline applies the freshness rule: a driver is online when it has a
// position updated less than window ago. A position exactly window old is offline.
func IsOnline(p *Position, now time.Time, window time.Duration) bool {
	return p != nil && now.Sub(p.UpdatedAt) < window
}

// DriverView is one roster entry: a driver and its latest position, if any.
type DriverView struct {
	ID       string
	Name     string
	Email    string
	Position *Position
	Online   bool
}

// Roster is the set of drivers of one organization at GeneratedAt.
type Roster struct {
	OrganizationID string
	Drivers        []DriverView
	GeneratedAt    time.Time
}

// OnlineCount returns how many drivers are online.
func (r *Roster) OnlineCount() int {
	n := 0
	for i := range r.Drivers {
		if r.Drivers[i].Online {
			n++
		}
	}
	return n
}

// ChangeEvent tells subscribers that a row of Table changed.
type ChangeEvent struct {
	Table          string
	Op             string
	DriverID       string
	OrganizationID string
	At             time.Time
}

const (
	TablePositions = "positions"
	OpUpsert       = "upsert"
)

// Export is a roster snapshot stored in object storage.
type Export struct {
	Object    string
	URL       string
	Rows      int
	ExpiresAt time.Time
}
