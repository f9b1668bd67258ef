package admin

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// Marker colors by status.
const (
	ColorOnline  = "#22c55e"
	ColorOffline = "#6b7280"
)

// moveEpsilon is the smallest change in degrees that moves a marker.
const moveEpsilon = 1e-6

var (
	ErrUnknownMarker = errors.New("no marker for driver")
	ErrViewClosed    = errors.New("view is closed")
)

// Marker is what a widget draws for one driver.
type Marker struct {
	DriverID  string
	Title     string
	Latitude  float64
	Longitude float64
	Status    Status
	Color     string
	Info      string
}

// MarkerRef identifies a marker inside a widget.
type MarkerRef any

// Widget is the map the view draws on.
type Widget interface {
	CreateMarker(m Marker) (MarkerRef, error)
	UpdateMarker(ref MarkerRef, m Marker) error
	RemoveMarker(ref MarkerRef)
	OpenInfoPanel(ref MarkerRef, content string)
	CloseInfoPanel(ref MarkerRef)
	Center(lat, lng float64)
}

// Stats counts the widget calls made by one Reconcile.
type Stats struct {
	Created int
	Updated int
	Removed int
}

type markerEntry struct {
	ref       MarkerRef
	marker    Marker
	panelOpen bool
}

// View owns the markers drawn for one admin session. Reconcile makes the
// widget match a driver set with the fewest widget calls; markers keep
// their identity across updates.
type View struct {
	widget Widget
	logger log.Logger

	mu       sync.Mutex
	markers  map[string]*markerEntry
	selected string
	closed   bool
}

func NewView(widget Widget) *View {
	return &View{
		widget:  widget,
		logger:  log.WithName("view"),
		markers: make(map[string]*markerEntry),
	}
}

// MarkerFor builds the marker of a driver. ok is false for drivers that
// have never reported a position.
func MarkerFor(d DriverView) (m Marker, ok bool) {
	if d.Position == nil {
		return Marker{}, false
	}
	color, label := ColorOffline, "Offline"
	if d.Online() {
		color, label = ColorOnline, "Online"
	}

	var info strings.Builder
	fmt.Fprintf(&info, "%s\n", d.Name)
	fmt.Fprintf(&info, "Status: %s\n", label)
	fmt.Fprintf(&info, "Speed: %.1f km/h\n", d.Position.Speed)
	if !d.Position.UpdatedAt.IsZero() {
		fmt.Fprintf(&info, "Updated: %s", d.Position.UpdatedAt.Local().Format("15:04:05"))
	}

	return Marker{
		DriverID:  d.ID,
		Title:     fmt.Sprintf("%s (%s)", d.Name, d.Status),
		Latitude:  d.Position.Latitude,
		Longitude: d.Position.Longitude,
		Status:    d.Status,
		Color:     color,
		Info:      strings.TrimRight(info.String(), "\n"),
	}, true
}

// Reconcile updates the widget to show drivers. Widget errors do not stop
// the pass; they are returned together at the end.
func (v *View) Reconcile(drivers []DriverView) (Stats, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var stats Stats
	if v.closed {
		return stats, ErrViewClosed
	}

	next := make(map[string]Marker, len(drivers))
	order := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if m, ok := MarkerFor(d); ok {
			// A repeated id keeps one marker showing its last entry.
			if _, seen := next[d.ID]; !seen {
				order = append(order, d.ID)
			}
			next[d.ID] = m
		}
	}

	var errs []error
	for id, e := range v.markers {
		m, ok := next[id]
		if !ok {
			v.widget.RemoveMarker(e.ref)
			delete(v.markers, id)
			if v.selected == id {
				v.selected = ""
			}
			stats.Removed++
			continue
		}
		delete(next, id)

		if !changed(e.marker, m) {
			continue
		}
		if err := v.widget.UpdateMarker(e.ref, m); err != nil {
			errs = append(errs, fmt.Errorf("update marker %s: %w", id, err))
			continue
		}
		e.marker = m
		if e.panelOpen {
			v.widget.OpenInfoPanel(e.ref, m.Info)
		}
		stats.Updated++
	}

	for _, id := range order {
		m, ok := next[id]
		if !ok {
			continue
		}
		ref, err := v.widget.CreateMarker(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("create marker %s: %w", id, err))
			continue
		}
		v.markers[id] = &markerEntry{ref: ref, marker: m}
		stats.Created++
	}

	if stats != (Stats{}) {
		v.logger.Debug("Markers reconciled", "created", stats.Created, "updated", stats.Updated, "removed", stats.Removed)
	}
	return stats, utilerrors.NewAggregate(errs)
}

// Apply is a poller Sink that reconciles and logs failures.
func (v *View) Apply(drivers []DriverView) {
	if _, err := v.Reconcile(drivers); err != nil && !errors.Is(err, ErrViewClosed) {
		v.logger.Error(err, "Marker reconciliation failed")
	}
}

func changed(old, m Marker) bool {
	return math.Abs(old.Latitude-m.Latitude) > moveEpsilon ||
		math.Abs(old.Longitude-m.Longitude) > moveEpsilon ||
		old.Status != m.Status
}

// Select opens the info panel of a driver, closing any other open panel.
func (v *View) Select(driverID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := v.selectLocked(driverID)
	return err
}

// CenterOn centers the widget on a driver and selects it.
func (v *View) CenterOn(driverID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, err := v.selectLocked(driverID)
	if err != nil {
		return err
	}
	v.widget.Center(e.marker.Latitude, e.marker.Longitude)
	return nil
}

func (v *View) selectLocked(driverID string) (*markerEntry, error) {
	if v.closed {
		return nil, ErrViewClosed
	}
	target, ok := v.markers[driverID]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownMarker, driverID)
	}

	for id, e := range v.markers {
		if id != driverID && e.panelOpen {
			v.widget.CloseInfoPanel(e.ref)
			e.panelOpen = false
		}
	}
	v.widget.OpenInfoPanel(target.ref, target.marker.Info)
	target.panelOpen = true
	v.selected = driverID
	return target, nil
}

// Deselect closes the open info panel, if any.
func (v *View) Deselect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.markers[v.selected]; ok && e.panelOpen {
		v.widget.CloseInfoPanel(e.ref)
		e.panelOpen = false
	}
	v.selected = ""
}

// Selected returns the id of the selected driver, or "".
func (v *View) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Len returns the number of markers on the widget.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.markers)
}

// Close removes every marker. The view cannot be used afterwards.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	for id, e := range v.markers {
		v.widget.RemoveMarker(e.ref)
		delete(v.markers, id)
	}
	v.selected = ""
	v.closed = true
}
