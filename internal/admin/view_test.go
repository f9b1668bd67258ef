package admin

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

type fakeWidget struct {
	next       int
	markers    map[int]Marker
	open       map[int]string
	center     [2]float64
	creates    int
	updates    int
	removes    int
	failCreate string
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{markers: map[int]Marker{}, open: map[int]string{}}
}

func (w *fakeWidget) CreateMarker(m Marker) (MarkerRef, error) {
	if m.DriverID == w.failCreate {
		return nil, errors.New("widget refused marker")
	}
	w.next++
	w.creates++
	w.markers[w.next] = m
	return w.next, nil
}

func (w *fakeWidget) UpdateMarker(ref MarkerRef, m Marker) error {
	w.updates++
	w.markers[ref.(int)] = m
	return nil
}

func (w *fakeWidget) RemoveMarker(ref MarkerRef) {
	w.removes++
	delete(w.markers, ref.(int))
	delete(w.open, ref.(int))
}

func (w *fakeWidget) OpenInfoPanel(ref MarkerRef, content string) { w.open[ref.(int)] = content }
func (w *fakeWidget) CloseInfoPanel(ref MarkerRef)                { delete(w.open, ref.(int)) }
func (w *fakeWidget) Center(lat, lng float64)                     { w.center = [2]float64{lat, lng} }

func (w *fakeWidget) refOf(driverID string) int {
	for ref, m := range w.markers {
		if m.DriverID == driverID {
			return ref
		}
	}
	return 0
}

func driverAt(id string, status Status, lat, lng float64) DriverView {
	return DriverView{
		ID:       id,
		Name:     strings.ToUpper(id),
		Status:   status,
		Position: &v1.Position{Latitude: lat, Longitude: lng, Speed: 30, UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func TestReconcile(t *testing.T) {
	w := newFakeWidget()
	v := NewView(w)

	initial := []DriverView{
		driverAt("a", StatusOnline, 1, 1),
		driverAt("b", StatusOffline, 2, 2),
		{ID: "c", Name: "C", Status: StatusOffline},
	}
	stats, err := v.Reconcile(initial)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{Created: 2}) || v.Len() != 2 {
		t.Fatalf("first Reconcile() = %+v with %d markers, want 2 created and none for the driver without position", stats, v.Len())
	}

	stats, _ = v.Reconcile(initial)
	if stats != (Stats{}) {
		t.Errorf("Reconcile() with the same input = %+v, want no changes", stats)
	}

	tests := []struct {
		name    string
		drivers []DriverView
		want    Stats
	}{
		{
			name:    "jitter below threshold",
			drivers: []DriverView{driverAt("a", StatusOnline, 1+5e-7, 1), driverAt("b", StatusOffline, 2, 2-5e-7)},
			want:    Stats{},
		},
		{
			name:    "move",
			drivers: []DriverView{driverAt("a", StatusOnline, 1.001, 1), driverAt("b", StatusOffline, 2, 2)},
			want:    Stats{Updated: 1},
		},
		{
			name:    "status change",
			drivers: []DriverView{driverAt("a", StatusOnline, 1.001, 1), driverAt("b", StatusOnline, 2, 2)},
			want:    Stats{Updated: 1},
		},
		{
			name:    "remove and add",
			drivers: []DriverView{driverAt("a", StatusOnline, 1.001, 1), driverAt("d", StatusOnline, 4, 4)},
			want:    Stats{Created: 1, Removed: 1},
		},
	}
	for _, tt := range tests {
		got, err := v.Reconcile(tt.drivers)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: Reconcile() = %+v, want %+v", tt.name, got, tt.want)
		}
	}

	if m := w.markers[w.refOf("b")]; m.DriverID != "" {
		t.Errorf("marker of removed driver still on widget")
	}
	if m := w.markers[w.refOf("a")]; m.Latitude != 1.001 || m.Color != ColorOnline {
		t.Errorf("marker a = %+v", m)
	}
}

func TestReconcileRepeatedDriver(t *testing.T) {
	w := newFakeWidget()
	v := NewView(w)

	stats, err := v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1), driverAt("a", StatusOffline, 2, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if stats != (Stats{Created: 1}) || len(w.markers) != 1 || v.Len() != 1 {
		t.Fatalf("Reconcile() = %+v with %d widget markers, want one marker per driver", stats, len(w.markers))
	}
	if m := w.markers[w.refOf("a")]; m.Latitude != 2 || m.Status != StatusOffline {
		t.Errorf("marker a = %+v, want the last entry", m)
	}

	v.Close()
	if len(w.markers) != 0 {
		t.Errorf("Close() left %d markers", len(w.markers))
	}
}

func TestSelectKeepsOnePanelOpen(t *testing.T) {
	w := newFakeWidget()
	v := NewView(w)
	if _, err := v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1), driverAt("b", StatusOffline, 2, 2)}); err != nil {
		t.Fatal(err)
	}

	if err := v.Select("a"); err != nil {
		t.Fatal(err)
	}
	if err := v.CenterOn("b"); err != nil {
		t.Fatal(err)
	}
	if len(w.open) != 1 || w.open[w.refOf("b")] == "" {
		t.Fatalf("open panels = %v, want only b", w.open)
	}
	if w.center != [2]float64{2, 2} || v.Selected() != "b" {
		t.Errorf("center = %v selected = %q", w.center, v.Selected())
	}

	if err := v.Select("ghost"); !errors.Is(err, ErrUnknownMarker) {
		t.Errorf("Select(unknown) error = %v", err)
	}

	v.Deselect()
	if len(w.open) != 0 || v.Selected() != "" {
		t.Errorf("Deselect() left %v open", w.open)
	}
}

func TestSelectionSurvivesUpdates(t *testing.T) {
	w := newFakeWidget()
	v := NewView(w)
	_, _ = v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1), driverAt("b", StatusOnline, 2, 2)})
	refA := w.refOf("a")
	if err := v.Select("a"); err != nil {
		t.Fatal(err)
	}

	_, _ = v.Reconcile([]DriverView{driverAt("a", StatusOffline, 1.5, 1), driverAt("b", StatusOnline, 2, 2)})
	if w.refOf("a") != refA {
		t.Errorf("marker identity changed on update")
	}
	if v.Selected() != "a" || !strings.Contains(w.open[refA], "Status: Offline") {
		t.Errorf("open panel = %q, want refreshed content for the selected driver", w.open[refA])
	}

	_, _ = v.Reconcile([]DriverView{driverAt("b", StatusOnline, 2, 2)})
	if v.Selected() != "" {
		t.Errorf("selection kept after its marker was removed")
	}
}

func TestReconcileCollectsWidgetErrors(t *testing.T) {
	w := newFakeWidget()
	w.failCreate = "b"
	v := NewView(w)

	stats, err := v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1), driverAt("b", StatusOnline, 2, 2), driverAt("c", StatusOnline, 3, 3)})
	if err == nil || !strings.Contains(err.Error(), "create marker b") {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if stats.Created != 2 {
		t.Errorf("Created = %d, want the other markers drawn", stats.Created)
	}

	// The failed marker is retried on the next pass.
	w.failCreate = ""
	stats, err = v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1), driverAt("b", StatusOnline, 2, 2), driverAt("c", StatusOnline, 3, 3)})
	if err != nil || stats != (Stats{Created: 1}) {
		t.Errorf("retry = %+v, %v", stats, err)
	}
}

func TestViewClose(t *testing.T) {
	w := newFakeWidget()
	v := NewView(w)
	_, _ = v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1)})

	v.Close()
	v.Close()
	if len(w.markers) != 0 {
		t.Errorf("Close() left %d markers", len(w.markers))
	}
	if _, err := v.Reconcile([]DriverView{driverAt("a", StatusOnline, 1, 1)}); !errors.Is(err, ErrViewClosed) {
		t.Errorf("Reconcile() after Close error = %v", err)
	}
	v.Apply([]DriverView{driverAt("a", StatusOnline, 1, 1)})
	if w.creates != 1 {
		t.Errorf("closed view drew markers")
	}
}

func TestMarkerFor(t *testing.T) {
	m, ok := MarkerFor(driverAt("a", StatusOnline, 1, 2))
	if !ok || m.Color != ColorOnline || m.Title != "A (online)" {
		t.Errorf("MarkerFor(online) = %+v", m)
	}
	if !strings.Contains(m.Info, "Speed: 30.0 km/h") {
		t.Errorf("Info = %q", m.Info)
	}

	m, _ = MarkerFor(driverAt("b", StatusOffline, 1, 2))
	if m.Color != ColorOffline {
		t.Errorf("offline color = %s", m.Color)
	}

	if _, ok := MarkerFor(DriverView{ID: "c"}); ok {
		t.Errorf("driver without position got a marker")
	}
}

func TestTableWidget(t *testing.T) {
	w := NewTableWidget()
	v := NewView(w)
	_, _ = v.Reconcile([]DriverView{driverAt("alice", StatusOnline, -23.5, -46.6), driverAt("bob", StatusOffline, -23.6, -46.7)})
	if err := v.CenterOn("bob"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := w.Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"DRIVER", "ALICE (online)", "BOB (offline)", "-23.600000", ColorOffline, "centered on -23.600000, -46.700000", "Status: Offline"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ALICE") > strings.Index(out, "BOB") {
		t.Errorf("rows not sorted by title")
	}

	v.Close()
	buf.Reset()
	_ = w.Render(&buf)
	if strings.Contains(buf.String(), "ALICE") {
		t.Errorf("markers still rendered after Close")
	}
}
