package admin

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/gosuri/uitable"
)

// TableWidget is a Widget that renders markers as a terminal table.
type TableWidget struct {
	mu      sync.Mutex
	nextRef int
	rows    map[int]*tableRow
	center  *[2]float64
}

type tableRow struct {
	marker Marker
	info   string
	open   bool
}

var _ Widget = (*TableWidget)(nil)

func NewTableWidget() *TableWidget {
	return &TableWidget{rows: make(map[int]*tableRow)}
}

func (w *TableWidget) CreateMarker(m Marker) (MarkerRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextRef++
	w.rows[w.nextRef] = &tableRow{marker: m}
	return w.nextRef, nil
}

func (w *TableWidget) UpdateMarker(ref MarkerRef, m Marker) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	row, err := w.row(ref)
	if err != nil {
		return err
	}
	row.marker = m
	return nil
}

func (w *TableWidget) RemoveMarker(ref MarkerRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := ref.(int); ok {
		delete(w.rows, id)
	}
}

func (w *TableWidget) OpenInfoPanel(ref MarkerRef, content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if row, err := w.row(ref); err == nil {
		row.open, row.info = true, content
	}
}

func (w *TableWidget) CloseInfoPanel(ref MarkerRef) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if row, err := w.row(ref); err == nil {
		row.open = false
	}
}

func (w *TableWidget) Center(lat, lng float64) {
	w.mu.Lock()
	w.center = &[2]float64{lat, lng}
	w.mu.Unlock()
}

func (w *TableWidget) row(ref MarkerRef) (*tableRow, error) {
	id, ok := ref.(int)
	if !ok {
		return nil, fmt.Errorf("foreign marker ref %v", ref)
	}
	row, ok := w.rows[id]
	if !ok {
		return nil, fmt.Errorf("marker %d does not exist", id)
	}
	return row, nil
}

// Render writes the markers ordered by title, then the open info panel.
func (w *TableWidget) Render(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := make([]*tableRow, 0, len(w.rows))
	for _, r := range w.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].marker.Title < rows[j].marker.Title })

	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("", "DRIVER", "STATUS", "LATITUDE", "LONGITUDE", "COLOR")
	var open *tableRow
	for _, r := range rows {
		sel := ""
		if r.open {
			sel, open = "*", r
		}
		table.AddRow(sel, r.marker.Title, r.marker.Status,
			strconv.FormatFloat(r.marker.Latitude, 'f', 6, 64),
			strconv.FormatFloat(r.marker.Longitude, 'f', 6, 64),
			r.marker.Color)
	}

	if _, err := fmt.Fprintln(out, table); err != nil {
		return err
	}
	if w.center != nil {
		if _, err := fmt.Fprintf(out, "\ncentered on %.6f, %.6f\n", w.center[0], w.center[1]); err != nil {
			return err
		}
	}
	if open != nil {
		if _, err := fmt.Fprintf(out, "\n%s\n", open.info); err != nil {
			return err
		}
	}
	return nil
}
