package app

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gosuri/uitable"

	"github.com/autopeer-io/fleetpeer/internal/admin"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

func printProfile(out io.Writer, p *v1.Profile) {
	table := uitable.New()
	table.AddRow("ID:", p.ID)
	table.AddRow("NAME:", p.Name)
	table.AddRow("EMAIL:", p.Email)
	table.AddRow("ROLE:", p.Role)
	org := p.OrganizationName
	if org == "" {
		org = "-"
	}
	table.AddRow("ORGANIZATION:", org)
	fmt.Fprintln(out, table)
}

func printDrivers(out io.Writer, drivers []admin.DriverView, counts admin.Counts) {
	table := uitable.New()
	table.MaxColWidth = 32
	table.AddRow("ID", "NAME", "EMAIL", "STATUS", "LATITUDE", "LONGITUDE", "SPEED", "UPDATED")
	for _, d := range drivers {
		lat, lng, speed, updated := "-", "-", "-", "never"
		if p := d.Position; p != nil {
			lat = strconv.FormatFloat(p.Latitude, 'f', 6, 64)
			lng = strconv.FormatFloat(p.Longitude, 'f', 6, 64)
			speed = fmt.Sprintf("%.1f km/h", p.Speed)
			updated = p.UpdatedAt.Local().Format(time.DateTime)
		}
		table.AddRow(d.ID, d.Name, d.Email, d.Status, lat, lng, speed, updated)
	}
	fmt.Fprintln(out, table)
	printCounts(out, counts)
}

func printCounts(out io.Writer, c admin.Counts) {
	fmt.Fprintf(out, "\n%d drivers, %d online, %d offline, average speed %.1f km/h\n", c.Total, c.Online, c.Offline, c.AvgSpeed)
}

func printExport(out io.Writer, e *v1.Export) {
	table := uitable.New()
	table.AddRow("OBJECT:", e.Object)
	table.AddRow("ROWS:", e.Rows)
	table.AddRow("EXPIRES:", e.ExpiresAt.Local().Format(time.DateTime))
	table.AddRow("URL:", e.URL)
	fmt.Fprintln(out, table)
}
