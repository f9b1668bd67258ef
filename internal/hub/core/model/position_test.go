package model

import (
	"errors"
	"testing"
	"time"
)

func TestIsOnline(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 60 * time.Second

	tests := []struct {
		name string
		pos  *Position
		want bool
	}{
		{"no position", nil, false},
		{"10s old", &Position{UpdatedAt: now.Add(-10 * time.Second)}, true},
		{"59s old", &Position{UpdatedAt: now.Add(-59 * time.Second)}, true},
		{"just under 60s", &Position{UpdatedAt: now.Add(-60*time.Second + time.Millisecond)}, true},
		{"exactly 60s is offline", &Position{UpdatedAt: now.Add(-60 * time.Second)}, false},
		{"61s old", &Position{UpdatedAt: now.Add(-61 * time.Second)}, false},
		{"90s old", &Position{UpdatedAt: now.Add(-90 * time.Second)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnline(tt.pos, now, window); got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositionValidate(t *testing.T) {
	valid := Position{DriverID: "d-1", Latitude: -23.55, Longitude: -46.63, Speed: 40, Heading: 90, Accuracy: 5}

	tests := []struct {
		name    string
		mutate  func(p *Position)
		wantErr bool
	}{
		{"valid", func(p *Position) {}, false},
		{"zero values", func(p *Position) { p.Speed, p.Heading, p.Accuracy = 0, 0, 0 }, false},
		{"missing driver", func(p *Position) { p.DriverID = "" }, true},
		{"latitude 91", func(p *Position) { p.Latitude = 91 }, true},
		{"longitude -181", func(p *Position) { p.Longitude = -181 }, true},
		{"negative speed", func(p *Position) { p.Speed = -1 }, true},
		{"heading 361", func(p *Position) { p.Heading = 361 }, true},
		{"negative accuracy", func(p *Position) { p.Accuracy = -3 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("error %v does not wrap ErrInvalidPosition", err)
			}
		})
	}
}
