package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpeer/internal/pkg/hubclient"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	pkgmqtt "github.com/autopeer-io/fleetpeer/pkg/mqtt"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

func newHubClient(t *testing.T, url string) *hubclient.Client {
	t.Helper()
	opts := options.NewHubClientOptions()
	opts.Server = url
	c, err := hubclient.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	c.SetToken("tok")
	return c
}

func TestHTTPPusher(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind Kind
		wantCode string
	}{
		{"ok", http.StatusOK, 0, ""},
		{"expired session", http.StatusUnauthorized, KindAuth, CodeAuth},
		{"not a driver", http.StatusForbidden, KindForbidden, CodePermissionDenied},
		{"bad coordinates", http.StatusBadRequest, KindInvalid, CodeInvalidData},
		{"overloaded", http.StatusServiceUnavailable, KindNetwork, CodeNetwork},
		{"server bug", http.StatusInternalServerError, KindUnknown, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got v1.Position
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/api/v1/positions/me" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("missing bearer token")
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(got)
			}))
			defer srv.Close()

			p := NewHTTPPusher(newHubClient(t, srv.URL))
			err := p.Push(context.Background(), &v1.Position{Latitude: 10, Longitude: 20, Speed: 36})

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Push() error = %v", err)
				}
				if got.Latitude != 10 || got.Speed != 36 {
					t.Errorf("hub received %+v", got)
				}
				return
			}

			var pe *PushError
			if !errors.As(err, &pe) || pe.Kind != tt.wantKind || Code(err) != tt.wantCode {
				t.Fatalf("Push() error = %v, want kind %v", err, tt.wantKind)
			}
			if tt.status == http.StatusUnauthorized && !errors.Is(err, ErrUnauthorized) {
				t.Errorf("401 must wrap ErrUnauthorized")
			}
		})
	}
}

func TestHTTPPusherNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPPusher(newHubClient(t, url)).Push(context.Background(), &v1.Position{})
	if Code(err) != CodeNetwork {
		t.Fatalf("Push() to a closed server = %v, want NETWORK_ERROR", err)
	}
}

type publishRecorder struct {
	mu      sync.Mutex
	topic   string
	qos     int
	payload []byte
	count   int
	err     error
}

func (p *publishRecorder) Publish(_ context.Context, topic string, qos int, _ bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topic, p.qos, p.payload = topic, qos, payload
	p.count++
	return nil
}

func (p *publishRecorder) published() (int, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count, p.payload
}

type staticSession struct {
	token     string
	expiresAt time.Time
}

func (s staticSession) Token() string        { return s.token }
func (s staticSession) ExpiresAt() time.Time { return s.expiresAt }

func TestMQTTPusher(t *testing.T) {
	rec := &publishRecorder{}
	p := NewMQTTPusher(rec, topic.NewBuilder("fleet/v1"), "d-1", staticSession{token: "tok"})

	if err := p.Push(context.Background(), &v1.Position{Latitude: 1, Longitude: 2}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if rec.topic != "fleet/v1/position/d-1" || rec.qos != 1 {
		t.Errorf("published on %q qos %d", rec.topic, rec.qos)
	}

	var report v1.PositionReport
	if err := json.Unmarshal(rec.payload, &report); err != nil {
		t.Fatal(err)
	}
	if report.Token != "tok" || report.Position.DriverID != "d-1" || report.Position.Longitude != 2 {
		t.Errorf("report = %+v", report)
	}

	rec.err = pkgmqtt.ErrNotStarted
	if err := p.Push(context.Background(), &v1.Position{}); Code(err) != CodeNetwork {
		t.Errorf("Push() with broker down = %v, want NETWORK_ERROR", err)
	}
}

func TestMQTTPusherRefusesExpiredSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		session  staticSession
		wantCode string
	}{
		{"valid", staticSession{token: "tok", expiresAt: now.Add(time.Hour)}, ""},
		{"unknown expiry", staticSession{token: "tok"}, ""},
		{"expired", staticSession{token: "tok", expiresAt: now.Add(-time.Minute)}, CodeAuth},
		{"expiring within skew", staticSession{token: "tok", expiresAt: now.Add(expirySkew / 2)}, CodeAuth},
		{"signed out", staticSession{}, CodeAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &publishRecorder{}
			p := NewMQTTPusher(rec, topic.NewBuilder("fleet/v1"), "d-1", tt.session)
			p.clock = clocktesting.NewFakePassiveClock(now)

			err := p.Push(context.Background(), &v1.Position{Latitude: 1})
			count, _ := rec.published()
			if tt.wantCode == "" {
				if err != nil || count != 1 {
					t.Fatalf("Push() = %v with %d publishes, want one publish", err, count)
				}
				return
			}
			if Code(err) != tt.wantCode || !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Push() error = %v, want %s wrapping ErrUnauthorized", err, tt.wantCode)
			}
			if count != 0 {
				t.Errorf("report published with an unusable session")
			}
		})
	}
}
