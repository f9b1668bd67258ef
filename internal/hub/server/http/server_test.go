package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/autopeer-io/fleetpeer/internal/hub/auth"
	"github.com/autopeer-io/fleetpeer/internal/hub/changefeed"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/internal/hub/store/sqlite"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

type testHub struct {
	handler http.Handler
	store   *sqlite.Store
	svc     *service.Service
	hasher  *auth.BcryptHasher
	broker  *changefeed.Broker
}

func newTestHub(t *testing.T, checks map[string]ReadyCheck) *testHub {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "hub.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	broker := changefeed.NewBroker(8)
	svc := service.New(store, broker, nil, auth.NewJWTIssuer("0123456789abcdef", "fleet-hub", nil), hasher)

	if err := svc.Bootstrap(ctx, &service.SeedRequest{Organization: "Acme", AdminName: "Ana", AdminEmail: "ana@acme.test", AdminPassword: "secret1"}); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(options.NewHttpOptions(), svc, broker, checks)
	return &testHub{handler: srv.Handler(), store: store, svc: svc, hasher: hasher, broker: broker}
}

func (h *testHub) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *testHub) signIn(t *testing.T, email, password string) v1.SignInResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", v1.SignInRequest{Email: email, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var res v1.SignInResponse
	decode(t, rec, &res)
	return res
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestCreateDriverEndpoint(t *testing.T) {
	h := newTestHub(t, nil)
	admin := h.signIn(t, "ana@acme.test", "secret1")

	valid := v1.CreateDriverRequest{Name: "Bruno", Email: "bruno@acme.test", Password: "secret1", AdminID: admin.Profile.ID}

	rec := h.do(t, http.MethodPost, "/api/admin/drivers", admin.Token, valid)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var created v1.CreateDriverResponse
	decode(t, rec, &created)
	if !created.Success || created.User.Email != "bruno@acme.test" || created.User.ID == "" || created.Message == "" {
		t.Errorf("response = %+v", created)
	}

	driver := h.signIn(t, "bruno@acme.test", "secret1")

	tests := []struct {
		name   string
		token  string
		body   any
		status int
	}{
		{"no token", "", valid, http.StatusUnauthorized},
		{"malformed body", admin.Token, "{", http.StatusBadRequest},
		{"short password", admin.Token, v1.CreateDriverRequest{Name: "X", Email: "x@acme.test", Password: "123", AdminID: admin.Profile.ID}, http.StatusBadRequest},
		{"missing admin id", admin.Token, v1.CreateDriverRequest{Name: "X", Email: "x@acme.test", Password: "secret1"}, http.StatusBadRequest},
		{"driver caller", driver.Token, v1.CreateDriverRequest{Name: "X", Email: "x@acme.test", Password: "secret1", AdminID: driver.Profile.ID}, http.StatusForbidden},
		{"duplicate email", admin.Token, valid, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/admin/drivers", tt.token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			var e v1.ErrorResponse
			decode(t, rec, &e)
			if e.Success || e.Error == "" {
				t.Errorf("error body = %+v", e)
			}
		})
	}
}

func TestPositionsAndRoster(t *testing.T) {
	h := newTestHub(t, nil)
	admin := h.signIn(t, "ana@acme.test", "secret1")

	for _, name := range []string{"bruno", "carla"} {
		rec := h.do(t, http.MethodPost, "/api/admin/drivers", admin.Token,
			v1.CreateDriverRequest{Name: name, Email: name + "@acme.test", Password: "secret1", AdminID: admin.Profile.ID})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: %d %s", name, rec.Code, rec.Body)
		}
	}
	bruno := h.signIn(t, "bruno@acme.test", "secret1")

	events, cancel := h.broker.Subscribe(admin.Profile.OrganizationID)
	defer cancel()

	rec := h.do(t, http.MethodPut, "/api/v1/positions/me", bruno.Token, v1.Position{Latitude: -23.55, Longitude: -46.63, Speed: 42})
	if rec.Code != http.StatusOK {
		t.Fatalf("report: %d %s", rec.Code, rec.Body)
	}

	select {
	case ev := <-events:
		if ev.DriverID != bruno.Profile.ID {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}

	if rec := h.do(t, http.MethodPut, "/api/v1/positions/me", bruno.Token, v1.Position{Latitude: 120}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid position status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPut, "/api/v1/positions/me", admin.Token, v1.Position{}); rec.Code != http.StatusForbidden {
		t.Errorf("admin report status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/roster", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("roster: %d %s", rec.Code, rec.Body)
	}
	var roster v1.Roster
	decode(t, rec, &roster)
	if roster.Total != 2 || roster.Online != 1 {
		t.Fatalf("roster counts = %d/%d, want 1/2", roster.Online, roster.Total)
	}
	if d := roster.Drivers[0]; d.Name != "bruno" || !d.Online || d.Position == nil || d.Position.Speed != 42 {
		t.Errorf("bruno = %+v", d)
	}
	if d := roster.Drivers[1]; d.Name != "carla" || d.Online || d.Position != nil {
		t.Errorf("carla = %+v", d)
	}

	if rec := h.do(t, http.MethodGet, "/api/v1/roster", bruno.Token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("driver roster status = %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/drivers/"+bruno.Profile.ID+"/position", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("driver position: %d %s", rec.Code, rec.Body)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/drivers/ghost/position", admin.Token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown driver status = %d", rec.Code)
	}
}

func TestRosterWithoutOrganization(t *testing.T) {
	h := newTestHub(t, nil)
	ctx := context.Background()

	hash, err := h.hasher.Hash("secret1")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	if err := h.store.Identities().Create(ctx, &model.Identity{ID: "u-loose", Email: "loose@acme.test", PasswordHash: hash, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := h.store.Users().Create(ctx, &model.User{ID: "u-loose", Name: "Loose", Email: "loose@acme.test", Role: model.RoleAdmin, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	loose := h.signIn(t, "loose@acme.test", "secret1")
	rec := h.do(t, http.MethodGet, "/api/v1/roster", loose.Token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var e v1.ErrorResponse
	decode(t, rec, &e)
	if e.Error != model.ErrNoOrganization.Error() {
		t.Errorf("error = %q", e.Error)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestHub(t, nil)

	if rec := h.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", v1.SignInRequest{Email: "ana@acme.test", Password: "nope"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", rec.Code)
	}

	admin := h.signIn(t, "ana@acme.test", "secret1")

	rec := h.do(t, http.MethodGet, "/api/v1/auth/session", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session: %d", rec.Code)
	}
	var p v1.Profile
	decode(t, rec, &p)
	if p.Role != "admin" || p.OrganizationName != "Acme" {
		t.Errorf("profile = %+v", p)
	}

	if rec := h.do(t, http.MethodPost, "/api/v1/auth/sign-out", admin.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("sign-out status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/auth/session", admin.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("session after sign-out status = %d", rec.Code)
	}
}

func TestExportDisabled(t *testing.T) {
	h := newTestHub(t, nil)
	admin := h.signIn(t, "ana@acme.test", "secret1")

	if rec := h.do(t, http.MethodPost, "/api/v1/roster/exports", admin.Token, nil); rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestProbes(t *testing.T) {
	healthy := newTestHub(t, map[string]ReadyCheck{"store": func(context.Context) error { return nil }})
	if rec := healthy.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := healthy.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
	if rec := healthy.do(t, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}

	broken := newTestHub(t, map[string]ReadyCheck{"mqtt": func(context.Context) error { return errors.New("not connected") }})
	if rec := broken.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d", rec.Code)
	}
	if rec := broken.do(t, http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d", rec.Code)
	}
}
