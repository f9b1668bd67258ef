package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) (org *model.Organization, admin, alice, bob *model.User) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	org = &model.Organization{ID: "org-1", Name: "Acme Logistics", CreatedAt: now}
	other := &model.Organization{ID: "org-2", Name: "Other", CreatedAt: now}
	for _, o := range []*model.Organization{org, other} {
		if err := s.Organizations().Create(ctx, o); err != nil {
			t.Fatalf("create org: %v", err)
		}
	}

	admin = &model.User{ID: "u-admin", Name: "Ana", Email: "ana@acme.test", OrganizationID: "org-1", Role: model.RoleAdmin, CreatedAt: now}
	alice = &model.User{ID: "u-alice", Name: "Alice", Email: "alice@acme.test", OrganizationID: "org-1", Role: model.RoleDriver, CreatedAt: now}
	bob = &model.User{ID: "u-bob", Name: "Bob", Email: "bob@acme.test", OrganizationID: "org-1", Role: model.RoleDriver, CreatedAt: now}
	carl := &model.User{ID: "u-carl", Name: "Carl", Email: "carl@other.test", OrganizationID: "org-2", Role: model.RoleDriver, CreatedAt: now}
	for _, u := range []*model.User{admin, bob, alice, carl} {
		if err := s.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user %s: %v", u.ID, err)
		}
	}
	return org, admin, alice, bob
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, admin, _, _ := seed(t, s)

	got, err := s.Users().GetByEmail(ctx, "ana@acme.test")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != admin.ID || !got.IsAdmin() || got.OrganizationID != "org-1" {
		t.Errorf("GetByEmail() = %+v", got)
	}

	if _, err := s.Users().Get(ctx, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	dup := &model.User{ID: "u-dup", Name: "Dup", Email: "ana@acme.test", Role: model.RoleDriver, CreatedAt: time.Now()}
	if err := s.Users().Create(ctx, dup); !errors.Is(err, util.ErrAlreadyExists) {
		t.Errorf("Create(duplicate email) error = %v, want ErrAlreadyExists", err)
	}

	drivers, err := s.Users().ListDrivers(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListDrivers() error = %v", err)
	}
	if len(drivers) != 2 || drivers[0].Name != "Alice" || drivers[1].Name != "Bob" {
		t.Errorf("ListDrivers() = %+v, want Alice then Bob", drivers)
	}
}

func TestUserWithoutOrganization(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := &model.User{ID: "u-1", Name: "Loose", Email: "loose@test", Role: model.RoleAdmin, CreatedAt: time.Now()}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := s.Users().Get(ctx, "u-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.OrganizationID != "" {
		t.Errorf("OrganizationID = %q, want empty", got.OrganizationID)
	}
}

func TestPositionUpsertKeepsOneRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _, alice, _ := seed(t, s)

	if _, err := s.Positions().Latest(ctx, alice.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("Latest() before upsert error = %v, want ErrNotFound", err)
	}

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := &model.Position{DriverID: alice.ID, Latitude: -23.5, Longitude: -46.6, Speed: 36, Heading: 90, Accuracy: 8, UpdatedAt: t0}
	second := &model.Position{DriverID: alice.ID, Latitude: -23.6, Longitude: -46.7, UpdatedAt: t0.Add(15*time.Second + 250*time.Millisecond)}

	for _, p := range []*model.Position{first, second} {
		if err := s.Positions().Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	var rows int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions;`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("positions rows = %d, want 1", rows)
	}

	got, err := s.Positions().Latest(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.Latitude != -23.6 || got.Speed != 0 || !got.UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("Latest() = %+v, want second report", got)
	}
}

func TestPositionRequiresKnownDriver(t *testing.T) {
	s := openTestStore(t)
	p := &model.Position{DriverID: "ghost", UpdatedAt: time.Now()}
	if err := s.Positions().Upsert(context.Background(), p); err == nil {
		t.Fatalf("Upsert() for unknown driver should violate the foreign key")
	}
}

func TestIdentitiesAndSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _, alice, _ := seed(t, s)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id := &model.Identity{ID: alice.ID, Email: alice.Email, PasswordHash: "hash", CreatedAt: now}
	if err := s.Identities().Create(ctx, id); err != nil {
		t.Fatalf("Create identity: %v", err)
	}
	if err := s.Identities().Create(ctx, &model.Identity{ID: "other", Email: alice.Email, CreatedAt: now}); !errors.Is(err, util.ErrAlreadyExists) {
		t.Errorf("duplicate identity email error = %v", err)
	}
	if err := s.Identities().Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete identity: %v", err)
	}
	if _, err := s.Identities().GetByEmail(ctx, alice.Email); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("GetByEmail after delete error = %v", err)
	}

	live := &model.Session{ID: "s-live", UserID: alice.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	dead := &model.Session{ID: "s-dead", UserID: alice.ID, ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour)}
	for _, sess := range []*model.Session{live, dead} {
		if err := s.Sessions().Create(ctx, sess); err != nil {
			t.Fatalf("Create session: %v", err)
		}
	}

	n, err := s.Sessions().DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired() = %d, %v; want 1", n, err)
	}
	if _, err := s.Sessions().Get(ctx, "s-live"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
	if err := s.Sessions().Delete(ctx, "s-live"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Sessions().Get(ctx, "s-live"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("Get after Delete error = %v", err)
	}
}
