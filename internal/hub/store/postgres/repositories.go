package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

type organizations struct{ pool *pgxpool.Pool }

func (r *organizations) Create(ctx context.Context, org *model.Organization) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)`,
		org.ID, org.Name, org.CreatedAt)
	return translate(err)
}

func (r *organizations) Get(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &org, nil
}

type users struct{ pool *pgxpool.Pool }

const userColumns = `id, name, email, COALESCE(organization_id, ''), role, created_at`

func (r *users) Create(ctx context.Context, u *model.User) error {
	var org *string
	if u.OrganizationID != "" {
		org = &u.OrganizationID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, organization_id, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, org, string(u.Role), u.CreatedAt)
	return translate(err)
}

func (r *users) Get(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *users) ListDrivers(ctx context.Context, organizationID string) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = $1 AND role = $2 ORDER BY name, id`,
		organizationID, string(model.RoleDriver))
	if err != nil {
		return nil, fmt.Errorf("query drivers: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drivers: %w", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.OrganizationID, &role, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

type identities struct{ pool *pgxpool.Pool }

func (r *identities) Create(ctx context.Context, id *model.Identity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		id.ID, id.Email, id.PasswordHash, id.CreatedAt)
	return translate(err)
}

func (r *identities) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var id model.Identity
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`, email).
		Scan(&id.ID, &id.Email, &id.PasswordHash, &id.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &id, nil
}

func (r *identities) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return translate(err)
}

type sessions struct{ pool *pgxpool.Pool }

func (r *sessions) Create(ctx context.Context, s *model.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	return translate(err)
}

func (r *sessions) Get(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessions) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return translate(err)
}

func (r *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

type positions struct{ pool *pgxpool.Pool }

func (r *positions) Upsert(ctx context.Context, p *model.Position) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO positions (driver_id, latitude, longitude, speed, heading, accuracy, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (driver_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			speed = EXCLUDED.speed,
			heading = EXCLUDED.heading,
			accuracy = EXCLUDED.accuracy,
			updated_at = EXCLUDED.updated_at`,
		p.DriverID, p.Latitude, p.Longitude, p.Speed, p.Heading, p.Accuracy, p.UpdatedAt)
	return translate(err)
}

func (r *positions) Latest(ctx context.Context, driverID string) (*model.Position, error) {
	var p model.Position
	err := r.pool.QueryRow(ctx, `
		SELECT driver_id, latitude, longitude, speed, heading, accuracy, updated_at
		FROM positions WHERE driver_id = $1
		ORDER BY updated_at DESC LIMIT 1`, driverID).
		Scan(&p.DriverID, &p.Latitude, &p.Longitude, &p.Speed, &p.Heading, &p.Accuracy, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}
