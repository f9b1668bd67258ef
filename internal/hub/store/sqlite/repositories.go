package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

type organizations struct{ db *sql.DB }

func (r *organizations) Create(ctx context.Context, org *model.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?);`,
		org.ID, org.Name, formatTime(org.CreatedAt))
	return translate(err)
}

func (r *organizations) Get(ctx context.Context, id string) (*model.Organization, error) {
	var (
		org     model.Organization
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?;`, id).
		Scan(&org.ID, &org.Name, &created)
	if err != nil {
		return nil, translate(err)
	}
	if org.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &org, nil
}

type users struct{ db *sql.DB }

const userColumns = `id, name, email, organization_id, role, created_at`

func (r *users) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?);`,
		u.ID, u.Name, u.Email, nullable(u.OrganizationID), string(u.Role), formatTime(u.CreatedAt))
	return translate(err)
}

func (r *users) Get(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?;`, id))
}

func (r *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?;`, email))
}

func (r *users) ListDrivers(ctx context.Context, organizationID string) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = ? AND role = ? ORDER BY name, id;`,
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

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u       model.User
		org     sql.NullString
		role    string
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &org, &role, &created); err != nil {
		return nil, translate(err)
	}
	u.OrganizationID = org.String
	u.Role = model.Role(role)

	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}

type identities struct{ db *sql.DB }

func (r *identities) Create(ctx context.Context, id *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at) VALUES (?, ?, ?, ?);`,
		id.ID, id.Email, id.PasswordHash, formatTime(id.CreatedAt))
	return translate(err)
}

func (r *identities) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var (
		id      model.Identity
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = ?;`, email).
		Scan(&id.ID, &id.Email, &id.PasswordHash, &created)
	if err != nil {
		return nil, translate(err)
	}
	if id.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *identities) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?;`, id)
	return translate(err)
}

type sessions struct{ db *sql.DB }

func (r *sessions) Create(ctx context.Context, s *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?);`,
		s.ID, s.UserID, formatTime(s.ExpiresAt), formatTime(s.CreatedAt))
	return translate(err)
}

func (r *sessions) Get(ctx context.Context, id string) (*model.Session, error) {
	var (
		s                model.Session
		expires, created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?;`, id).
		Scan(&s.ID, &s.UserID, &expires, &created)
	if err != nil {
		return nil, translate(err)
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessions) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	return translate(err)
}

func (r *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?;`, formatTime(now))
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

type positions struct{ db *sql.DB }

func (r *positions) Upsert(ctx context.Context, p *model.Position) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (driver_id, latitude, longitude, speed, heading, accuracy, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(driver_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			speed = excluded.speed,
			heading = excluded.heading,
			accuracy = excluded.accuracy,
			updated_at = excluded.updated_at;`,
		p.DriverID, p.Latitude, p.Longitude, p.Speed, p.Heading, p.Accuracy, formatTime(p.UpdatedAt))
	return translate(err)
}

func (r *positions) Latest(ctx context.Context, driverID string) (*model.Position, error) {
	var (
		p       model.Position
		updated string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT driver_id, latitude, longitude, speed, heading, accuracy, updated_at
		FROM positions WHERE driver_id = ?
		ORDER BY updated_at DESC LIMIT 1;`, driverID).
		Scan(&p.DriverID, &p.Latitude, &p.Longitude, &p.Speed, &p.Heading, &p.Accuracy, &updated)
	if err != nil {
		return nil, translate(err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}
