package core

import (
	"context"
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

// OrganizationRepository stores organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error

	// Get returns util.ErrNotFound if the organization does not exist.
	Get(ctx context.Context, id string) (*model.Organization, error)
}

// UserRepository stores profile rows.
type UserRepository interface {
	// Create returns util.ErrAlreadyExists if the id or email is taken.
	Create(ctx context.Context, user *model.User) error

	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// ListDrivers returns the drivers of an organization ordered by name.
	ListDrivers(ctx context.Context, organizationID string) ([]*model.User, error)
}

// IdentityRepository stores credentials.
type IdentityRepository interface {
	// Create returns util.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, identity *model.Identity) error

	GetByEmail(ctx context.Context, email string) (*model.Identity, error)

	// Delete removes an identity. Deleting a missing identity is not an error.
	Delete(ctx context.Context, id string) error
}

// SessionRepository stores signed-in sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired before now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PositionRepository stores the latest position of each driver.
type PositionRepository interface {
	// Upsert inserts or overwrites the row keyed by DriverID.
	Upsert(ctx context.Context, pos *model.Position) error

	// Latest returns the most recent position of a driver, or util.ErrNotFound.
	Latest(ctx context.Context, driverID string) (*model.Position, error)
}

// Repository groups the repositories of one backing store.
type Repository interface {
	Organizations() OrganizationRepository
	Users() UserRepository
	Identities() IdentityRepository
	Sessions() SessionRepository
	Positions() PositionRepository

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
