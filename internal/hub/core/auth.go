package core

import (
	"time"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

// TokenIssuer signs and parses session tokens.
type TokenIssuer interface {
	// Issue returns a token for p that expires at expiresAt.
	Issue(p *model.Principal, expiresAt time.Time) (string, error)

	// Parse verifies a token and returns its principal. It does not check revocation.
	Parse(token string) (*model.Principal, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Compare returns model.ErrInvalidCredentials on mismatch.
	Compare(hash, password string) error
}
