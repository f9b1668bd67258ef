package model

import "time"

// Role is the kind of account a user holds.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDriver
}

// Organization groups the drivers managed by its admins.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// User is the profile row of an account. Its ID equals the ID of the
// Identity holding its credentials.
type User struct {
	ID             string
	Name           string
	Email          string
	OrganizationID string
	Role           Role
	CreatedAt      time.Time
}

// IsAdmin reports whether the user administers an organization.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsDriver reports whether the user reports positions.
func (u *User) IsDriver() bool {
	return u != nil && u.Role == RoleDriver
}

// Identity holds the credentials of an account.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is a signed-in token. Deleting it revokes the token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID         string
	Email          string
	Role           Role
	OrganizationID string
	SessionID      string
}

// Profile is a user together with the name of its organization.
type Profile struct {
	User
	OrganizationName string
}
