// Package v1 contains the JSON wire types of the hub API, the MQTT payloads
// and the change feed. Field names follow the camelCase of the HTTP API.
package v1

import "time"

// Position is a driver location fix. Speed is in km/h, heading in degrees
// clockwise from north and accuracy in meters.
type Position struct {
	DriverID  string    `json:"driverId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Accuracy  float64   `json:"accuracy"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// PositionReport is the MQTT payload published by drivers on
// {root}/position/{driverID}. Token is the session token of the driver.
type PositionReport struct {
	Token    string   `json:"token"`
	Position Position `json:"position"`
}

// Driver is one roster entry.
type Driver struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Online   bool      `json:"online"`
	Position *Position `json:"position,omitempty"`
}

// Roster is the response of GET /api/v1/roster.
type Roster struct {
	OrganizationID string    `json:"organizationId"`
	GeneratedAt    time.Time `json:"generatedAt"`
	Total          int       `json:"total"`
	Online         int       `json:"online"`
	Drivers        []Driver  `json:"drivers"`
}

// ChangeEvent signals that a row changed. It carries no row data; receivers
// re-read the source of truth.
type ChangeEvent struct {
	Table          string    `json:"table"`
	Op             string    `json:"op"`
	DriverID       string    `json:"driverId"`
	OrganizationID string    `json:"organizationId"`
	At             time.Time `json:"at"`
}

// CreateDriverRequest is the body of POST /api/admin/drivers.
type CreateDriverRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AdminID  string `json:"adminId"`
}

// UserSummary is the user object returned on account creation.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateDriverResponse is the success body of POST /api/admin/drivers.
type CreateDriverResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SignInRequest is the body of POST /api/v1/auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the authenticated user.
type Profile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// SignInResponse carries a bearer token.
type SignInResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Profile   Profile   `json:"profile"`
}

// Export is the response of POST /api/v1/roster/exports.
type Export struct {
	Object    string    `json:"object"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}
