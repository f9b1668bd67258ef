package model

import "errors"

var (
	// ErrNoOrganization means the admin account is not attached to any organization.
	ErrNoOrganization = errors.New("no organization")

	// ErrForbidden means the caller lacks the role or scope for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials means the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means the session token is missing, invalid, expired or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidArgument means a request body failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidPosition means a position report failed validation.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrProvisioning means an account could not be fully created.
	ErrProvisioning = errors.New("account provisioning failed")

	// ErrExportDisabled means no object storage is configured.
	ErrExportDisabled = errors.New("roster export is disabled")
)
