package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
)

// claims is the payload of a session token. The jti carries the session id.
type claims struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer signs session tokens with HS256.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ core.TokenIssuer = (*JWTIssuer)(nil)

// NewJWTIssuer returns an issuer signing with secret. now may be nil.
func NewJWTIssuer(secret, issuer string, now func() time.Time) *JWTIssuer {
	if now == nil {
		now = time.Now
	}
	return &JWTIssuer{secret: []byte(secret), issuer: issuer, now: now}
}

func (j *JWTIssuer) Issue(p *model.Principal, expiresAt time.Time) (string, error) {
	if p == nil || p.UserID == "" || p.SessionID == "" {
		return "", fmt.Errorf("principal with user and session id is required")
	}

	c := claims{
		Email:          p.Email,
		Role:           string(p.Role),
		OrganizationID: p.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   p.UserID,
			ID:        p.SessionID,
			IssuedAt:  jwt.NewNumericDate(j.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (j *JWTIssuer) Parse(token string) (*model.Principal, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", model.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	role := model.Role(c.Role)
	if c.Subject == "" || c.ID == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", model.ErrUnauthenticated)
	}

	return &model.Principal{
		UserID:         c.Subject,
		Email:          c.Email,
		Role:           role,
		OrganizationID: c.OrganizationID,
		SessionID:      c.ID,
	}, nil
}
