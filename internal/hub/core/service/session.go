package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
)

// SignInResult is a freshly created session.
type SignInResult struct {
	Token   string
	Session *model.Session
	Profile *model.Profile
}

// SignIn verifies the credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.ErrInvalidCredentials
	}

	identity, err := s.repo.Identities().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if err := s.hasher.Compare(identity.PasswordHash, password); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().Get(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			// Identity without profile: a provisioning leftover.
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	now := s.clock.Now().UTC()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(&model.Principal{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		SessionID:      session.ID,
	}, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed in", "userID", user.ID, "role", user.Role)
	return &SignInResult{Token: token, Session: session, Profile: profile}, nil
}

// Authenticate resolves a bearer token into a principal. The session must
// still exist and not be expired.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	p, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.Sessions().Get(ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, fmt.Errorf("%w: session revoked", model.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != p.UserID || !s.clock.Now().Before(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", model.ErrUnauthenticated)
	}
	return p, nil
}

// SignOut revokes the session of the caller.
func (s *Service) SignOut(ctx context.Context, caller *model.Principal) error {
	if caller == nil {
		return model.ErrUnauthenticated
	}
	return s.repo.Sessions().Delete(ctx, caller.SessionID)
}

// Profile returns the profile of the caller.
func (s *Service) Profile(ctx context.Context, caller *model.Principal) (*model.Profile, error) {
	if caller == nil {
		return nil, model.ErrUnauthenticated
	}
	user, err := s.repo.Users().Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.Sessions().DeleteExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if n > 0 {
		s.logger.Debug("Purged expired sessions", "count", n)
	}
	return n, nil
}

func (s *Service) profile(ctx context.Context, user *model.User) (*model.Profile, error) {
	p := &model.Profile{User: *user}
	if user.OrganizationID == "" {
		return p, nil
	}
	org, err := s.repo.Organizations().Get(ctx, user.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	p.OrganizationName = org.Name
	return p, nil
}
