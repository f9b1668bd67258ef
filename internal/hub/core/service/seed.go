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

// SeedRequest describes the organization and admin created on first start.
type SeedRequest struct {
	Organization  string `validate:"required"`
	AdminName     string `validate:"required"`
	AdminEmail    string `validate:"required,email"`
	AdminPassword string `validate:"required,min=6"`
}

// Bootstrap creates an organization and its first admin. It does nothing
// when an account with the admin email already exists.
func (s *Service) Bootstrap(ctx context.Context, req *SeedRequest) error {
	in := *req
	in.AdminEmail = strings.ToLower(strings.TrimSpace(in.AdminEmail))
	if err := s.validate.Struct(&in); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidArgument, describeValidation(err))
	}

	if existing, err := s.repo.Users().GetByEmail(ctx, in.AdminEmail); err == nil {
		s.logger.Info("Seed admin already exists, skipping bootstrap", "userID", existing.ID)
		return nil
	} else if !errors.Is(err, util.ErrNotFound) {
		return fmt.Errorf("failed to check seed admin: %w", err)
	}

	org := &model.Organization{
		ID:        uuid.NewString(),
		Name:      in.Organization,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Organizations().Create(ctx, org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	admin, err := s.provision(ctx, in.AdminName, in.AdminEmail, in.AdminPassword, org.ID, model.RoleAdmin)
	if err != nil {
		return err
	}

	s.logger.Info("Bootstrapped organization", "organizationID", org.ID, "name", org.Name, "adminID", admin.ID)
	return nil
}
