package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpeer/internal/pkg/util"
)

// CreateDriverRequest is the body of the driver account creation endpoint.
type CreateDriverRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	AdminID  string `json:"adminId" validate:"required"`
}

// CreateDriver provisions a driver account in the organization of the admin
// named by the request. The caller must be that admin. The identity is
// created first; if the profile write fails the identity is deleted again.
func (s *Service) CreateDriver(ctx context.Context, caller *model.Principal, req *CreateDriverRequest) (*model.User, error) {
	in := *req
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.validate.Struct(&in); err != nil {
		metrics.AccountProvisioning.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidArgument, describeValidation(err))
	}

	if caller == nil || caller.UserID != in.AdminID {
		metrics.AccountProvisioning.WithLabelValues("forbidden").Inc()
		return nil, model.ErrForbidden
	}

	admin, err := s.repo.Users().Get(ctx, in.AdminID)
	if err != nil && !errors.Is(err, util.ErrNotFound) {
		metrics.AccountProvisioning.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil || !admin.IsAdmin() || admin.OrganizationID == "" {
		metrics.AccountProvisioning.WithLabelValues("forbidden").Inc()
		return nil, model.ErrForbidden
	}

	user, err := s.provision(ctx, in.Name, in.Email, in.Password, admin.OrganizationID, model.RoleDriver)
	switch {
	case err == nil:
		metrics.AccountProvisioning.WithLabelValues("created").Inc()
		s.logger.Info("Driver account created", "userID", user.ID, "organizationID", user.OrganizationID, "adminID", admin.ID)
		return user, nil
	case errors.Is(err, util.ErrAlreadyExists):
		metrics.AccountProvisioning.WithLabelValues("conflict").Inc()
	case errors.Is(err, model.ErrProvisioning):
		metrics.AccountProvisioning.WithLabelValues("compensated").Inc()
	default:
		metrics.AccountProvisioning.WithLabelValues("error").Inc()
	}
	return nil, err
}

// provision writes the identity and then the profile row, both under the same id.
func (s *Service) provision(ctx context.Context, name, email, password, organizationID string, role model.Role) (*model.User, error) {
	if _, err := s.repo.Identities().GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s is already registered", util.ErrAlreadyExists, email)
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	identity := &model.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.repo.Identities().Create(ctx, identity); err != nil {
		if errors.Is(err, util.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email %s is already registered", util.ErrAlreadyExists, email)
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	user := &model.User{
		ID:             identity.ID,
		Name:           name,
		Email:          email,
		OrganizationID: organizationID,
		Role:           role,
		CreatedAt:      now,
	}
	if err := s.repo.Users().Create(ctx, user); err != nil {
		if derr := s.repo.Identities().Delete(ctx, identity.ID); derr != nil {
			s.logger.Error(derr, "Failed to roll back identity after profile error", "identityID", identity.ID)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrProvisioning, err)
	}

	return user, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
