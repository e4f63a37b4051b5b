package service

import (
	"context"
	"errors"

	"claimdesk/internal/auth/models"
	"claimdesk/pkg/domain"
	dErrors "claimdesk/pkg/domain-errors"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/requestcontext"
)

// SeedAdmin makes sure an administrator named username exists. An existing
// account with that name is promoted instead of recreated; its password is left alone.
// Reports whether a new account was created.
func (s *Service) SeedAdmin(ctx context.Context, username, emailAddr, plain string) (*models.User, bool, error) {
	req := &models.RegisterRequest{Username: username, Email: emailAddr, Password: plain}
	req.Normalize()

	existing, err := s.users.FindByUsername(ctx, req.Username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			if err := s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin, requestcontext.Now(ctx)); err != nil {
				return nil, false, storeError(err, "failed to promote bootstrap admin")
			}
			existing.Role = domain.RoleAdmin
		}
		return existing, false, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, false, storeError(err, "failed to load bootstrap admin")
	}

	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u := models.NewUser(req.Username, req.Email, hash, requestcontext.Now(ctx))
	u.Role = domain.RoleAdmin
	if err := s.users.Create(ctx, u); err != nil {
		return nil, false, storeError(err, "failed to create bootstrap admin")
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "user_id", u.ID, "username", u.Username)
	return u, true, nil
}
