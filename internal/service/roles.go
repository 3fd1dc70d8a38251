package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/runclub-api/internal/model"
	"github.com/iliyamo/runclub-api/internal/repository"
)

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrRoleNotFound):
		return ErrRoleNotFound
	}
	return err
}

// ListRoles returns the role catalog.
func (s *AuthService) ListRoles(ctx context.Context) ([]model.RoleEntry, error) {
	return s.roles.List(ctx)
}

// AssignRole grants a catalog role to a user.
func (s *AuthService) AssignRole(ctx context.Context, userID, roleName string) error {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return err
	}
	if err := s.users.AssignRole(ctx, userID, role); err != nil {
		return mapStoreErr(err)
	}
	s.log.InfoContext(ctx, "role assigned", "user_id", userID, "role", role.String())
	return nil
}

// AssignRoleByEmail is AssignRole keyed by login email.  Used by the
// admin CLI to create the first Admin.
func (s *AuthService) AssignRoleByEmail(ctx context.Context, email, roleName string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, mapStoreErr(err)
	}
	if err := s.AssignRole(ctx, u.ID, roleName); err != nil {
		return model.User{}, err
	}
	return s.GetUser(ctx, u.ID)
}

// RemoveRole takes a role away from a user.
func (s *AuthService) RemoveRole(ctx context.Context, userID, roleName string) error {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return mapStoreErr(err)
	}
	if err := s.users.RemoveRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "role removed", "user_id", userID, "role", role.String())
	return nil
}

// DeleteRole removes a role from the catalog.  Admin and Runner, the
// role every registration is given, are protected.
func (s *AuthService) DeleteRole(ctx context.Context, roleName string) error {
	role, err := model.ParseRole(roleName)
	if err != nil {
		return err
	}
	if role == model.RoleAdmin || role == model.RoleRunner {
		return ErrProtectedRole
	}
	ok, err := s.roles.Delete(ctx, role)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if !ok {
		return ErrRoleNotFound
	}
	s.log.WarnContext(ctx, "role deleted from catalog", "role", role.String())
	return nil
}

// GetUser loads one user.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, mapStoreErr(err)
	}
	return u, nil
}

// DeleteUser removes the account entirely.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	ok, err := s.users.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	s.log.InfoContext(ctx, "account deleted", "user_id", userID)
	return nil
}
