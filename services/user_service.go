package services

import (
	"context"
	"errors"
	"strings"

	"traveltales/models"
	"traveltales/store"
	apierrors "traveltales/utils/errors"
	"traveltales/utils/validation"
)

type UserService struct {
	store            store.UserStore
	cache            UserCache
	auth             *AuthService
	allowAdminSignup bool
}

func NewUserService(users store.UserStore, cache UserCache, auth *AuthService, allowAdminSignup bool) *UserService {
	return &UserService{
		store:            users,
		cache:            cache,
		auth:             auth,
		allowAdminSignup: allowAdminSignup,
	}
}

// GetUser retrieves a user from Redis or the store
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if user, ok := s.cache.GetUser(ctx, userID); ok {
		return user, nil
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User not found", "get user")
	}
	s.cache.SetUser(ctx, user)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apierrors.Dependency(err, "list users")
	}
	return users, nil
}

// UpdateUser applies a partial profile edit. Only the user or an admin may edit.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, userID string, update models.UserUpdate) (*models.User, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, apierrors.Forbidden("Not authorized")
	}
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		update.Username = &trimmed
	}
	if update.Email != nil {
		normalized := normalizeEmail(*update.Email)
		update.Email = &normalized
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateUser(ctx, userID, update)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apierrors.Conflict("Email is already registered")
		}
		return nil, storeError(err, "User not found", "update user")
	}
	s.cache.InvalidateUser(ctx, userID)
	return user, nil
}

func (s *UserService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	if !validation.Var(role, "oneof=user admin") {
		return nil, apierrors.Validation("Invalid role value")
	}
	user, err := s.store.SetRole(ctx, userID, role)
	if err != nil {
		return nil, storeError(err, "User not found", "set role")
	}
	s.cache.InvalidateUser(ctx, userID)
	return user, nil
}

// DeleteUser removes the user document only. Routes, comments and follow
// edges that reference it are left in place and resolve as a deleted user.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeError(err, "User not found", "delete user")
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// Summaries resolves display identities for ids. Ids of deleted users map
// to a placeholder instead of failing the read.
func (s *UserService) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	var misses []string
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if user, ok := s.cache.GetUser(ctx, id); ok {
			out[id] = user.Summary()
			continue
		}
		out[id] = models.MissingUserSummary(id)
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	users, err := s.store.GetUsers(ctx, misses)
	if err != nil {
		return nil, apierrors.Dependency(err, "get users")
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
		s.cache.SetUser(ctx, &users[i])
	}
	return out, nil
}
