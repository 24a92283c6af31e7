package services

import (
	"context"
	"errors"

	"traveltales/models"
	"traveltales/store"
	apierrors "traveltales/utils/errors"
)

// UserCache is the read-through cache for user documents.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*models.User, bool)
	SetUser(ctx context.Context, user *models.User)
	InvalidateUser(ctx context.Context, ids ...string)
}

// PlaceCache stores reverse-geocoded labels by coordinate.
type PlaceCache interface {
	GetPlace(ctx context.Context, p models.Point) (string, bool)
	SetPlace(ctx context.Context, p models.Point, label string)
}

// storeError maps store sentinels onto API errors; anything else is a
// dependency failure whose cause is kept for the log only.
func storeError(err error, notFound, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apierrors.NotFound(notFound)
	case errors.Is(err, store.ErrDuplicate):
		return apierrors.Conflict("Resource already exists")
	default:
		return apierrors.Dependency(err, op)
	}
}
