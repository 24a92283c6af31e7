// Package store persists users and routes. Every mutation that several
// clients may race on (likes, comments, follow edges) is a single atomic
// update in the backing store; callers never read-modify-write a document.
package store

import (
	"context"
	"errors"

	"traveltales/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// MaxNearbyResults caps a nearby search.
const MaxNearbyResults = 50

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsers returns the users that exist among ids, in no particular order.
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, update models.UserUpdate) (*models.User, error)
	SetRole(ctx context.Context, id, role string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Edge mutations have set semantics: adding a present member or
	// removing an absent one succeeds without change.
	AddFollowing(ctx context.Context, userID, targetID string) error
	RemoveFollowing(ctx context.Context, userID, targetID string) error
	AddFollower(ctx context.Context, userID, followerID string) error
	RemoveFollower(ctx context.Context, userID, followerID string) error
}

type RouteStore interface {
	CreateRoute(ctx context.Context, route *models.Route) error
	GetRoute(ctx context.Context, id string) (*models.Route, error)
	ListRoutesByOwner(ctx context.Context, ownerID string, isDraft bool) ([]models.Route, error)
	ListAllRoutes(ctx context.Context) ([]models.Route, error)
	// ListFeed returns published routes, newest first.
	ListFeed(ctx context.Context, limit int) ([]models.Route, error)
	// NearbyRoutes returns published routes starting within radiusMeters,
	// nearest first.
	NearbyRoutes(ctx context.Context, center models.Point, radiusMeters float64) ([]models.Route, error)
	// UpdateRoute writes supplied fields only. New points clear place names.
	UpdateRoute(ctx context.Context, id string, update models.RouteUpdate) (*models.Route, error)
	// SetPlaceNames stores labels resolved for points. It returns ErrNotFound
	// when the route is gone or its points no longer equal points, so a
	// stale lookup never overwrites labels for newer points.
	SetPlaceNames(ctx context.Context, id string, points []models.Point, names []string) error
	DeleteRoute(ctx context.Context, id string) error

	// ToggleLike atomically adds or removes userID and returns the new set.
	ToggleLike(ctx context.Context, routeID, userID string) ([]string, error)
	AppendComment(ctx context.Context, routeID string, comment models.Comment) error
	// RemoveComment returns ErrNotFound when the route or the comment is missing.
	RemoveComment(ctx context.Context, routeID, commentID string) error
}

// Store is the full persistence handle, opened at startup and closed at
// shutdown.
type Store interface {
	UserStore
	RouteStore
	Close(ctx context.Context) error
}
