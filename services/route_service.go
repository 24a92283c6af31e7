package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"traveltales/metrics"
	"traveltales/models"
	"traveltales/store"
	apierrors "traveltales/utils/errors"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 20

	DefaultNearbyRadius = 5000.0
	MaxNearbyRadius     = 50000.0

	enrichDeadline = 30 * time.Second
)

type CreateRouteInput struct {
	UserID      string
	RoutePoints []models.Point
	IsDraft     bool
	Title       string
	Description string
}

type RouteService struct {
	routes store.RouteStore
	users  *UserService
	geo    *GeoService

	// enrichments tracks background place-name lookups so shutdown can drain them.
	enrichments sync.WaitGroup
	now         func() time.Time
}

func NewRouteService(routes store.RouteStore, users *UserService, geo *GeoService) *RouteService {
	return &RouteService{
		routes: routes,
		users:  users,
		geo:    geo,
		now:    time.Now,
	}
}

// Create persists a route and starts place-name enrichment in the
// background. The returned route has empty place names; they appear on
// later reads once enrichment finishes.
func (s *RouteService) Create(ctx context.Context, input CreateRouteInput) (_ *models.Route, err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("create", metrics.Result(err)).Inc() }()

	if input.UserID == "" || len(input.RoutePoints) == 0 {
		return nil, apierrors.Validation("Invalid route data")
	}
	if err := validatePoints(input.RoutePoints); err != nil {
		return nil, err
	}

	route := &models.Route{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		RoutePoints:   input.RoutePoints,
		StartLocation: models.NewGeoPoint(input.RoutePoints[0]),
		Title:         input.Title,
		Description:   input.Description,
		PlaceNames:    []string{},
		IsDraft:       input.IsDraft,
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
		Likes:         []string{},
		Comments:      []models.Comment{},
	}
	if err := s.routes.CreateRoute(ctx, route); err != nil {
		return nil, apierrors.Dependency(err, "create route")
	}
	log.Info().Str("route_id", route.ID).Str("user_id", route.UserID).Bool("draft", route.IsDraft).Int("points", len(route.RoutePoints)).Msg("Route created")

	s.enrich(route.ID, route.RoutePoints)
	return route, nil
}

// enrich resolves place names for points in the background. The write is
// conditional on the route still holding points, so an older lookup that
// finishes last is dropped.
func (s *RouteService) enrich(routeID string, points []models.Point) {
	if s.geo == nil {
		return
	}
	s.enrichments.Add(1)
	go func() {
		defer s.enrichments.Done()
		ctx, cancel := context.WithTimeout(context.Background(), enrichDeadline)
		defer cancel()

		names := s.geo.PlaceNames(ctx, points)
		if len(names) == 0 {
			return
		}
		if err := s.routes.SetPlaceNames(ctx, routeID, points, names); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Debug().Str("route_id", routeID).Msg("Route deleted or re-routed before enrichment finished")
				return
			}
			log.Warn().Err(err).Str("route_id", routeID).Msg("Failed to save place names")
		}
	}()
}

// Wait blocks until background enrichments finish.
func (s *RouteService) Wait() {
	s.enrichments.Wait()
}

// Get returns a route with owner and commenters resolved. Drafts are only
// visible to their owner and admins.
func (s *RouteService) Get(ctx context.Context, actor Actor, routeID string) (*models.RouteView, error) {
	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, storeError(err, "Route not found", "get route")
	}
	if !canSee(actor, route) {
		return nil, apierrors.NotFound("Route not found")
	}
	views, err := s.views(ctx, []models.Route{*route})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListByOwner returns the owner's routes with the given draft flag, newest
// first. Other users may list published routes only.
func (s *RouteService) ListByOwner(ctx context.Context, actor Actor, ownerID string, isDraft bool) ([]models.Route, error) {
	if ownerID == "" {
		return nil, apierrors.Validation("User ID is required")
	}
	if isDraft && ownerID != actor.UserID && !actor.IsAdmin() {
		return nil, apierrors.Forbidden("Drafts are only visible to their owner")
	}
	routes, err := s.routes.ListRoutesByOwner(ctx, ownerID, isDraft)
	if err != nil {
		return nil, apierrors.Dependency(err, "list routes by owner")
	}
	return routes, nil
}

func (s *RouteService) ListAll(ctx context.Context) ([]models.Route, error) {
	routes, err := s.routes.ListAllRoutes(ctx)
	if err != nil {
		return nil, apierrors.Dependency(err, "list all routes")
	}
	return routes, nil
}

// ListFeed returns the most recent published routes; limit is clamped to
// [1, MaxFeedLimit] and defaults to DefaultFeedLimit.
func (s *RouteService) ListFeed(ctx context.Context, limit int) ([]models.RouteView, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	limit = min(limit, MaxFeedLimit)

	routes, err := s.routes.ListFeed(ctx, limit)
	if err != nil {
		return nil, apierrors.Dependency(err, "list feed")
	}
	return s.views(ctx, routes)
}

func (s *RouteService) Nearby(ctx context.Context, center models.Point, radiusMeters float64) ([]models.RouteView, error) {
	if !center.Valid() {
		return nil, apierrors.Validation("Invalid coordinates")
	}
	if radiusMeters <= 0 || radiusMeters > MaxNearbyRadius {
		return nil, apierrors.Validation("radius must be between 0 and 50000 meters")
	}
	routes, err := s.routes.NearbyRoutes(ctx, center, radiusMeters)
	if err != nil {
		return nil, apierrors.Dependency(err, "nearby routes")
	}
	return s.views(ctx, routes)
}

// UpdateFields applies a partial edit by the owner. Absent fields keep
// their stored values. Changed points trigger fresh enrichment.
func (s *RouteService) UpdateFields(ctx context.Context, actor Actor, routeID string, update models.RouteUpdate) (_ *models.Route, err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("update", metrics.Result(err)).Inc() }()

	if update.RoutePoints != nil {
		if len(*update.RoutePoints) == 0 {
			return nil, apierrors.Validation("routePoints cannot be empty")
		}
		if err := validatePoints(*update.RoutePoints); err != nil {
			return nil, err
		}
	}

	current, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, storeError(err, "Route not found", "get route")
	}
	if current.UserID != actor.UserID {
		return nil, apierrors.Forbidden("Only the owner can edit this route")
	}

	route, err := s.routes.UpdateRoute(ctx, routeID, update)
	if err != nil {
		return nil, storeError(err, "Route not found", "update route")
	}
	if update.RoutePoints != nil {
		s.enrich(route.ID, route.RoutePoints)
	}
	return route, nil
}

// Delete removes a route; allowed for its owner or an admin.
func (s *RouteService) Delete(ctx context.Context, actor Actor, routeID string) (err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("delete", metrics.Result(err)).Inc() }()

	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return storeError(err, "Route not found", "get route")
	}
	if route.UserID != actor.UserID && !actor.IsAdmin() {
		return apierrors.Forbidden("Not authorized")
	}
	if err := s.routes.DeleteRoute(ctx, routeID); err != nil {
		return storeError(err, "Route not found", "delete route")
	}
	log.Info().Str("route_id", routeID).Str("by", actor.UserID).Msg("Route deleted")
	return nil
}

// ToggleLike adds the actor to the like set, or removes them if already
// there. Drafts hidden from the actor read as missing.
func (s *RouteService) ToggleLike(ctx context.Context, actor Actor, routeID string) (_ []string, err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("like", metrics.Result(err)).Inc() }()

	if actor.UserID == "" {
		return nil, apierrors.Validation("User ID is required")
	}
	if err := s.visible(ctx, actor, routeID); err != nil {
		return nil, err
	}
	likes, err := s.routes.ToggleLike(ctx, routeID, actor.UserID)
	if err != nil {
		return nil, storeError(err, "Route not found", "toggle like")
	}
	return likes, nil
}

func (s *RouteService) AddComment(ctx context.Context, actor Actor, routeID, text string) (_ *models.CommentView, err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("comment_add", metrics.Result(err)).Inc() }()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierrors.Validation("Comment text required")
	}
	authorID := actor.UserID
	if authorID == "" {
		return nil, apierrors.Validation("User ID is required")
	}
	if err := s.visible(ctx, actor, routeID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		UserID:    authorID,
		Text:      text,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.routes.AppendComment(ctx, routeID, comment); err != nil {
		return nil, storeError(err, "Route not found", "append comment")
	}

	summaries, err := s.users.Summaries(ctx, []string{authorID})
	if err != nil {
		return nil, err
	}
	return &models.CommentView{
		ID:        comment.ID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
		User:      summaries[authorID],
	}, nil
}

// DeleteComment removes a comment; only its author or the route owner may.
func (s *RouteService) DeleteComment(ctx context.Context, routeID, commentID, requesterID string) (err error) {
	defer func() { metrics.RouteMutations.WithLabelValues("comment_delete", metrics.Result(err)).Inc() }()

	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return storeError(err, "Route not found", "get route")
	}
	comment := route.FindComment(commentID)
	if comment == nil {
		return apierrors.NotFound("Comment not found")
	}
	if requesterID == "" || (requesterID != comment.UserID && requesterID != route.UserID) {
		return apierrors.Forbidden("Not authorized")
	}
	if err := s.routes.RemoveComment(ctx, routeID, commentID); err != nil {
		return storeError(err, "Comment not found", "remove comment")
	}
	return nil
}

// visible reports NotFound for missing routes and for drafts the actor may
// not see. IsDraft never changes after creation, so the check holds for the
// write that follows.
func (s *RouteService) visible(ctx context.Context, actor Actor, routeID string) error {
	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return storeError(err, "Route not found", "get route")
	}
	if !canSee(actor, route) {
		return apierrors.NotFound("Route not found")
	}
	return nil
}

func canSee(actor Actor, route *models.Route) bool {
	return !route.IsDraft || route.UserID == actor.UserID || actor.IsAdmin()
}

// views resolves owners and commenters for a batch of routes.
func (s *RouteService) views(ctx context.Context, routes []models.Route) ([]models.RouteView, error) {
	var ids []string
	for _, r := range routes {
		ids = append(ids, r.UserID)
		for _, c := range r.Comments {
			ids = append(ids, c.UserID)
		}
	}
	summaries, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.RouteView, 0, len(routes))
	for _, r := range routes {
		comments := make([]models.CommentView, 0, len(r.Comments))
		for _, c := range r.Comments {
			comments = append(comments, models.CommentView{
				ID:        c.ID,
				Text:      c.Text,
				CreatedAt: c.CreatedAt,
				User:      summaries[c.UserID],
			})
		}
		views = append(views, models.RouteView{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			RoutePoints: r.RoutePoints,
			PlaceNames:  orEmpty(r.PlaceNames),
			IsDraft:     r.IsDraft,
			CreatedAt:   r.CreatedAt,
			Likes:       orEmpty(r.Likes),
			Comments:    comments,
			User:        summaries[r.UserID],
		})
	}
	return views, nil
}

func validatePoints(points []models.Point) error {
	for _, p := range points {
		if !p.Valid() {
			return apierrors.Validation("Invalid coordinates in routePoints")
		}
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
