package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"traveltales/models"
)

// MemoryStore keeps everything in process. It backs STORE_DRIVER=memory for
// local runs and the service tests. A single mutex makes every method
// atomic, matching the per-document atomicity of the Mongo store.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	routes map[string]*models.Route
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*models.User),
		routes: make(map[string]*models.Route),
	}
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return ErrDuplicate
	}
	if s.emailTaken(user.Email, "") {
		return ErrDuplicate
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *MemoryStore) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUsers(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.users[id]; ok {
			users = append(users, *copyUser(u))
		}
	}
	return users, nil
}

func (s *MemoryStore) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Email != nil && s.emailTaken(*update.Email, id) {
		return nil, ErrDuplicate
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.DateOfBirth != nil {
		u.DateOfBirth = *update.DateOfBirth
	}
	if update.ProfileImage != nil {
		u.ProfileImage = *update.ProfileImage
	}
	return copyUser(u), nil
}

func (s *MemoryStore) SetRole(_ context.Context, id, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Role = role
	return copyUser(u), nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) AddFollowing(_ context.Context, userID, targetID string) error {
	return s.mutateUser(userID, func(u *models.User) { u.Following = addToSet(u.Following, targetID) })
}

func (s *MemoryStore) RemoveFollowing(_ context.Context, userID, targetID string) error {
	return s.mutateUser(userID, func(u *models.User) { u.Following = pull(u.Following, targetID) })
}

func (s *MemoryStore) AddFollower(_ context.Context, userID, followerID string) error {
	return s.mutateUser(userID, func(u *models.User) { u.Followers = addToSet(u.Followers, followerID) })
}

func (s *MemoryStore) RemoveFollower(_ context.Context, userID, followerID string) error {
	return s.mutateUser(userID, func(u *models.User) { u.Followers = pull(u.Followers, followerID) })
}

func (s *MemoryStore) mutateUser(id string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}

func (s *MemoryStore) CreateRoute(_ context.Context, route *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[route.ID]; ok {
		return ErrDuplicate
	}
	s.routes[route.ID] = copyRoute(route)
	return nil
}

func (s *MemoryStore) GetRoute(_ context.Context, id string) (*models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRoute(r), nil
}

func (s *MemoryStore) ListRoutesByOwner(_ context.Context, ownerID string, isDraft bool) ([]models.Route, error) {
	return s.filterRoutes(func(r *models.Route) bool { return r.UserID == ownerID && r.IsDraft == isDraft }, 0), nil
}

func (s *MemoryStore) ListAllRoutes(context.Context) ([]models.Route, error) {
	return s.filterRoutes(func(*models.Route) bool { return true }, 0), nil
}

func (s *MemoryStore) ListFeed(_ context.Context, limit int) ([]models.Route, error) {
	return s.filterRoutes(func(r *models.Route) bool { return !r.IsDraft }, limit), nil
}

// filterRoutes returns matches newest first, ties broken by id.
func (s *MemoryStore) filterRoutes(keep func(*models.Route) bool, limit int) []models.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	routes := make([]models.Route, 0)
	for _, r := range s.routes {
		if keep(r) {
			routes = append(routes, *copyRoute(r))
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		if !routes[i].CreatedAt.Equal(routes[j].CreatedAt) {
			return routes[i].CreatedAt.After(routes[j].CreatedAt)
		}
		return routes[i].ID > routes[j].ID
	})
	if limit > 0 && len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}

func (s *MemoryStore) NearbyRoutes(_ context.Context, center models.Point, radiusMeters float64) ([]models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type hit struct {
		route    models.Route
		distance float64
	}
	var hits []hit
	for _, r := range s.routes {
		if r.IsDraft || len(r.RoutePoints) == 0 {
			continue
		}
		if d := center.DistanceTo(r.RoutePoints[0]); d <= radiusMeters {
			hits = append(hits, hit{route: *copyRoute(r), distance: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	routes := make([]models.Route, 0, len(hits))
	for i, h := range hits {
		if i == MaxNearbyResults {
			break
		}
		routes = append(routes, h.route)
	}
	return routes, nil
}

func (s *MemoryStore) UpdateRoute(_ context.Context, id string, update models.RouteUpdate) (*models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Title != nil {
		r.Title = *update.Title
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if update.RoutePoints != nil {
		r.RoutePoints = slices.Clone(*update.RoutePoints)
		r.PlaceNames = []string{}
		if len(r.RoutePoints) > 0 {
			r.StartLocation = models.NewGeoPoint(r.RoutePoints[0])
		}
	}
	return copyRoute(r), nil
}

func (s *MemoryStore) SetPlaceNames(_ context.Context, id string, points []models.Point, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok || !slices.Equal(r.RoutePoints, points) {
		return ErrNotFound
	}
	r.PlaceNames = slices.Clone(names)
	return nil
}

func (s *MemoryStore) DeleteRoute(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[id]; !ok {
		return ErrNotFound
	}
	delete(s.routes, id)
	return nil
}

func (s *MemoryStore) ToggleLike(_ context.Context, routeID, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return nil, ErrNotFound
	}
	if slices.Contains(r.Likes, userID) {
		r.Likes = pull(r.Likes, userID)
	} else {
		r.Likes = append(r.Likes, userID)
	}
	return slices.Clone(r.Likes), nil
}

func (s *MemoryStore) AppendComment(_ context.Context, routeID string, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return ErrNotFound
	}
	r.Comments = append(r.Comments, comment)
	return nil
}

func (s *MemoryStore) RemoveComment(_ context.Context, routeID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[routeID]
	if !ok {
		return ErrNotFound
	}
	idx := slices.IndexFunc(r.Comments, func(c models.Comment) bool { return c.ID == commentID })
	if idx < 0 {
		return ErrNotFound
	}
	r.Comments = slices.Delete(r.Comments, idx, idx+1)
	return nil
}

func addToSet(set []string, v string) []string {
	if slices.Contains(set, v) {
		return set
	}
	return append(set, v)
}

func pull(set []string, v string) []string {
	return slices.DeleteFunc(set, func(s string) bool { return s == v })
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneNonNil(u.Followers)
	c.Following = cloneNonNil(u.Following)
	return &c
}

func copyRoute(r *models.Route) *models.Route {
	c := *r
	c.RoutePoints = slices.Clone(r.RoutePoints)
	c.PlaceNames = cloneNonNil(r.PlaceNames)
	c.Likes = cloneNonNil(r.Likes)
	c.Comments = slices.Clone(r.Comments)
	if c.Comments == nil {
		c.Comments = []models.Comment{}
	}
	c.StartLocation.Coordinates = slices.Clone(r.StartLocation.Coordinates)
	return &c
}

func cloneNonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
