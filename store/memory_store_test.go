package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveltales/models"
)

func seedRoute(t *testing.T, s *MemoryStore, id, owner string, draft bool, created time.Time) {
	t.Helper()
	p := models.Point{Latitude: 41.0, Longitude: 29.0}
	require.NoError(t, s.CreateRoute(context.Background(), &models.Route{
		ID:            id,
		UserID:        owner,
		RoutePoints:   []models.Point{p},
		StartLocation: models.NewGeoPoint(p),
		IsDraft:       draft,
		CreatedAt:     created,
	}))
}

func TestMemoryToggleLikeIsInvolution(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())

	likes, err := s.ToggleLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, likes)

	likes, err = s.ToggleLike(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Empty(t, likes)

	_, err = s.ToggleLike(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryConcurrentMutationsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = s.ToggleLike(ctx, "r1", fmt.Sprintf("u%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendComment(ctx, "r1", models.Comment{ID: fmt.Sprintf("c%d", i), UserID: "u", Text: "hi"})
		}(i)
	}
	wg.Wait()

	route, err := s.GetRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, route.Likes, 50)
	assert.Len(t, route.Comments, 50)
}

func TestMemoryRemoveComment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())
	require.NoError(t, s.AppendComment(ctx, "r1", models.Comment{ID: "c1", Text: "first"}))
	require.NoError(t, s.AppendComment(ctx, "r1", models.Comment{ID: "c2", Text: "second"}))

	require.NoError(t, s.RemoveComment(ctx, "r1", "c1"))
	assert.ErrorIs(t, s.RemoveComment(ctx, "r1", "c1"), ErrNotFound)
	assert.ErrorIs(t, s.RemoveComment(ctx, "nope", "c2"), ErrNotFound)

	route, err := s.GetRoute(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, route.Comments, 1)
	assert.Equal(t, "c2", route.Comments[0].ID)
}

func TestMemoryFeedOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		seedRoute(t, s, fmt.Sprintf("r%02d", i), "owner", i%3 == 0, base.Add(time.Duration(i)*time.Minute))
	}

	feed, err := s.ListFeed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, feed, 10)
	for i, r := range feed {
		assert.False(t, r.IsDraft)
		if i > 0 {
			assert.False(t, r.CreatedAt.After(feed[i-1].CreatedAt))
		}
	}
	assert.Equal(t, "r29", feed[0].ID)
}

func TestMemoryListByOwnerFiltersDraftFlag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	seedRoute(t, s, "a", "u1", true, now)
	seedRoute(t, s, "b", "u1", false, now)
	seedRoute(t, s, "c", "u2", true, now)

	drafts, err := s.ListRoutesByOwner(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "a", drafts[0].ID)

	again, err := s.ListRoutesByOwner(ctx, "u1", true)
	require.NoError(t, err)
	assert.Equal(t, drafts, again)
}

func TestMemoryUpdateRouteLeavesAbsentFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())
	require.NoError(t, s.SetPlaceNames(ctx, "r1", []models.Point{{Latitude: 41.0, Longitude: 29.0}}, []string{"Istanbul"}))

	title := "New"
	route, err := s.UpdateRoute(ctx, "r1", models.RouteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New", route.Title)
	assert.Len(t, route.RoutePoints, 1)
	assert.Equal(t, []string{"Istanbul"}, route.PlaceNames)

	points := []models.Point{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}}
	route, err = s.UpdateRoute(ctx, "r1", models.RouteUpdate{RoutePoints: &points})
	require.NoError(t, err)
	assert.Equal(t, "New", route.Title)
	assert.Equal(t, []float64{2, 1}, route.StartLocation.Coordinates)
	assert.Empty(t, route.PlaceNames)
}

func TestMemorySetPlaceNamesIgnoresStalePoints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())
	old := []models.Point{{Latitude: 41.0, Longitude: 29.0}}

	points := []models.Point{{Latitude: 48.85, Longitude: 2.35}}
	_, err := s.UpdateRoute(ctx, "r1", models.RouteUpdate{RoutePoints: &points})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetPlaceNames(ctx, "r1", old, []string{"Istanbul"}), ErrNotFound)
	require.NoError(t, s.SetPlaceNames(ctx, "r1", points, []string{"Paris"}))
	route, err := s.GetRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris"}, route.PlaceNames)

	assert.ErrorIs(t, s.SetPlaceNames(ctx, "missing", points, nil), ErrNotFound)
}

func TestMemoryGetUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@x.io"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "b@x.io"}))

	users, err := s.GetUsers(ctx, []string{"u1", "ghost", "u2", "u1"})
	require.NoError(t, err)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)
}

func TestMemoryNearbyRoutes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	add := func(id string, p models.Point, draft bool) {
		require.NoError(t, s.CreateRoute(ctx, &models.Route{ID: id, RoutePoints: []models.Point{p}, IsDraft: draft, CreatedAt: now}))
	}
	add("near", models.Point{Latitude: 41.001, Longitude: 29.0}, false)
	add("nearest", models.Point{Latitude: 41.0, Longitude: 29.0}, false)
	add("draft", models.Point{Latitude: 41.0, Longitude: 29.0}, true)
	add("far", models.Point{Latitude: 39.9, Longitude: 32.8}, false)

	routes, err := s.NearbyRoutes(ctx, models.Point{Latitude: 41.0, Longitude: 29.0}, 1000)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "nearest", routes[0].ID)
	assert.Equal(t, "near", routes[1].ID)
}

func TestMemoryFollowEdgesHaveSetSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "a", Email: "a@x.io"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "b", Email: "b@x.io"}))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddFollowing(ctx, "a", "b"))
		require.NoError(t, s.AddFollower(ctx, "b", "a"))
	}
	a, _ := s.GetUser(ctx, "a")
	b, _ := s.GetUser(ctx, "b")
	assert.Equal(t, []string{"b"}, a.Following)
	assert.Equal(t, []string{"a"}, b.Followers)

	require.NoError(t, s.RemoveFollowing(ctx, "a", "b"))
	require.NoError(t, s.RemoveFollowing(ctx, "a", "b"))
	a, _ = s.GetUser(ctx, "a")
	assert.Empty(t, a.Following)

	assert.ErrorIs(t, s.AddFollowing(ctx, "ghost", "a"), ErrNotFound)
}

func TestMemoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "a", Email: "same@x.io"}))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: "b", Email: "SAME@x.io"}), ErrDuplicate)

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "c", Email: "c@x.io"}))
	email := "same@x.io"
	_, err := s.UpdateUser(ctx, "c", models.UserUpdate{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedRoute(t, s, "r1", "owner", false, time.Now())

	route, err := s.GetRoute(ctx, "r1")
	require.NoError(t, err)
	route.Likes = append(route.Likes, "intruder")
	route.RoutePoints[0].Latitude = 0

	again, err := s.GetRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, again.Likes)
	assert.Equal(t, 41.0, again.RoutePoints[0].Latitude)
}
