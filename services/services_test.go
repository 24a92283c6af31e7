package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"traveltales/cache"
	"traveltales/models"
	"traveltales/store"
)

// fakeGeocoder answers from a fixed table and records calls.
type fakeGeocoder struct {
	mu     sync.Mutex
	labels map[models.Point]string
	err    error
	delay  time.Duration
	// slow holds extra per-point latency.
	slow  map[models.Point]time.Duration
	calls []models.Point
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, p models.Point) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	delay := f.delay + f.slow[p]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	label, ok := f.labels[p]
	if !ok {
		return "", ErrNoPlace
	}
	return label, nil
}

func (f *fakeGeocoder) Calls() []models.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Point(nil), f.calls...)
}

// countingStore counts user reads so cache behavior can be asserted.
type countingStore struct {
	*store.MemoryStore
	mu          sync.Mutex
	getUsers    int
	userBatches int
}

func (c *countingStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	c.mu.Lock()
	c.userBatches++
	c.mu.Unlock()
	return c.MemoryStore.GetUsers(ctx, ids)
}

func (c *countingStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	c.mu.Lock()
	c.getUsers++
	c.mu.Unlock()
	return c.MemoryStore.GetUser(ctx, id)
}

type testEnv struct {
	store  *countingStore
	geo    *fakeGeocoder
	auth   *AuthService
	users  *UserService
	social *SocialService
	routes *RouteService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	geo := &fakeGeocoder{labels: map[models.Point]string{}}
	auth := NewAuthService("test-secret", time.Hour)
	users := NewUserService(st, cache.Nop{}, auth, false)
	env := &testEnv{
		store:  st,
		geo:    geo,
		auth:   auth,
		users:  users,
		social: NewSocialService(st, cache.Nop{}),
		routes: NewRouteService(st, users, NewGeoService(geo, nil, time.Second)),
	}
	t.Cleanup(env.routes.Wait)
	return env
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterInput{
		Username:    username,
		Email:       username + "@traveltales.test",
		Password:    "password123",
		DateOfBirth: "1999-04-12",
	})
	require.NoError(t, err)
	return user
}

var errBoom = errors.New("boom")
