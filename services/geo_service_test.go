package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traveltales/cache"
	"traveltales/models"
)

func TestGoogleGeocoderParsesResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("latlng") {
		case "41.000000,29.000000":
			fmt.Fprint(w, `{"status":"OK","results":[{"formatted_address":"Fatih, Istanbul"}]}`)
		case "0.000000,0.000000":
			fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
		default:
			fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
		}
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("test-key", srv.URL, time.Second)
	ctx := context.Background()

	label, err := g.ReverseGeocode(ctx, istanbul)
	require.NoError(t, err)
	assert.Equal(t, "Fatih, Istanbul", label)

	_, err = g.ReverseGeocode(ctx, models.Point{})
	assert.ErrorIs(t, err, ErrNoPlace)

	_, err = g.ReverseGeocode(ctx, besiktas)
	assert.ErrorContains(t, err, "REQUEST_DENIED")
}

func TestGoogleGeocoderBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("k", srv.URL, time.Second)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := g.ReverseGeocode(ctx, istanbul)
		assert.ErrorContains(t, err, "unexpected status 500")
	}

	_, err := g.ReverseGeocode(ctx, istanbul)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 5, hits.Load())
}

func TestGoogleGeocoderNoResultDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS"}`)
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("k", srv.URL, time.Second)
	for i := 0; i < 10; i++ {
		_, err := g.ReverseGeocode(context.Background(), istanbul)
		assert.ErrorIs(t, err, ErrNoPlace)
	}
}

func TestPlaceNames(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{labels: map[models.Point]string{
		istanbul: "Fatih, Istanbul",
		besiktas: "Besiktas, Istanbul",
	}}
	svc := NewGeoService(geo, nil, time.Second)

	assert.Equal(t, []string{"Fatih, Istanbul", "Besiktas, Istanbul"}, svc.PlaceNames(ctx, []models.Point{istanbul, {Latitude: 1}, besiktas}))
	assert.Equal(t, []string{"Fatih, Istanbul"}, svc.PlaceNames(ctx, []models.Point{istanbul}))
	assert.Equal(t, []string{"Besiktas, Istanbul"}, svc.PlaceNames(ctx, []models.Point{{Latitude: 1}, besiktas}))
	assert.Empty(t, svc.PlaceNames(ctx, nil))
	assert.Empty(t, NewGeoService(nil, nil, time.Second).PlaceNames(ctx, []models.Point{istanbul}))
}

func TestPlaceNamesLookupTimeout(t *testing.T) {
	geo := &fakeGeocoder{labels: map[models.Point]string{istanbul: "Fatih"}, delay: time.Second}
	svc := NewGeoService(geo, nil, 20*time.Millisecond)

	start := time.Now()
	assert.Empty(t, svc.PlaceNames(context.Background(), []models.Point{istanbul}))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPlaceNamesUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	geo := &fakeGeocoder{labels: map[models.Point]string{istanbul: "Fatih, Istanbul"}}
	svc := NewGeoService(geo, rc, time.Second)

	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"Fatih, Istanbul"}, svc.PlaceNames(ctx, []models.Point{istanbul}))
	}
	assert.Len(t, geo.Calls(), 1)
}
