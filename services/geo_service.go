package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"traveltales/metrics"
	"traveltales/models"
)

// ErrNoPlace means the geocoder answered but had no label for the point.
var ErrNoPlace = errors.New("geocode: no result")

type Geocoder interface {
	ReverseGeocode(ctx context.Context, p models.Point) (string, error)
}

// GoogleGeocoder calls the Google Geocoding API behind a circuit breaker.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[string]
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// NewGoogleGeocoder opens the breaker after five consecutive failures and
// half-opens after thirty seconds. "No result" answers count as successes.
func NewGoogleGeocoder(apiKey, baseURL string, timeout time.Duration) *GoogleGeocoder {
	const name = "google-geocode"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoPlace)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
	}
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, p models.Point) (string, error) {
	return g.cb.Execute(func() (string, error) {
		return g.lookup(ctx, p)
	})
}

func (g *GoogleGeocoder) lookup(ctx context.Context, p models.Point) (string, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", p.Latitude, p.Longitude))
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}
	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geocode decode: %w", err)
	}
	switch body.Status {
	case "OK":
		if len(body.Results) > 0 && body.Results[0].FormattedAddress != "" {
			return body.Results[0].FormattedAddress, nil
		}
		return "", ErrNoPlace
	case "ZERO_RESULTS":
		return "", ErrNoPlace
	default:
		return "", fmt.Errorf("geocode: status %s: %s", body.Status, body.ErrorMessage)
	}
}

// GeoService resolves start and end labels for a route. It never fails:
// lookups that error or time out are dropped.
type GeoService struct {
	geocoder Geocoder
	cache    PlaceCache
	timeout  time.Duration
}

// NewGeoService accepts a nil geocoder, in which case PlaceNames is always empty.
func NewGeoService(geocoder Geocoder, cache PlaceCache, timeout time.Duration) *GeoService {
	return &GeoService{geocoder: geocoder, cache: cache, timeout: timeout}
}

// PlaceNames resolves the first point and, when it differs, the last one.
// The result holds zero to two labels, start before end.
func (s *GeoService) PlaceNames(ctx context.Context, points []models.Point) []string {
	names := []string{}
	if s.geocoder == nil || len(points) == 0 {
		return names
	}
	start, end := points[0], points[len(points)-1]
	if label, ok := s.lookup(ctx, start); ok {
		names = append(names, label)
	}
	if end != start {
		if label, ok := s.lookup(ctx, end); ok {
			names = append(names, label)
		}
	}
	return names
}

func (s *GeoService) lookup(ctx context.Context, p models.Point) (string, bool) {
	if s.cache != nil {
		if label, ok := s.cache.GetPlace(ctx, p); ok {
			metrics.GeocodeLookups.WithLabelValues("hit").Inc()
			return label, true
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	label, err := s.geocoder.ReverseGeocode(lookupCtx, p)
	switch {
	case errors.Is(err, ErrNoPlace):
		metrics.GeocodeLookups.WithLabelValues("empty").Inc()
		return "", false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GeocodeLookups.WithLabelValues("rejected").Inc()
		return "", false
	case err != nil:
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Float64("lat", p.Latitude).Float64("lon", p.Longitude).Msg("Reverse geocode failed")
		return "", false
	}

	metrics.GeocodeLookups.WithLabelValues("ok").Inc()
	if s.cache != nil {
		s.cache.SetPlace(ctx, p, label)
	}
	return label, true
}
