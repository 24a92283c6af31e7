package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"traveltales/utils/errors"
)

// RateLimitByIP allows requests per window for each client IP. A limit of
// zero or less disables it.
func RateLimitByIP(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, errors.NewAPIError("RATE_LIMITED", "Too many requests, try again later", http.StatusTooManyRequests))
		}),
	)
}
