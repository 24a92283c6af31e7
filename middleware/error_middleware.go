package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"traveltales/utils/errors"
)

// ErrorMiddleware recovers from panics and answers with a 500.
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					hlog.FromRequest(r).Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Panic recovered")
					WriteError(w, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON body {code, message, status}. Errors that
// are not APIErrors become 500s; details are logged, never sent.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := errors.As(err)
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", apiErr.Code).Str("details", apiErr.Details).Msg("Server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	if encErr := json.NewEncoder(w).Encode(apiErr); encErr != nil {
		log.Warn().Err(encErr).Msg("Failed to write error response")
	}
}
