package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"traveltales/services"
	"traveltales/utils/errors"
)

type contextKey string

const claimsKey contextKey = "claims"

// JWTMiddleware rejects requests without a valid bearer token and stores the
// token claims on the request context.
func JWTMiddleware(auth *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				WriteError(w, errors.ErrUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := auth.ParseToken(tokenString)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("Rejected bearer token")
				WriteError(w, errors.NewAPIError("INVALID_TOKEN", "Invalid or expired token", http.StatusUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware must run after JWTMiddleware. The role comes from the
// token, so a demotion takes effect when the token expires.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).IsAdmin() {
			WriteError(w, errors.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithClaims returns ctx carrying claims, as JWTMiddleware would set them.
func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func UserID(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey).(*services.Claims); ok {
		return claims.UserID
	}
	return ""
}

func Role(ctx context.Context) string {
	if claims, ok := ctx.Value(claimsKey).(*services.Claims); ok {
		return claims.Role
	}
	return ""
}

func ActorFrom(ctx context.Context) services.Actor {
	return services.Actor{UserID: UserID(ctx), Role: Role(ctx)}
}
