package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"traveltales/middleware"
	"traveltales/services"
	"traveltales/utils/errors"
)

type RouterConfig struct {
	Auth   *services.AuthService
	Users  *services.UserService
	Social *services.SocialService
	Routes *services.RouteService

	Logger         zerolog.Logger
	AllowedOrigins []string
	// AuthRateLimit is requests per minute per IP on /register and /login.
	AuthRateLimit int
}

// NewRouter wires every endpoint. CORS and request logging wrap the router
// itself so preflights never reach route matching.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Users)
	userHandler := NewUserHandler(cfg.Users, cfg.Social)
	routeHandler := NewRouteHandler(cfg.Routes)

	r := mux.NewRouter()
	r.Use(middleware.AccessLog(), middleware.ErrorMiddleware())
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, errors.NotFound("Endpoint not found"))
	})

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Auth routes
	limited := middleware.RateLimitByIP(cfg.AuthRateLimit, time.Minute)
	r.Handle("/register", limited(http.HandlerFunc(authHandler.RegisterUser))).Methods(http.MethodPost)
	r.Handle("/login", limited(http.HandlerFunc(authHandler.LoginUser))).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.JWTMiddleware(cfg.Auth))

	// Admin routes. The subrouter is created first so /routes/all is tried
	// before /routes/{id}.
	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/routes/all", routeHandler.ListAllRoutes).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", userHandler.DeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id}/role", userHandler.SetRole).Methods(http.MethodPut)
	admin.HandleFunc("/admin/reconcile", userHandler.Reconcile).Methods(http.MethodPost)

	// User routes
	api.HandleFunc("/user/{id}", userHandler.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/user/{id}", userHandler.UpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/follow", userHandler.Follow).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/unfollow", userHandler.Unfollow).Methods(http.MethodPost)

	// Route routes; /routes/nearby before /routes/{id}
	api.HandleFunc("/routes", routeHandler.CreateRoute).Methods(http.MethodPost)
	api.HandleFunc("/routes", routeHandler.ListRoutes).Methods(http.MethodGet)
	api.HandleFunc("/routes/nearby", routeHandler.NearbyRoutes).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}", routeHandler.GetRoute).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}", routeHandler.UpdateRoute).Methods(http.MethodPut)
	api.HandleFunc("/routes/{id}", routeHandler.DeleteRoute).Methods(http.MethodDelete)
	api.HandleFunc("/routes/{id}/like", routeHandler.ToggleLike).Methods(http.MethodPost)
	api.HandleFunc("/routes/{id}/comment", routeHandler.AddComment).Methods(http.MethodPost)
	api.HandleFunc("/routes/{id}/comment/{commentId}", routeHandler.DeleteComment).Methods(http.MethodDelete)
	api.HandleFunc("/feed", routeHandler.Feed).Methods(http.MethodGet)

	return middleware.RequestLogger(cfg.Logger)(middleware.CORSMiddleware(cfg.AllowedOrigins)(r))
}
