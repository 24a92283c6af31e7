package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"traveltales/cache"
	"traveltales/config"
	"traveltales/handlers"
	"traveltales/services"
	"traveltales/store"
	"traveltales/utils/logging"
)

type appCache interface {
	services.UserCache
	services.PlaceCache
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	var st store.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		st = store.NewMemoryStore()
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoStore, err := store.OpenMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		st = mongoStore
	}

	// Redis
	var c appCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		c = redisCache
	} else {
		log.Info().Msg("REDIS_ADDR not set, caching disabled")
	}

	var geocoder services.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		geocoder = services.NewGoogleGeocoder(cfg.GoogleMapsAPIKey, cfg.GeocodeURL, cfg.GeocodeTimeout)
	} else {
		log.Info().Msg("GOOGLE_MAPS_API_KEY not set, place names disabled")
	}

	// Initialize services and handlers
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTTTL)
	userService := services.NewUserService(st, c, authService, cfg.AllowAdminSignup)
	socialService := services.NewSocialService(st, c)
	routeService := services.NewRouteService(st, userService, services.NewGeoService(geocoder, c, cfg.GeocodeTimeout))

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:           authService,
		Users:          userService,
		Social:         socialService,
		Routes:         routeService,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRateLimit:  cfg.AuthRateLimit,
	})

	if cfg.ReconcileInterval > 0 {
		go runReconciler(ctx, socialService, cfg.ReconcileInterval)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	drain(srv, routeService, st, 15*time.Second, 5*time.Second)
	log.Info().Msg("Server stopped")
}

type closer interface {
	Close(ctx context.Context) error
}

// drain stops HTTP, waits for background work, then closes the store.
// Background work can outlast the HTTP deadline, so the store gets its own.
func drain(srv *http.Server, work interface{ Wait() }, st closer, httpTimeout, closeTimeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	work.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	if err := st.Close(closeCtx); err != nil {
		log.Error().Err(err).Msg("Store close failed")
	}
}

// runReconciler repairs the follow graph every interval until ctx ends.
func runReconciler(ctx context.Context, social *services.SocialService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := social.Reconcile(ctx); err != nil {
				log.Error().Err(err).Msg("Follow graph reconciliation failed")
			}
		}
	}
}
