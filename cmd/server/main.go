package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routeplanner/internal/config"
	handlers "routeplanner/internal/handlers/shared"
	"routeplanner/internal/middleware"
	"routeplanner/internal/models"
	"routeplanner/internal/repositories/interfaces"
	"routeplanner/internal/repositories/memory"
	"routeplanner/internal/repositories/mongodb"
	"routeplanner/internal/repositories/postgres"
	redisrepo "routeplanner/internal/repositories/redis"
	"routeplanner/internal/services"
	"routeplanner/pkg/cache"
	"routeplanner/pkg/database"
	"routeplanner/pkg/identity"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/maps"
	"routeplanner/pkg/websocket"
	"routeplanner/routes"

	"github.com/gin-gonic/gin"
	gmaps "googlemaps.github.io/maps"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  cfg.App.LogOutput,
		Colors:  config.IsDevelopment(),
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.WithError(err).Fatal("Server stopped with an error")
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	healthChecks := make(map[string]func(context.Context) error)

	// Redis is shared by the session store and the redis geocode cache.
	var redisCache *cache.RedisCache
	if cfg.Planner.SessionStore == "redis" || cfg.Planner.GeocodeCacheBackend == "redis" {
		rc, err := cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisCache = rc
		closers = append(closers, func() { _ = rc.Close() })
		healthChecks["redis"] = rc.Ping
	}

	var sessionStore interfaces.SessionStore
	switch cfg.Planner.SessionStore {
	case "redis":
		sessionStore = redisrepo.NewSessionStore(redisCache)
	default:
		sessionStore = memory.NewSessionStore()
	}

	geocodeCache, err := openGeocodeCache(ctx, cfg, redisCache, appLogger)
	if err != nil {
		return err
	}
	if geocodeCache.close != nil {
		closers = append(closers, geocodeCache.close)
	}
	if geocodeCache.ping != nil {
		healthChecks[cfg.Planner.GeocodeCacheBackend] = geocodeCache.ping
	}

	geocoder, geocoderName, err := newGeocoder(cfg)
	if err != nil {
		return err
	}
	router, routerName, err := newRouter(cfg)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(appLogger)
	go hub.Run(ctx)

	deps := services.SessionDeps{
		Geocoder: services.NewGeocodeClient(geocoder, geocodeCache.repo, services.GeocodeClientConfig{
			MinQueryLength: cfg.Planner.MinQueryLength,
			Limit:          cfg.Planner.SuggestionLimit,
			CacheTTL:       cfg.Planner.GeocodeCacheTTL,
			ProviderName:   geocoderName,
			Timeout:        cfg.Maps.Timeout,
		}, appLogger),
		Router:     router,
		RouterName: routerName,
		Resolver:   services.ResolverConfig{ClearCoordinatesOnEdit: cfg.Planner.ClearCoordinatesOnEdit},
		Logger:     appLogger,
	}
	sessions := services.NewSessionManager(deps, sessionStore, hub, services.SessionManagerConfig{
		SessionTTL: cfg.Planner.SessionTTL,
		MapConfig: models.MapConfig{
			Center:      models.Coordinates{Lat: cfg.Planner.MapCenterLat, Lon: cfg.Planner.MapCenterLon},
			Zoom:        cfg.Planner.MapZoom,
			TileURL:     cfg.Planner.TileURL,
			Attribution: cfg.Planner.TileAttribution,
		},
	}, appLogger)

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	plannerHandler := handlers.NewPlannerHandler(sessions, appLogger)
	liveHandler := websocket.NewHandler(hub, websocket.Config{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout:  cfg.WebSocket.HandshakeTimeout,
		PingInterval:      cfg.WebSocket.PingInterval,
		PongTimeout:       cfg.WebSocket.PongTimeout,
		WriteTimeout:      cfg.WebSocket.WriteTimeout,
		MaxMessageSize:    cfg.WebSocket.MaxMessageSize,
		EnableCompression: cfg.WebSocket.EnableCompression,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
	}, appLogger)
	liveHandler.OnConnect = plannerHandler.OnLiveConnect
	liveHandler.OnMessage = plannerHandler.OnLiveMessage

	limiter := middleware.NewIPRateLimiter(cfg.Security.RateLimitPerMinute, cfg.Security.RateLimitBurst, appLogger)

	if config.IsProduction() || !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultErrorWriter = appLogger.Writer()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(middleware.RecoveryMiddleware(appLogger))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.LoggingMiddleware(appLogger))
	engine.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	routes.SetupRoutes(engine, routes.Dependencies{
		Planner:   plannerHandler,
		Auth:      handlers.NewAuthHandler(verifier, sessions, appLogger),
		Live:      liveHandler,
		Verifier:  verifier,
		Limiter:   limiter,
		Logger:    appLogger,
		Version:   cfg.App.Version,
		StartedAt: time.Now(),

		HealthChecks: healthChecks,
	})

	go runJanitor(ctx, cfg.Planner, sessions, limiter, geocodeCache.purge, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.WithFields(map[string]interface{}{
			"addr":     srv.Addr,
			"geocoder": geocoderName,
			"router":   routerName,
			"sessions": cfg.Planner.SessionStore,
			"cache":    cfg.Planner.GeocodeCacheBackend,
		}).Info("Starting server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGeocoder(cfg *config.Config) (maps.Geocoder, string, error) {
	httpClient := &http.Client{Timeout: cfg.Maps.Timeout}

	switch cfg.Maps.Provider {
	case "google":
		p, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey, gmaps.WithHTTPClient(httpClient))
		if err != nil {
			return nil, "", err
		}
		return p, "google", nil
	case "mapbox":
		return maps.NewMapboxProvider(cfg.Maps.Mapbox.AccessToken, cfg.Maps.Mapbox.BaseURL), "mapbox", nil
	default:
		return maps.NewNominatimProvider(
			cfg.Maps.Nominatim.BaseURL,
			cfg.Maps.Nominatim.UserAgent,
			maps.WithNominatimHTTPClient(httpClient),
			maps.WithNominatimRateLimit(cfg.Maps.Nominatim.RateLimit),
		), "nominatim", nil
	}
}

func newRouter(cfg *config.Config) (maps.Router, string, error) {
	httpClient := &http.Client{Timeout: cfg.Routing.Timeout}

	switch cfg.Routing.Provider {
	case "google":
		p, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey, gmaps.WithHTTPClient(httpClient))
		if err != nil {
			return nil, "", err
		}
		return p, "google", nil
	case "mapbox":
		return maps.NewMapboxProvider(cfg.Maps.Mapbox.AccessToken, cfg.Maps.Mapbox.BaseURL), "mapbox", nil
	default:
		return maps.NewOSRMRouter(cfg.Routing.OSRMBaseURL, httpClient), "osrm", nil
	}
}

// geocodeCacheBackend is the opened geocode cache. repo is nil when caching
// is off; purge is only set for backends without server-side expiry.
type geocodeCacheBackend struct {
	repo  interfaces.GeocodeCacheRepository
	purge func(context.Context) (int64, error)
	ping  func(context.Context) error
	close func()
}

func openGeocodeCache(
	ctx context.Context,
	cfg *config.Config,
	redisCache *cache.RedisCache,
	appLogger *logger.Logger,
) (geocodeCacheBackend, error) {
	switch cfg.Planner.GeocodeCacheBackend {
	case "redis":
		return geocodeCacheBackend{repo: redisrepo.NewGeocodeCacheRepository(redisCache)}, nil

	case "mongo":
		db, err := database.NewMongoDB(&database.DatabaseConfig{
			URI:            cfg.Database.URI,
			Database:       cfg.Database.Database,
			MaxPoolSize:    cfg.Database.MaxPoolSize,
			MinPoolSize:    cfg.Database.MinPoolSize,
			ConnectTimeout: cfg.Database.ConnectTimeout,
			SocketTimeout:  cfg.Database.SocketTimeout,
		})
		if err != nil {
			return geocodeCacheBackend{}, err
		}
		if err := database.NewMigrator(db.Database, appLogger).Up(ctx); err != nil {
			_ = db.Close()
			return geocodeCacheBackend{}, fmt.Errorf("failed to migrate mongodb: %w", err)
		}
		return geocodeCacheBackend{
			repo:  mongodb.NewGeocodeCacheRepository(db.Database),
			ping:  db.Ping,
			close: func() { _ = db.Close() },
		}, nil

	case "postgres":
		pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
			URL:             cfg.Postgres.URL,
			MaxConns:        int32(cfg.Postgres.MaxConns),
			MinConns:        int32(cfg.Postgres.MinConns),
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
		})
		if err != nil {
			return geocodeCacheBackend{}, err
		}
		if err := database.EnsureGeocodeCacheSchema(ctx, pool); err != nil {
			pool.Close()
			return geocodeCacheBackend{}, err
		}
		pg := postgres.NewGeocodeCacheRepository(pool)
		return geocodeCacheBackend{
			repo:  pg,
			purge: pg.PurgeExpired,
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	default:
		return geocodeCacheBackend{}, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (identity.Verifier, error) {
	if cfg.Auth.Provider == "firebase" {
		return identity.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
	}
	return identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAccessTokenTTL), nil
}

// runJanitor evicts idle sessions, forgets quiet rate-limit buckets and
// purges expired geocode cache rows until ctx is done.
func runJanitor(
	ctx context.Context,
	cfg *config.PlannerConfig,
	sessions services.SessionManager,
	limiter *middleware.IPRateLimiter,
	purge func(context.Context) (int64, error),
	appLogger *logger.Logger,
) {
	ticker := time.NewTicker(cfg.JanitorInterval)
	defer ticker.Stop()

	janitorLog := appLogger.WithField("component", "janitor")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := sessions.EvictIdle(cfg.SessionIdleTimeout); n > 0 {
			janitorLog.WithField("evicted", n).Info("Evicted idle planning sessions")
		}
		limiter.Cleanup(time.Hour)

		if purge != nil {
			if n, err := purge(ctx); err != nil {
				janitorLog.WithError(err).Warn("Failed to purge geocode cache")
			} else if n > 0 {
				janitorLog.WithField("purged", n).Debug("Purged expired geocode cache entries")
			}
		}
	}
}
