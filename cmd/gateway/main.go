// Package main provides the entrypoint for the edgegate API gateway.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edgegate/edgegate/internal/api"
	"github.com/edgegate/edgegate/internal/api/handler"
	"github.com/edgegate/edgegate/internal/api/middleware"
	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/cache"
	"github.com/edgegate/edgegate/internal/config"
	"github.com/edgegate/edgegate/internal/database"
	"github.com/edgegate/edgegate/internal/health"
	"github.com/edgegate/edgegate/internal/proxy"
	"github.com/edgegate/edgegate/internal/registry"
	"github.com/edgegate/edgegate/internal/telemetry"
	"github.com/edgegate/edgegate/internal/user"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "edgegate"

func main() {
	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting edgegate")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("gateway stopped with error")
		os.Exit(1) //nolint:gocritic // deferred stop is best-effort
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	proxyMetrics, err := proxy.NewMetrics()
	if err != nil {
		return err
	}

	keys, err := loadKeys(cfg, log)
	if err != nil {
		return err
	}

	var deps []handler.Dependency

	// Session store and profile cache
	var (
		sessions     auth.SessionStore
		profileCache user.ProfileCache
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

		sessionStore := auth.NewRedisSessionStore(rdb, cfg.Redis.Prefix)
		sessions = sessionStore
		profileCache = user.NewRedisProfileCache(rdb, cfg.Redis.Prefix, cfg.Auth.ProfileCacheTTL)
		deps = append(deps, handler.Dependency{Name: "session-store", Pinger: sessionStore})
	} else {
		log.Warn().Msg("REDIS_ADDR not set - sessions are kept in memory and lost on restart")
		memStore := auth.NewMemorySessionStore(nil)
		sessions = memStore
		profileCache = user.NoopProfileCache{}
		deps = append(deps, handler.Dependency{Name: "session-store", Pinger: memStore})
	}

	// User store
	var userRepo user.Repository
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		userRepo = user.NewPostgresRepository(pool)
		deps = append(deps, handler.Dependency{Name: "database", Pinger: pool})
	} else {
		memRepo := user.NewInMemoryRepository()
		if err := seedUser(ctx, memRepo, cfg.Auth.SeedUser, log); err != nil {
			return err
		}
		userRepo = memRepo
		log.Warn().Msg("DB_HOST not set - using in-memory user store")
	}

	userService := user.NewService(user.ServiceConfig{
		Repo:   userRepo,
		Cache:  profileCache,
		Logger: log,
	})

	codec := auth.NewCodec(auth.CodecConfig{Issuer: cfg.Auth.Issuer})
	authService := auth.NewService(auth.ServiceConfig{
		Codec:      codec,
		Keys:       keys,
		Sessions:   sessions,
		Accounts:   userService,
		Profiles:   userService,
		Logger:     log,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		SessionTTL: cfg.Auth.SessionTTL,
	})
	gate := auth.NewGate(auth.GateConfig{
		Codec:           codec,
		Keys:            keys.Access,
		Sessions:        sessions,
		Logger:          log,
		PurgeOnMismatch: cfg.Auth.PurgeStaleSession,
	})
	log.Info().Msg("auth service initialized")

	jwks, err := auth.PublicKeySet(keys.Access)
	if err != nil {
		return err
	}

	// Service registry
	reg, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	breakers := proxy.NewBreakerSet(proxy.DefaultBreakerConfig())
	dispatcher := proxy.NewDispatcher(proxy.Config{
		Registry: reg,
		Breakers: breakers,
		Metrics:  proxyMetrics,
		Logger:   log,
	})

	prober := health.NewProber(health.Config{
		Registry:    reg,
		Logger:      log,
		Timeout:     cfg.Gateway.ProbeTimeout,
		Interval:    cfg.Gateway.ProbeInterval,
		Concurrency: cfg.Gateway.ProbeConcurrency,

		ProbeUnconfigured: cfg.Gateway.ProbeUnconfigured,
		DefaultHealthPath: cfg.Gateway.ProbeDefaultPath,
	})
	go prober.Run(ctx)

	if cfg.Gateway.RegistryFeedEnabled() {
		subscriber, err := registry.NewSubscriber(ctx, registry.SubscriberConfig{
			ProjectID:        cfg.Gateway.PubSubProject,
			SubscriptionName: cfg.Gateway.PubSubSubscription,
			Registry:         reg,
			Logger:           log,
			OnChange:         breakers.Forget,
		})
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := subscriber.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close registry subscriber")
			}
		}()
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("registry subscriber stopped")
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
		RequireTLS:     cfg.App.RequireTLS,
		Gate:           gate,
		AuthService:    authService,
		UserService:    userService,
		Registry:       reg,
		Prober:         prober,
		Dispatcher:     dispatcher,
		Breakers:       breakers,
		JWKS:           jwks,
		Dependencies:   deps,
		ProxyRateLimit: cfg.Gateway.RateLimit,
	})

	server := newServer(cfg.App.Port, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("services", reg.Len()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}

// newServer builds the HTTP server. Proxied bodies stream in both directions, so
// there is no whole-request read or write deadline; each service's timeout bounds
// its requests in the dispatcher instead.
func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// loadKeys reads the access and refresh key pairs. Outside production, missing
// key files are replaced by ephemeral keys so the gateway can start without setup.
func loadKeys(cfg *config.Config, log zerolog.Logger) (auth.Keys, error) {
	access, err := loadKeyPair(cfg.Auth.AccessKey, !cfg.App.IsProduction(), log)
	if err != nil {
		return auth.Keys{}, err
	}
	refresh, err := loadKeyPair(cfg.Auth.RefreshKey, !cfg.App.IsProduction(), log)
	if err != nil {
		return auth.Keys{}, err
	}
	return auth.Keys{Access: access, Refresh: refresh}, nil
}

func loadKeyPair(files auth.KeyFiles, allowEphemeral bool, log zerolog.Logger) (*auth.KeyPair, error) {
	kp, err := auth.LoadKeyPair(files)
	if err == nil {
		log.Info().Str("kid", kp.ID).Str("path", files.PrivatePath).Msg("signing key loaded")
		return kp, nil
	}
	if !allowEphemeral || !errors.Is(err, auth.ErrKeyNotFound) {
		return nil, err
	}

	log.Warn().
		Str("path", files.PrivatePath).
		Msg("key file missing - using an ephemeral key, tokens will not survive a restart")
	return auth.GenerateKeyPair(2048)
}

func buildRegistry(cfg *config.Config, log zerolog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if err := reg.RegisterAll(registry.Defaults(os.Getenv)); err != nil {
		return nil, err
	}

	if cfg.Gateway.ServicesFile != "" {
		services, err := registry.LoadFile(cfg.Gateway.ServicesFile)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterAll(services); err != nil {
			return nil, err
		}
		log.Info().
			Str("file", cfg.Gateway.ServicesFile).
			Int("services", len(services)).
			Msg("services file loaded")
	}

	for _, svc := range reg.List() {
		log.Info().
			Str("service", svc.Name).
			Str("base_url", svc.BaseURL).
			Bool("require_auth", svc.RequireAuth).
			Msg("service registered")
	}
	return reg, nil
}

func seedUser(ctx context.Context, repo *user.InMemoryRepository, seed config.SeedUser, log zerolog.Logger) error {
	if seed.Password == "" {
		return nil
	}
	hash, err := auth.HashPassword(seed.Password)
	if err != nil {
		return err
	}
	u := &user.User{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: hash,
	}
	if err := repo.Create(ctx, u); err != nil {
		return err
	}
	log.Info().Str("username", u.Username).Int64("user_id", u.ID).Msg("seed user created")
	return nil
}

func closeRedis(rdb *redis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis client")
	}
}
