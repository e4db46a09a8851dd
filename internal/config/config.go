// Package config loads gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgegate/edgegate/internal/auth"
	"github.com/edgegate/edgegate/internal/cache"
	"github.com/edgegate/edgegate/internal/database"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the complete gateway configuration.
type Config struct {
	App       AppConfig
	Telemetry TelemetryConfig
	Database  database.Config
	Redis     cache.Config
	Auth      AuthConfig
	Gateway   GatewayConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port            string
	Env             string
	RequireTLS      bool
	ShutdownTimeout time.Duration
}

// IsProduction reports whether the gateway runs in production.
func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// AuthConfig holds token and session settings.
type AuthConfig struct {
	AccessKey  auth.KeyFiles
	RefreshKey auth.KeyFiles

	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// SessionTTL is how long a login stays revocable in the session store.
	SessionTTL      time.Duration
	ProfileCacheTTL time.Duration

	// PurgeStaleSession deletes the stored session when a presented token
	// carries a superseded session id.
	PurgeStaleSession bool

	// SeedUser is created in the in-memory user store at startup when no
	// database is configured and a password is set.
	SeedUser SeedUser
}

// SeedUser describes a development account.
type SeedUser struct {
	Username string
	Email    string
	Password string
}

// GatewayConfig holds registry, proxy and prober settings.
type GatewayConfig struct {
	ServicesFile string
	RateLimit    int

	ProbeInterval    time.Duration
	ProbeTimeout     time.Duration
	ProbeConcurrency int

	// ProbeUnconfigured probes services without a health path at
	// ProbeDefaultPath instead of reporting them healthy.
	ProbeUnconfigured bool
	ProbeDefaultPath  string

	PubSubProject      string
	PubSubSubscription string
}

// RegistryFeedEnabled reports whether the Pub/Sub registry feed is configured.
func (c GatewayConfig) RegistryFeedEnabled() bool {
	return c.PubSubProject != "" && c.PubSubSubscription != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		App: AppConfig{
			Port:            getEnvOrDefault("APP_PORT", "8080"),
			Env:             getEnvOrDefault("APP_ENV", EnvDevelopment),
			RequireTLS:      p.bool("REQUIRE_TLS", false),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.bool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:     p.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio:  p.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Database: database.Config{
			Host:            os.Getenv("DB_HOST"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnvOrDefault("DB_USER", "edgegate"),
			Password:        getEnvOrDefault("DB_PASSWORD", "edgegate"),
			Database:        getEnvOrDefault("DB_NAME", "edgegate"),
			SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectRetries:  uint64(p.int("DB_CONNECT_RETRIES", 5)), //nolint:gosec // validated non-negative below
		},
		Redis: cache.Config{
			Addr:           os.Getenv("REDIS_ADDR"),
			Username:       os.Getenv("REDIS_USERNAME"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             p.int("REDIS_DB", 0),
			Prefix:         getEnvOrDefault("REDIS_PREFIX", "edgegate:"),
			ConnectRetries: uint64(p.int("REDIS_CONNECT_RETRIES", 5)), //nolint:gosec // validated non-negative below
		},
		Auth: AuthConfig{
			AccessKey: auth.KeyFiles{
				PrivatePath: getEnvOrDefault("ACCESS_PRIVATE_KEY_PATH", "secret_key/private_access_rsa_key.pem"),
				PublicPath:  getEnvOrDefault("ACCESS_PUBLIC_KEY_PATH", "secret_key/public_access_rsa_key.pem"),
			},
			RefreshKey: auth.KeyFiles{
				PrivatePath: getEnvOrDefault("REFRESH_PRIVATE_KEY_PATH", "secret_key/private_refresh_rsa_key.pem"),
				PublicPath:  getEnvOrDefault("REFRESH_PUBLIC_KEY_PATH", "secret_key/public_refresh_rsa_key.pem"),
			},
			Issuer:            getEnvOrDefault("TOKEN_ISSUER", "edgegate"),
			AccessTokenTTL:    p.duration("ACCESS_TOKEN_TTL", auth.DefaultAccessTokenTTL),
			RefreshTokenTTL:   p.duration("REFRESH_TOKEN_TTL", auth.DefaultRefreshTokenTTL),
			ProfileCacheTTL:   p.duration("PROFILE_CACHE_TTL", 24*time.Hour),
			PurgeStaleSession: p.bool("AUTH_PURGE_STALE_SESSION", false),
			SeedUser: SeedUser{
				Username: getEnvOrDefault("SEED_USER_NAME", "admin"),
				Email:    getEnvOrDefault("SEED_USER_EMAIL", "admin@example.com"),
				Password: os.Getenv("SEED_USER_PASSWORD"),
			},
		},
		Gateway: GatewayConfig{
			ServicesFile:       os.Getenv("GATEWAY_SERVICES_FILE"),
			RateLimit:          p.int("GATEWAY_RATE_LIMIT", 100),
			ProbeInterval:      p.duration("PROBE_INTERVAL", 30*time.Second),
			ProbeTimeout:       p.duration("PROBE_TIMEOUT", 5*time.Second),
			ProbeConcurrency:   p.int("PROBE_CONCURRENCY", 8),
			ProbeUnconfigured:  p.bool("PROBE_UNCONFIGURED", false),
			ProbeDefaultPath:   getEnvOrDefault("PROBE_DEFAULT_HEALTH_PATH", "/health"),
			PubSubProject:      os.Getenv("REGISTRY_PUBSUB_PROJECT"),
			PubSubSubscription: os.Getenv("REGISTRY_PUBSUB_SUBSCRIPTION"),
		},
	}
	cfg.Auth.SessionTTL = p.duration("SESSION_TTL", cfg.Auth.RefreshTokenTTL)

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env != EnvDevelopment && c.App.Env != EnvProduction && c.App.Env != "test" {
		errs = append(errs, fmt.Errorf("APP_ENV: unknown environment %q", c.App.Env))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL: must be positive"))
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL: must be positive"))
	}
	if c.Auth.SessionTTL < c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("SESSION_TTL: must not be shorter than ACCESS_TOKEN_TTL"))
	}
	if c.Gateway.RateLimit <= 0 {
		errs = append(errs, errors.New("GATEWAY_RATE_LIMIT: must be positive"))
	}
	if c.Gateway.ProbeInterval <= 0 {
		errs = append(errs, errors.New("PROBE_INTERVAL: must be positive"))
	}
	if c.Gateway.ProbeConcurrency <= 0 {
		errs = append(errs, errors.New("PROBE_CONCURRENCY: must be positive"))
	}
	if c.Database.MaxOpenConns <= 0 || c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS/DB_MAX_IDLE_CONNS: out of range"))
	}
	if c.App.IsProduction() && !c.Redis.Enabled() {
		errs = append(errs, errors.New("REDIS_ADDR: required in production"))
	}
	if c.App.IsProduction() && c.Auth.SeedUser.Password != "" {
		errs = append(errs, errors.New("SEED_USER_PASSWORD: not allowed in production"))
	}

	return errors.Join(errs...)
}

type parser struct {
	errs []error
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return n
}

func (p *parser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid ratio %q", key, value))
		return defaultValue
	}
	return f
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return b
}

// duration accepts a Go duration ("90s", "1h") or a plain number of seconds.
func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
