package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"coroconcept/internal/clientip"
)

const (
	ModeAll     = "ALL"
	ModeStudio  = "STUDIO"
	ModeBackend = "BACKEND"

	StoreSQL    = "sql"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

var (
	ErrMissingCredentials = errors.New("AUTH_USERNAME and AUTH_PASSWORD must both be set")
	ErrMissingDatabaseDSN = errors.New("DB_DSN is required when GALLERY_STORE=sql")
	ErrMissingRedisAddr   = errors.New("REDIS_ADDR is required for the redis-backed components")
	ErrMissingBackendURL  = errors.New("GENERATION_BASE_URL is required in STUDIO mode")
)

type Config struct {
	AppMode string

	HTTP       HTTPConfig
	Auth       AuthConfig
	Generation GenerationConfig
	Gallery    GalleryConfig
	Navigation NavigationConfig
	Backend    BackendConfig
	Redis      RedisConfig
	DB         DBConfig
	Log        LogConfig
}

type HTTPConfig struct {
	ListenAddr     string
	HealthPath     string
	MetricsPath    string
	ReadTimeout    time.Duration
	TrustedProxies []netip.Prefix
}

type AuthConfig struct {
	Username string
	Password string
}

type GenerationConfig struct {
	// BaseURL is joined with /api/generate-image. Empty in ALL mode means this process.
	BaseURL string
}

type GalleryConfig struct {
	Store    string
	SlotName string
}

type NavigationConfig struct {
	Store      string
	RedisKey   string
	PendingTTL time.Duration
}

type BackendConfig struct {
	GeminiAPIKey   string
	RatePerHour    int64
	RequestTimeout time.Duration
	// ALL mode only: the generate-image route sits behind the studio login
	RequireLogin bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DBConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppMode: strings.ToUpper(mustEnv("APP_MODE", ModeAll)),
		HTTP: HTTPConfig{
			ListenAddr:  mustEnv("LISTEN_ADDR", ":8080"),
			HealthPath:  mustEnv("HEALTH_PATH", "/healthz"),
			MetricsPath: mustEnv("METRICS_PATH", "/metrics"),
			ReadTimeout: mustDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Username: mustEnv("AUTH_USERNAME", "coroai"),
			Password: mustEnv("AUTH_PASSWORD", "321654"),
		},
		Generation: GenerationConfig{
			BaseURL: strings.TrimSuffix(mustEnv("GENERATION_BASE_URL", ""), "/"),
		},
		Gallery: GalleryConfig{
			Store:    strings.ToLower(mustEnv("GALLERY_STORE", StoreSQL)),
			SlotName: mustEnv("GALLERY_SLOT", "coroai_gallery"),
		},
		Navigation: NavigationConfig{
			Store:      strings.ToLower(mustEnv("NAVIGATION_STORE", StoreMemory)),
			RedisKey:   mustEnv("NAVIGATION_KEY", "coroconcept:sample_init"),
			PendingTTL: mustDuration("NAVIGATION_TTL", 2*time.Hour),
		},
		Backend: BackendConfig{
			GeminiAPIKey:   mustEnv("GEMINI_API_KEY", ""),
			RatePerHour:    int64(mustInt("GENERATE_RATE_PER_HOUR", 0)),
			RequestTimeout: mustDuration("GENERATE_TIMEOUT", 3*time.Minute),
			RequireLogin:   mustBool("GENERATE_REQUIRE_LOGIN", false),
		},
		Redis: RedisConfig{
			Addr:     mustEnv("REDIS_ADDR", ""),
			Password: mustEnv("REDIS_PASSWORD", ""),
			DB:       mustInt("REDIS_DB", 0),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(mustEnv("DB_DRIVER", "sqlite")),
			DSN:         mustEnv("DB_DSN", "file:coroconcept.db?_pragma=busy_timeout(5000)"),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	trusted, err := clientip.ParsePrefixes(mustEnv("TRUSTED_PROXY_CIDRS", ""))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXY_CIDRS: %w", err)
	}
	cfg.HTTP.TrustedProxies = trusted

	if cfg.AppMode != ModeAll && cfg.AppMode != ModeStudio && cfg.AppMode != ModeBackend {
		return nil, fmt.Errorf("unsupported APP_MODE %q", cfg.AppMode)
	}
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		return nil, ErrMissingCredentials
	}
	if err := validStore("GALLERY_STORE", cfg.Gallery.Store, StoreSQL, StoreRedis, StoreMemory); err != nil {
		return nil, err
	}
	if err := validStore("NAVIGATION_STORE", cfg.Navigation.Store, StoreRedis, StoreMemory); err != nil {
		return nil, err
	}
	if cfg.RunsStudio() && cfg.Gallery.Store == StoreSQL && cfg.DB.DSN == "" {
		return nil, ErrMissingDatabaseDSN
	}
	if cfg.NeedsRedis() && cfg.Redis.Addr == "" {
		return nil, ErrMissingRedisAddr
	}
	if cfg.AppMode == ModeStudio && cfg.Generation.BaseURL == "" {
		return nil, ErrMissingBackendURL
	}

	return cfg, nil
}

func (c *Config) RunsStudio() bool {
	return c.AppMode == ModeAll || c.AppMode == ModeStudio
}

func (c *Config) RunsBackend() bool {
	return c.AppMode == ModeAll || c.AppMode == ModeBackend
}

func (c *Config) NeedsRedis() bool {
	if c.RunsStudio() && (c.Gallery.Store == StoreRedis || c.Navigation.Store == StoreRedis) {
		return true
	}
	return c.RunsBackend() && c.Backend.RatePerHour > 0
}

func validStore(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
