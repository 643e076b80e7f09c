package config

import (
	"errors"
	"net/netip"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppMode != ModeAll || !cfg.RunsStudio() || !cfg.RunsBackend() {
		t.Fatalf("unexpected mode %q", cfg.AppMode)
	}
	if cfg.Auth.Username != "coroai" || cfg.Auth.Password != "321654" {
		t.Fatalf("unexpected default credentials %+v", cfg.Auth)
	}
	if cfg.Gallery.Store != StoreSQL || cfg.Gallery.SlotName != "coroai_gallery" {
		t.Fatalf("unexpected gallery config %+v", cfg.Gallery)
	}
	if cfg.NeedsRedis() {
		t.Fatalf("defaults must not require redis")
	}
	if len(cfg.HTTP.TrustedProxies) != 0 || cfg.Backend.RequireLogin {
		t.Fatalf("defaults must trust no proxy and leave the backend ungated")
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 192.168.1.5")
	t.Setenv("GENERATE_REQUIRE_LOGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("192.168.1.5/32")}
	if len(cfg.HTTP.TrustedProxies) != 2 || cfg.HTTP.TrustedProxies[0] != want[0] || cfg.HTTP.TrustedProxies[1] != want[1] {
		t.Fatalf("unexpected trusted proxies %v", cfg.HTTP.TrustedProxies)
	}
	if !cfg.Backend.RequireLogin {
		t.Fatalf("expected GENERATE_REQUIRE_LOGIN to be read")
	}

	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/40")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid cidr to be rejected")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_MODE", "studio")
	t.Setenv("GENERATION_BASE_URL", "http://backend:8080/")
	t.Setenv("GALLERY_STORE", "REDIS")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("NAVIGATION_TTL", "15m")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppMode != ModeStudio || cfg.RunsBackend() {
		t.Fatalf("expected studio-only mode, got %q", cfg.AppMode)
	}
	if cfg.Generation.BaseURL != "http://backend:8080" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Generation.BaseURL)
	}
	if cfg.Gallery.Store != StoreRedis || !cfg.NeedsRedis() {
		t.Fatalf("expected redis gallery store")
	}
	if cfg.Navigation.PendingTTL != 15*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.Navigation.PendingTTL)
	}
	if cfg.Redis.DB != 0 {
		t.Fatalf("expected invalid int to fall back to default, got %d", cfg.Redis.DB)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Run("mode", func(t *testing.T) {
		t.Setenv("APP_MODE", "WORKER")
		if _, err := Load(); err == nil {
			t.Fatalf("expected unsupported mode error")
		}
	})
	t.Run("redis", func(t *testing.T) {
		t.Setenv("NAVIGATION_STORE", "redis")
		if _, err := Load(); !errors.Is(err, ErrMissingRedisAddr) {
			t.Fatalf("expected ErrMissingRedisAddr, got %v", err)
		}
	})
	t.Run("studio backend url", func(t *testing.T) {
		t.Setenv("APP_MODE", "STUDIO")
		if _, err := Load(); !errors.Is(err, ErrMissingBackendURL) {
			t.Fatalf("expected ErrMissingBackendURL, got %v", err)
		}
	})
	t.Run("navigation store", func(t *testing.T) {
		t.Setenv("NAVIGATION_STORE", "sql")
		if _, err := Load(); err == nil {
			t.Fatalf("expected sql navigation store to be rejected")
		}
	})
	t.Run("rate limit needs redis", func(t *testing.T) {
		t.Setenv("GENERATE_RATE_PER_HOUR", "10")
		if _, err := Load(); !errors.Is(err, ErrMissingRedisAddr) {
			t.Fatalf("expected ErrMissingRedisAddr, got %v", err)
		}
	})
}
