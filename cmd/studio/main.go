package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coroconcept/internal/backend"
	"coroconcept/internal/clientip"
	"coroconcept/internal/config"
	"coroconcept/internal/gallery"
	"coroconcept/internal/generation"
	"coroconcept/internal/metrics"
	"coroconcept/internal/navigation"
	"coroconcept/internal/session"
	"coroconcept/internal/slot"
	"coroconcept/internal/storage"
	"coroconcept/internal/studio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("mode", cfg.AppMode).
		Str("gallery_store", cfg.Gallery.Store).
		Str("navigation_store", cfg.Navigation.Store).
		Msg("starting coroconcept")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
	}

	m := metrics.Global()
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.HTTP.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())

	studioIP := clientip.NewResolver(cfg.HTTP.TrustedProxies...)
	backendTrusted := cfg.HTTP.TrustedProxies
	var svc *studio.Service

	if cfg.RunsStudio() {
		gallerySlot := slot.Slot(slot.NewMemory())
		switch cfg.Gallery.Store {
		case config.StoreSQL:
			store, err := storage.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, cfg.DB.AutoMigrate)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to initialize storage")
			}
			defer store.Close()
			gallerySlot = store.Slot(cfg.Gallery.SlotName)
		case config.StoreRedis:
			gallerySlot = slot.NewRedis(rdb, cfg.Gallery.SlotName)
		}

		var pending navigation.PendingStore = navigation.NewMemoryPending()
		if cfg.Navigation.Store == config.StoreRedis {
			pending = navigation.NewRedisPending(rdb, cfg.Navigation.RedisKey, cfg.Navigation.PendingTTL)
		}

		baseURL := cfg.Generation.BaseURL
		if baseURL == "" {
			baseURL = loopbackURL(cfg.HTTP.ListenAddr)
			backendTrusted = append(append([]netip.Prefix{}, backendTrusted...), clientip.Loopback...)
		}

		logger := log.Logger.With().Str("component", "studio").Logger()
		svc = studio.NewService(studio.Config{
			Gate: session.NewGate(session.Config{
				Verifier: session.StaticVerifier{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
				Logger:   logger,
				Metrics:  m,
			}),
			Generator: generation.New(generation.Config{BaseURL: baseURL, Logger: logger, Metrics: m}),
			Gallery:   gallery.NewStore(gallery.Config{Slot: gallerySlot, Logger: logger, Metrics: m}),
			Navigator: navigation.NewNavigator(pending),
			ClientIP:  studioIP,
			Logger:    logger,
			Metrics:   m,
		})
		svc.Register(mux)
		log.Info().Str("generation_url", baseURL+generation.EndpointPath).Msg("studio enabled")
	}

	if cfg.RunsBackend() {
		gen, err := backend.NewGemini(ctx, cfg.Backend.GeminiAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize gemini client")
		}
		var limiter *backend.RateLimiter
		if cfg.Backend.RatePerHour > 0 {
			limiter = backend.NewRateLimiter(rdb, cfg.Backend.RatePerHour)
		}
		var handler http.Handler = backend.NewHandler(backend.Config{
			Generator:   gen,
			RateLimiter: limiter,
			ClientIP:    clientip.NewResolver(backendTrusted...),
			Logger:      log.Logger.With().Str("component", "backend").Logger(),
			Metrics:     m,
		})
		handler = http.TimeoutHandler(handler, cfg.Backend.RequestTimeout, `{"error":"Server timeout"}`)
		gated := svc != nil && cfg.Backend.RequireLogin
		if gated {
			handler = svc.RequireLogin(handler)
		}
		mux.Handle("POST "+generation.EndpointPath, handler)
		log.Info().Int64("rate_per_hour", cfg.Backend.RatePerHour).Bool("require_login", gated).Msg("generation backend enabled")
	}

	errCh := make(chan error, 1)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func loopbackURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
