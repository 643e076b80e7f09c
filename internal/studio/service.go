package studio

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"coroconcept/internal/clientip"
	"coroconcept/internal/concept"
	"coroconcept/internal/gallery"
	"coroconcept/internal/metrics"
	"coroconcept/internal/navigation"
	"coroconcept/internal/session"
)

type Generator interface {
	Generate(ctx context.Context, req concept.GenerateRequest) (concept.GenerateResponse, error)
}

type Service struct {
	gate      *session.Gate
	generator Generator
	gallery   *gallery.Store
	navigator *navigation.Navigator
	clientIP  *clientip.Resolver
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	newID     func() string
	now       func() time.Time
}

type Config struct {
	Gate      *session.Gate
	Generator Generator
	Gallery   *gallery.Store
	Navigator *navigation.Navigator
	// forwarded to the backend as X-Forwarded-For; nil uses the socket peer
	ClientIP *clientip.Resolver
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	NewID    func() string
	Now      func() time.Time
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = newItemID
	}
	if cfg.Navigator == nil {
		cfg.Navigator = navigation.NewNavigator(nil)
	}
	return &Service{
		gate:      cfg.Gate,
		generator: cfg.Generator,
		gallery:   cfg.Gallery,
		navigator: cfg.Navigator,
		clientIP:  cfg.ClientIP,
		logger:    cfg.Logger,
		metrics:   m,
		newID:     cfg.NewID,
		now:       cfg.Now,
	}
}

func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", s.login)
	mux.HandleFunc("POST /api/logout", s.logout)
	mux.HandleFunc("GET /api/session", s.sessionState)
	mux.HandleFunc("GET /api/options", s.options)

	mux.HandleFunc("POST /api/concepts", s.requireLogin(s.createConcept))
	mux.HandleFunc("POST /api/samples", s.requireLogin(s.createSample))

	mux.HandleFunc("GET /api/gallery", s.requireLogin(s.listGallery))
	mux.HandleFunc("POST /api/gallery", s.requireLogin(s.saveGallery))
	mux.HandleFunc("DELETE /api/gallery/{id}", s.requireLogin(s.deleteGallery))
	mux.HandleFunc("POST /api/gallery/{id}/sample", s.requireLogin(s.galleryToSample))

	mux.HandleFunc("GET /api/navigation", s.requireLogin(s.currentNavigation))
	mux.HandleFunc("POST /api/navigation", s.requireLogin(s.navigate))
}
