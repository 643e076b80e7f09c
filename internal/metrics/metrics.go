package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Generations         prometheus.Counter
	GenerationFailures  prometheus.Counter
	GallerySaves        prometheus.Counter
	GalleryDeletes      prometheus.Counter
	GalleryCorruptReads prometheus.Counter
	LoginFailures       prometheus.Counter
	BackendRequests     prometheus.Counter
	BackendRateLimited  prometheus.Counter
	GenerateDuration    *prometheus.HistogramVec
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			Generations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "generations_total",
				Help:      "Total generation calls issued to the image API",
			}),
			GenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "generation_failures_total",
				Help:      "Total generation calls that failed",
			}),
			GallerySaves: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "gallery_saves_total",
				Help:      "Total concepts saved to the gallery",
			}),
			GalleryDeletes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "gallery_deletes_total",
				Help:      "Total concepts removed from the gallery",
			}),
			GalleryCorruptReads: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "gallery_corrupt_reads_total",
				Help:      "Total gallery reads that found unparseable data",
			}),
			LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "login_failures_total",
				Help:      "Total rejected login attempts",
			}),
			BackendRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "backend_requests_total",
				Help:      "Total generate-image requests served by the backend",
			}),
			BackendRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "coroconcept",
				Name:      "backend_rate_limited_total",
				Help:      "Total generate-image requests rejected by the hourly limit",
			}),
			GenerateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "coroconcept",
				Name:      "generate_duration_seconds",
				Help:      "Time spent in the image model per successful generate-image request",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
			}, []string{"model"}),
		}
		prometheus.MustRegister(
			global.Generations,
			global.GenerationFailures,
			global.GallerySaves,
			global.GalleryDeletes,
			global.GalleryCorruptReads,
			global.LoginFailures,
			global.BackendRequests,
			global.BackendRateLimited,
			global.GenerateDuration,
		)
	})
	return global
}
