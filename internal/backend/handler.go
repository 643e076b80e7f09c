package backend

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coroconcept/internal/clientip"
	"coroconcept/internal/concept"
	"coroconcept/internal/metrics"
	"coroconcept/internal/respond"
)

const maxRequestBytes = 40 << 20

type Config struct {
	Generator   Generator
	RateLimiter *RateLimiter
	// nil keys the rate limit on the socket peer
	ClientIP *clientip.Resolver
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type Handler struct {
	generator   Generator
	rateLimiter *RateLimiter
	clientIP    *clientip.Resolver
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewHandler(cfg Config) *Handler {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		generator:   cfg.Generator,
		rateLimiter: cfg.RateLimiter,
		clientIP:    cfg.ClientIP,
		logger:      cfg.Logger,
		metrics:     m,
		now:         cfg.Now,
	}
}

type generateRequest struct {
	Images      []string `json:"images"`
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspectRatio"`
	ModelName   string   `json:"modelName"`
}

type timing struct {
	TotalMs int64 `json:"totalMs"`
}

type generateResponse struct {
	ResultBase64 string `json:"resultBase64"`
	MimeType     string `json:"mimeType"`
	Timing       timing `json:"timing"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.metrics.BackendRequests.Inc()
	start := h.now()

	var req generateRequest
	if err := respond.Decode(r, maxRequestBytes, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respond.Error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	model, ok := resolveModel(req.ModelName)
	if !ok {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("unsupported model %q", req.ModelName))
		return
	}
	aspect := concept.AspectRatio(req.AspectRatio).OrDefault()
	if !aspect.Valid() {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("unsupported aspect ratio %q", req.AspectRatio))
		return
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.rateLimiter != nil {
		client := h.clientIP.IP(r)
		quota, err := h.rateLimiter.Allow(r.Context(), client, start)
		if err != nil {
			h.logger.Error().Err(err).Str("client", client).Msg("rate limiter unavailable")
		} else if !quota.Allowed {
			h.metrics.BackendRateLimited.Inc()
			h.logger.Warn().Str("client", client).Int64("used", quota.Used).Msg("generate rate limited")
			w.Header().Set("Retry-After", strconv.Itoa(quota.RetryAfter(start)))
			respond.Error(w, http.StatusTooManyRequests, "Batas generate per jam tercapai. Coba lagi nanti.")
			return
		}
	}

	img, err := h.generator.GenerateImage(r.Context(), model, req.Prompt, aspect.String(), images)
	if err != nil {
		h.logger.Error().Err(err).Str("model", model).Msg("image generation failed")
		msg := "Gagal membuat gambar."
		if errors.Is(err, ErrNoImage) {
			msg = "Model tidak mengembalikan gambar. Coba ubah prompt."
		}
		respond.Error(w, http.StatusInternalServerError, msg)
		return
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(img.Data)
	}
	elapsed := h.now().Sub(start)
	h.metrics.GenerateDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	h.logger.Info().Str("model", model).Int("images_in", len(images)).Dur("elapsed", elapsed).Msg("image generated")

	respond.JSON(w, http.StatusOK, generateResponse{
		ResultBase64: base64.StdEncoding.EncodeToString(img.Data),
		MimeType:     mimeType,
		Timing:       timing{TotalMs: elapsed.Milliseconds()},
	})
}

func resolveModel(name string) (string, bool) {
	if name == "" {
		return concept.ModelFlash.BackendModel(), true
	}
	for _, backendName := range concept.ModelMapping {
		if backendName == name {
			return name, true
		}
	}
	return "", false
}

func decodeImages(raw []string) ([]InputImage, error) {
	out := make([]InputImage, 0, len(raw))
	for i, s := range raw {
		mimeType, payload := concept.ParseDataURL(s)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("image %d is not valid base64", i)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("image %d is empty", i)
		}
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		out = append(out, InputImage{Data: data, MIMEType: mimeType})
	}
	return out, nil
}
