package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"coroconcept/internal/concept"
	"coroconcept/internal/metrics"
)

const EndpointPath = "/api/generate-image"

const MsgConnectFailed = "Gagal menghubungkan ke server."

const maxResponseBytes = 64 << 20

// Error is a failed generation. Message is user-facing; Status is 0 when no HTTP response
// was decoded.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

type Client struct {
	endpoint   string
	maxBody    int64
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		// no timeout: a call ends only with the response or the caller's ctx
		cfg.HTTPClient = &http.Client{}
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Client{
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + EndpointPath,
		maxBody:    maxResponseBytes,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		metrics:    m,
	}
}

type forwardedForKey struct{}

// WithForwardedFor makes the call carry ip as X-Forwarded-For, so a backend that trusts this
// process rate-limits the end user instead of the studio.
func WithForwardedFor(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, forwardedForKey{}, ip)
}

type wireRequest struct {
	Images      []string `json:"images"`
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspectRatio"`
	ModelName   string   `json:"modelName"`
}

type wireResponse struct {
	ResultBase64 string          `json:"resultBase64"`
	MimeType     string          `json:"mimeType"`
	Timing       json.RawMessage `json:"timing"`
	Error        string          `json:"error"`
}

func (c *Client) Generate(ctx context.Context, req concept.GenerateRequest) (concept.GenerateResponse, error) {
	c.metrics.Generations.Inc()
	resp, err := c.call(ctx, req)
	if err != nil {
		c.metrics.GenerationFailures.Inc()
		c.logger.Error().Err(err).Str("model", req.ModelChoice.String()).Msg("generation api error")
		return concept.GenerateResponse{}, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, req concept.GenerateRequest) (concept.GenerateResponse, error) {
	images := req.Images
	if images == nil {
		images = []string{}
	}
	body, err := json.Marshal(wireRequest{
		Images:      images,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio.String(),
		ModelName:   req.ModelChoice.BackendModel(),
	})
	if err != nil {
		return concept.GenerateResponse{}, &Error{Message: MsgConnectFailed, Err: fmt.Errorf("marshal generate request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return concept.GenerateResponse{}, &Error{Message: MsgConnectFailed, Err: fmt.Errorf("build generate request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if ip, _ := ctx.Value(forwardedForKey{}).(string); ip != "" {
		httpReq.Header.Set("X-Forwarded-For", ip)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return concept.GenerateResponse{}, &Error{Message: MsgConnectFailed, Err: fmt.Errorf("generate request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, c.maxBody+1))
	if err == nil && int64(len(raw)) > c.maxBody {
		err = fmt.Errorf("response exceeds %d bytes", c.maxBody)
	}
	if err != nil {
		return concept.GenerateResponse{}, &Error{Message: MsgConnectFailed, Err: fmt.Errorf("read generate response: %w", err)}
	}

	var data wireResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return concept.GenerateResponse{}, &Error{
			Status:  httpResp.StatusCode,
			Message: MsgConnectFailed,
			Err:     fmt.Errorf("decode generate response: %w", err),
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := data.Error
		if msg == "" {
			msg = fmt.Sprintf("Server Error: %d", httpResp.StatusCode)
		}
		return concept.GenerateResponse{}, &Error{Status: httpResp.StatusCode, Message: msg}
	}

	return concept.GenerateResponse{
		ResultBase64: data.ResultBase64,
		MimeType:     data.MimeType,
		Timing:       data.Timing,
	}, nil
}
