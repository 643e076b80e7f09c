package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"coroconcept/internal/concept"
)

func newTestClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, Logger: zerolog.Nop()})
}

func TestGenerateSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != EndpointPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"resultBase64":"QUJD","mimeType":"image/png","timing":{"totalMs":1200}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Generate(context.Background(), concept.GenerateRequest{
		Images:      []string{"data:image/png;base64,AAAA"},
		Prompt:      "neon city",
		AspectRatio: concept.AspectLandscape,
		ModelChoice: concept.ModelPro,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.ResultBase64 != "QUJD" || resp.MimeType != "image/png" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if string(resp.Timing) != `{"totalMs":1200}` {
		t.Fatalf("unexpected timing %s", resp.Timing)
	}

	if got["modelName"] != "gemini-3-pro-image-preview" {
		t.Fatalf("expected mapped model name, got %#v", got["modelName"])
	}
	if got["aspectRatio"] != "16:9" || got["prompt"] != "neon city" {
		t.Fatalf("unexpected payload %#v", got)
	}
	if imgs, ok := got["images"].([]any); !ok || len(imgs) != 1 {
		t.Fatalf("unexpected images %#v", got["images"])
	}
}

func TestGenerateServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), concept.GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "boom" {
		t.Fatalf("expected message boom, got %q", err.Error())
	}
	var genErr *Error
	if !errors.As(err, &genErr) || genErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected *Error with status 500, got %#v", err)
	}
}

func TestGenerateServerErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), concept.GenerateRequest{Prompt: "x"})
	if err == nil || err.Error() != "Server Error: 502" {
		t.Fatalf("expected templated status message, got %v", err)
	}
}

func TestGenerateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Generate(context.Background(), concept.GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != MsgConnectFailed {
		t.Fatalf("expected generic connectivity message, got %q", err.Error())
	}
	if err.Error() == "boom" {
		t.Fatalf("connectivity failure must not carry a server message")
	}
}

func TestGenerateUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), concept.GenerateRequest{Prompt: "x"})
	if err == nil || err.Error() != MsgConnectFailed {
		t.Fatalf("expected generic connectivity message, got %v", err)
	}
}

func TestGenerateUnmappedModelSendsEmptyName(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"resultBase64":"","mimeType":""}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Generate(context.Background(), concept.GenerateRequest{ModelChoice: "turbo"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got["modelName"] != "" {
		t.Fatalf("expected empty model name, got %#v", got["modelName"])
	}
	if imgs, ok := got["images"].([]any); !ok || len(imgs) != 0 {
		t.Fatalf("expected empty images array, got %#v", got["images"])
	}
}

func TestGenerateOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resultBase64":"` + strings.Repeat("A", 256) + `","mimeType":"image/png"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.maxBody = 64
	_, err := c.Generate(context.Background(), concept.GenerateRequest{Prompt: "x", ModelChoice: concept.ModelFlash})
	var genErr *Error
	if !errors.As(err, &genErr) || genErr.Message != MsgConnectFailed {
		t.Fatalf("expected connect failure for oversized body, got %v", err)
	}
	if c := newTestClient(srv.URL); c.maxBody != maxResponseBytes {
		t.Fatalf("expected default cap %d, got %d", maxResponseBytes, c.maxBody)
	}
}

func TestGenerateForwardsCallerIP(t *testing.T) {
	got := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Forwarded-For")
		_, _ = w.Write([]byte(`{"resultBase64":"QUJD","mimeType":"image/png"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	req := concept.GenerateRequest{Prompt: "x", ModelChoice: concept.ModelFlash}
	if _, err := c.Generate(WithForwardedFor(context.Background(), "198.51.100.7"), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if v := <-got; v != "198.51.100.7" {
		t.Fatalf("expected forwarded ip, got %q", v)
	}
	if _, err := c.Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if v := <-got; v != "" {
		t.Fatalf("expected no header without caller ip, got %q", v)
	}
}
