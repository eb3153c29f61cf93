package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

func testClient(t *testing.T, serverURL string) Client {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", serverURL)
	t.Setenv("OPENAI_MAX_RETRIES", "2")
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := NewClient(log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func respondText(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"output": []map[string]any{
			{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
	})
}

func TestGenerateText_ParsesOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		respondText(w, "persona: enjoys bouldering")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.GenerateText(context.Background(), "extract", "I climb most weekends")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "persona: enjoys bouldering" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestGenerateText_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		respondText(w, "ok")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.GenerateText(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected text: %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestGenerateText_NoRetryOnAuthFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.GenerateText(context.Background(), "s", "u"); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("auth failure must not retry, got %d attempts", n)
	}
}

func TestGenerateText_TemperatureFallback(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		if atomic.AddInt32(&calls, 1) == 1 {
			if _, ok := req["temperature"]; !ok {
				t.Errorf("first request should carry temperature")
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`))
			return
		}
		if _, ok := req["temperature"]; ok {
			t.Errorf("retry should omit temperature")
		}
		respondText(w, "ok")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.GenerateText(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "ok" {
		t.Fatalf("unexpected text: %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected temperature fallback retry, got %d attempts", n)
	}
}

func TestEmbed_MapsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0.5, 0.5}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
	if got[0][0] != 1 || got[1][0] != 0.5 {
		t.Fatalf("index mapping wrong: %v", got)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for empty input")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	got, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
