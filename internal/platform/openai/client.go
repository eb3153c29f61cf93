package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/httpx"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// Client is the OpenAI API surface the engine relies on: text generation for
// profile extraction, compatibility scoring, and introduction drafting, plus
// embeddings for candidate retrieval.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

func loadConfig() (config, error) {
	cfg := config{
		APIKey:      envutil.String("OPENAI_API_KEY", ""),
		BaseURL:     strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Model:       envutil.String("OPENAI_MODEL", "gpt-5-mini"),
		EmbedModel:  envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Timeout:     envutil.Duration("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 4),
		Temperature: temperatureFromEnv(),
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg, nil
}

// temperatureFromEnv resolves the sampling temperature. Extraction and
// scoring want consistency over creativity, so the default sits low; "off"
// omits the parameter entirely for models that reject it.
func temperatureFromEnv() *float64 {
	raw := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", ""))
	switch raw {
	case "off", "none", "false":
		return nil
	}
	t := 0.2
	if raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			t = f
		}
	}
	return &t
}

type client struct {
	log        *logger.Logger
	cfg        config
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("openai: logger required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &client{
		log:        log.With("service", "OpenAIClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// statusError carries a non-2xx reply so the retry logic can inspect the
// status and callers can sniff the body.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.status, e.body)
}

func (e *statusError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.status
}

// send performs one round trip and returns the response alongside the raw
// body. Non-2xx replies come back as a *statusError.
func (c *client) send(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &statusError{status: resp.StatusCode, body: string(raw)}
	}
	return resp, raw, nil
}

// postJSON sends body to path and decodes the reply into out, retrying
// transient failures with capped exponential backoff. A Retry-After hint from
// the API overrides the computed delay.
func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	wait := time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, raw, err := c.send(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("decode %s reply: %w; raw=%s", path, uErr, raw)
			}
			return nil
		}
		if attempt >= c.cfg.MaxRetries || !httpx.IsRetryableError(err) {
			return err
		}

		delay := httpx.JitterSleep(httpx.RetryAfterDuration(resp, wait, 10*time.Second))
		c.log.Warn("retrying OpenAI call",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", delay.String(),
			"error", err.Error(),
		)
		time.Sleep(delay)
		wait *= 2
	}
}

func isUnsupportedTemperatureParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "temperature") {
		return false
	}
	return strings.Contains(msg, "unsupported parameter") ||
		strings.Contains(msg, "unknown parameter") ||
		strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "does not support") ||
		strings.Contains(msg, "only the default")
}

type promptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string       `json:"model"`
	Input       []promptTurn `json:"input"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output  []outputItem `json:"output"`
	Refusal string       `json:"refusal,omitempty"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// assistantText concatenates every output_text part of the assistant message.
func assistantText(resp responsesResponse) string {
	var b strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := responsesRequest{
		Model: c.cfg.Model,
		Input: []promptTurn{
			{Role: "system", Content: strings.TrimSpace(system)},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
	}

	var resp responsesResponse
	err := c.postJSON(ctx, "/v1/responses", req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		// Retry once without the parameter for models that reject it.
		req.Temperature = nil
		err = c.postJSON(ctx, "/v1/responses", req, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model declined the request: %s", resp.Refusal)
	}

	text := assistantText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("reply carried no assistant text")
	}
	return text, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingRow struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingsResponse struct {
	Data []embeddingRow `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	// Blank input lines 400 the API; embed a single space instead.
	texts := make([]string, len(inputs))
	for i, s := range inputs {
		if t := strings.TrimSpace(s); t != "" {
			texts[i] = t
		} else {
			texts[i] = " "
		}
	}

	req := embeddingsRequest{Model: c.cfg.EmbedModel, Input: texts}

	var resp embeddingsResponse
	if err := c.postJSON(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	vectors := placeEmbeddings(resp.Data, len(texts))
	if countMissing(vectors) == 0 {
		return vectors, nil
	}

	c.log.Warn("embeddings reply incomplete; requesting again",
		"requested", len(texts),
		"returned", len(resp.Data),
		"model", c.cfg.EmbedModel,
	)

	var retry embeddingsResponse
	if err := c.postJSON(ctx, "/v1/embeddings", req, &retry); err != nil {
		return nil, err
	}
	vectors = placeEmbeddings(retry.Data, len(texts))
	if n := countMissing(vectors); n > 0 {
		return nil, fmt.Errorf("embeddings incomplete after retry: missing=%d requested=%d model=%s", n, len(texts), c.cfg.EmbedModel)
	}
	return vectors, nil
}

// placeEmbeddings slots response rows into request positions by their index
// field, falling back to response order when the indices do not line up.
func placeEmbeddings(rows []embeddingRow, n int) [][]float32 {
	out := make([][]float32, n)
	for _, row := range rows {
		if row.Index >= 0 && row.Index < n {
			out[row.Index] = toFloat32(row.Embedding)
		}
	}
	if countMissing(out) > 0 && len(rows) == n {
		for i, row := range rows {
			if out[i] == nil {
				out[i] = toFloat32(row.Embedding)
			}
		}
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func countMissing(vectors [][]float32) int {
	n := 0
	for _, v := range vectors {
		if len(v) == 0 {
			n++
		}
	}
	return n
}
