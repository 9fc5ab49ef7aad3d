// Package httpembed is a net/http embedding client for any
// OpenAI-compatible /embeddings endpoint.
package httpembed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// maxErrorBody bounds how much of a failed response is read for the message.
const maxErrorBody = 64 << 10

// Config holds the endpoint settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Provider   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Embedder posts texts to {BaseURL}/embeddings.
type Embedder struct {
	url        string
	modelsURL  string
	apiKey     string
	model      string
	dimensions int
	provider   string
	timeout    time.Duration
	client     *http.Client
	logger     *zap.Logger
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage embeddingUsage  `json:"usage"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// errorBody covers both {"error":{"message"}} (OpenAI) and {"detail"} (Nebius).
type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// New creates a raw-HTTP embedder.
func New(cfg Config) *Embedder {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/embeddings",
		modelsURL:  strings.TrimRight(cfg.BaseURL, "/") + "/models",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		timeout:    cfg.Timeout,
		client:     client,
		logger:     logger,
	}
}

// Embed implements domain.Embedder with a single POST.
func (e *Embedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.EmbeddingResult{}, nil
	}

	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model, Dimensions: e.dimensions})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)

	metrics.EmbeddingTextsTotal.WithLabelValues(e.provider, e.model).Add(float64(len(texts)))
	start := time.Now()

	res, err := e.do(req, len(texts))
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		e.logger.Debug("Embedding request failed", zap.Int("texts", len(texts)), zap.Error(err))
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(time.Since(start).Seconds())
	if res.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "prompt").Add(float64(res.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(res.TotalTokens))
	}
	return res, nil
}

func (e *Embedder) do(req *http.Request, want int) (domain.EmbeddingResult, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return domain.EmbeddingResult{}, &domain.TransportError{Op: "POST " + e.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.EmbeddingResult{}, &domain.EmbeddingServiceError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(raw, resp.Status),
		}
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// body cut short by a deadline or reset
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, io.ErrUnexpectedEOF) {
			return domain.EmbeddingResult{}, &domain.TransportError{Op: "read response", Err: err}
		}
		return domain.EmbeddingResult{}, &domain.EmbeddingServiceError{
			StatusCode: resp.StatusCode,
			Message:    "malformed response: " + err.Error(),
		}
	}

	if len(parsed.Data) != want {
		return domain.EmbeddingResult{}, &domain.AlignmentError{Want: want, Got: len(parsed.Data)}
	}
	out := make([][]float32, want)
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= want || out[d.Index] != nil {
			return domain.EmbeddingResult{}, &domain.AlignmentError{Want: want, Got: len(parsed.Data)}
		}
		out[d.Index] = d.Embedding
	}

	return domain.EmbeddingResult{
		Embeddings:   out,
		PromptTokens: parsed.Usage.PromptTokens,
		TotalTokens:  parsed.Usage.TotalTokens,
	}, nil
}

func upstreamMessage(raw []byte, status string) string {
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Error != nil && eb.Error.Message != "" {
			return eb.Error.Message
		}
		if eb.Detail != "" {
			return eb.Detail
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return status
}

func (e *Embedder) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// HealthCheck lists models with GET {BaseURL}/models, which spends no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.modelsURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "GET " + e.modelsURL, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.EmbeddingServiceError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(raw, resp.Status),
		}
	}
	return nil
}
