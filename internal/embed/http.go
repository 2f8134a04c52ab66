package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// HTTP embedder defaults.
const (
	DefaultHTTPEndpoint = "http://localhost:11434"
	DefaultHTTPModel    = "nomic-embed-text"
	DefaultHTTPTimeout  = 10 * time.Second
	httpPoolSize        = 4
)

// HTTPConfig configures the remote embedding service client.
type HTTPConfig struct {
	Endpoint   string
	Model      string
	APIKeyEnv  string // env var holding the bearer token, optional
	Dimensions int
	Timeout    time.Duration
}

// HTTPEmbedder generates embeddings via an HTTP embedding service
// exposing the Ollama-style /api/embeddings endpoint.
type HTTPEmbedder struct {
	client *http.Client
	config HTTPConfig
	apiKey string

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates a remote embedder. If cfg.APIKeyEnv names an
// environment variable that is unset or empty, (nil, nil) is returned:
// a missing credential means the remote provider is unavailable, which
// callers treat as semantic matching disabled rather than an error.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHTTPEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHTTPModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.Dimensions <= 0 {
		return nil, rerrors.ConfigError(
			fmt.Sprintf("embeddings dimensions must be positive, got %d", cfg.Dimensions), nil)
	}

	var apiKey string
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, nil
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        httpPoolSize,
		MaxIdleConnsPerHost: httpPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}
	return &HTTPEmbedder{
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config: cfg,
		apiKey: apiKey,
	}, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text, retrying transient
// failures with backoff.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	return rerrors.RetryWithResult(ctx, rerrors.DefaultRetryConfig(), func() ([]float32, error) {
		return e.doEmbed(ctx, text)
	})
}

func (e *HTTPEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.config.Model, Prompt: text})
	if err != nil {
		return nil, rerrors.InternalError("failed to encode embedding request", err)
	}

	url := strings.TrimRight(e.config.Endpoint, "/") + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, rerrors.InternalError("failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if isEmbedTimeout(err) {
			return nil, rerrors.TransportError(rerrors.ErrCodeEmbedTimeout,
				fmt.Sprintf("embedding request timed out after %s", e.config.Timeout), err)
		}
		return nil, rerrors.TransportError(rerrors.ErrCodeEmbedUnavailable,
			"embedding service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, rerrors.TransportError(rerrors.ErrCodeEmbedUnavailable,
			fmt.Sprintf("embedding service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, rerrors.MalformedResponseError("failed to decode embedding response", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, rerrors.MalformedResponseError("embedding response contained no vector", nil)
	}
	if len(parsed.Embedding) != e.config.Dimensions {
		return nil, rerrors.New(rerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding service returned %d dimensions, expected %d",
				len(parsed.Embedding), e.config.Dimensions), nil)
	}
	return normalizeVector(parsed.Embedding), nil
}

func isEmbedTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// EmbedBatch generates embeddings for multiple texts sequentially.
// The Ollama embeddings endpoint accepts one prompt per call.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the remote model identifier.
func (e *HTTPEmbedder) ModelName() string {
	return e.config.Model
}

// Available probes the service root with a short timeout.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.config.Endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if t, ok := e.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
