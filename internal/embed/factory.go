package embed

import (
	"fmt"
	"log/slog"
	"time"

	rerrors "github.com/contextlab/recall/internal/errors"
)

// Provider names accepted by the factory.
const (
	ProviderStatic = "static"
	ProviderHTTP   = "http"
	ProviderNone   = "none"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string
	Endpoint   string
	Model      string
	APIKeyEnv  string
	Dimensions int
	Timeout    time.Duration
	CacheSize  int
}

// New creates an embedder for the configured provider, wrapped in an LRU
// cache. A nil embedder with a nil error means embeddings are disabled:
// either provider "none", or an HTTP provider whose credential env var is
// unset. Callers skip semantic matching in that case.
func New(cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case ProviderNone:
		return nil, nil

	case ProviderStatic, "":
		return NewCachedEmbedder(NewStaticEmbedder(), cfg.CacheSize), nil

	case ProviderHTTP:
		inner, err := NewHTTPEmbedder(HTTPConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			APIKeyEnv:  cfg.APIKeyEnv,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		if inner == nil {
			logger.Warn("embedding credential not set, semantic matching disabled",
				"api_key_env", cfg.APIKeyEnv)
			return nil, nil
		}
		return NewCachedEmbedder(inner, cfg.CacheSize), nil

	default:
		return nil, rerrors.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q (expected static, http, or none)", cfg.Provider), nil)
	}
}
