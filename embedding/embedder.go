// Package embedding turns narrative text into unit-length dense vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"airbnb-similarity/config"
	"airbnb-similarity/utils"
)

// ErrDegenerateVector is reported when a backend returns a vector that cannot
// be normalised (all zeros or non-finite components).
var ErrDegenerateVector = errors.New("degenerate embedding vector")

// Embedder converts a batch of texts into vectors, one per text, in order.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// ModelLoadError means no embedding backend could be brought up.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("embedding model %q unavailable: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// EncodingError means a batch could not be embedded. Index is the position
// of the offending text in the generator input, or -1 for the whole batch.
type EncodingError struct {
	Batch int
	Index int
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("embedding batch %d (text %d): %v", e.Batch, e.Index, e.Err)
	}
	return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Open builds the embedder named by cfg. For remote providers the endpoints
// are probed in the configured order and the first one that answers is used
// for the rest of the run.
func Open(ctx context.Context, cfg config.EmbeddingConfig, logger *utils.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderHash:
		if cfg.HashDim < 1 {
			return nil, &ModelLoadError{Model: config.ProviderHash, Err: fmt.Errorf("dimension must be positive, got %d", cfg.HashDim)}
		}
		logger.Info("[embedding] Using local hashing embedder (%d dims)", cfg.HashDim)
		return NewHashEmbedder(cfg.HashDim), nil

	case config.ProviderOpenAI:
		if cfg.Model == "" {
			return nil, &ModelLoadError{Model: cfg.Model, Err: errors.New("no model configured")}
		}
		if len(cfg.Endpoints) == 0 {
			return nil, &ModelLoadError{Model: cfg.Model, Err: errors.New("no endpoints configured")}
		}

		var apiKey string
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}

		var errs []error
		for _, endpoint := range cfg.Endpoints {
			client := NewClient(ClientConfig{
				Endpoint:   endpoint,
				APIKey:     apiKey,
				Model:      cfg.Model,
				Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
				MaxRetries: cfg.MaxRetries,
				Logger:     logger,
			})
			if err := client.Probe(ctx); err != nil {
				logger.Warn("[embedding] Endpoint %s unavailable: %v", endpoint, err)
				errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
				continue
			}
			logger.Info("[embedding] Using %s (model %s, %d dims)", endpoint, cfg.Model, client.Dimension())
			return client, nil
		}
		return nil, &ModelLoadError{Model: cfg.Model, Err: errors.Join(errs...)}

	default:
		return nil, &ModelLoadError{Model: cfg.Model, Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
}
