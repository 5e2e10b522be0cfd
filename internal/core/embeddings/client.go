// Package embeddings provides the text embedding capability for clustering.
//
// Two providers are supported:
//   - OpenAI (text-embedding-3-small / text-embedding-3-large)
//   - a deterministic offline mock, selected by the reserved model id "mock"
//
// The mock provider is hash-seeded and fully deterministic, which keeps the
// whole pipeline reproducible without network access.
package embeddings

import (
	"context"

	"github.com/rs/zerolog"
)

// ModelMock is the reserved model identifier for the offline provider.
const ModelMock = "mock"

// DefaultDimensions is the output vector size when unconfigured.
const DefaultDimensions = 384

// Client generates fixed-length embedding vectors for item texts.
type Client interface {
	// Embed maps each text to a vector. The result has one vector per input
	// text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length produced by this client.
	Dimensions() int
}

// Config holds provider selection and credentials.
type Config struct {
	Model      string
	Dimensions int
	APIKey     string
	RateLimit  int
}

// NewClient selects a provider for the configured model. Without an API key
// the deterministic mock is used regardless of model id.
func NewClient(cfg Config, logger *zerolog.Logger) Client {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.Model == ModelMock || cfg.APIKey == "" {
		if cfg.Model != ModelMock {
			logger.Warn().Str("model", cfg.Model).Msg("no embedding API key, using deterministic mock provider")
		}

		return NewMockClient(cfg.Dimensions)
	}

	return NewOpenAIClient(cfg)
}
