package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// LCG constants for deterministic pseudo-random vector generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	seedShift  = 33
	floatScale = 0x40000000
)

// MockClient implements Client with deterministic hash-seeded vectors.
// Identical texts always produce identical vectors, so pipeline runs over the
// same item set reproduce bit-for-bit.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a deterministic offline embedding client.
func NewMockClient(dims int) *MockClient {
	if dims == 0 {
		dims = DefaultDimensions
	}

	return &MockClient{dimensions: dims}
}

// Dimensions returns the output dimensions.
func (c *MockClient) Dimensions() int {
	return c.dimensions
}

// Embed generates one deterministic unit vector per text.
func (c *MockClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = c.embedOne(text)
	}

	return vectors, nil
}

func (c *MockClient) embedOne(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, c.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	return normalizeVector(vec)
}

// normalizeVector scales a vector to unit length.
func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}

	return vec
}
