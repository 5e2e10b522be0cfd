// Package cluster groups deduplicated items into topics by embedding
// similarity.
//
// The pipeline is: embed item texts, reduce dimensionality with a seeded
// Gaussian random projection, then run density-based clustering over cosine
// distance. Every stochastic sub-step is seeded from the explicit random
// state, never from wall-clock or global entropy, so the partition is
// bit-for-bit reproducible for a fixed item set and seed.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/internal/core/embeddings"
)

// ErrMalformedVectors is returned when the embedding capability produces
// vectors of inconsistent length.
var ErrMalformedVectors = errors.New("malformed embedding vectors")

// Params controls reduction and clustering.
type Params struct {
	// MinItemsToCluster is the volume threshold below which the clusterer
	// degrades to a single synthetic topic.
	MinItemsToCluster int
	// MinClusterSize is the density-clustering minimum cluster size.
	MinClusterSize int
	// ReduceDims is the target dimensionality of the random projection.
	ReduceDims int
	// ReduceNeighbors sizes the k-distance heuristic when Epsilon is zero.
	ReduceNeighbors int
	// RandomState seeds the random projection.
	RandomState int64
	// Epsilon is the DBSCAN neighborhood radius in cosine distance; zero
	// means derive it from the data via the k-distance heuristic.
	Epsilon float64
}

// Stats summarizes one clustering pass.
type Stats struct {
	NItems     int
	NTopics    int
	NoiseCount int
	NoiseRatio float64
	Degraded   bool
}

// Clusterer assigns run-local topic ids to items.
type Clusterer struct {
	embedder embeddings.Client
	params   Params
	logger   *zerolog.Logger
}

// New creates a Clusterer.
func New(embedder embeddings.Client, params Params, logger *zerolog.Logger) *Clusterer {
	return &Clusterer{embedder: embedder, params: params, logger: logger}
}

// Assign sets TopicID on every item. Items below the clustering threshold all
// receive the synthetic degraded topic id; otherwise density clustering
// assigns ids 0..k-1 with -1 for noise.
func (c *Clusterer) Assign(ctx context.Context, items []domain.Item) (Stats, error) {
	stats := Stats{NItems: len(items)}

	if len(items) < c.params.MinItemsToCluster {
		c.logger.Warn().
			Int("items", len(items)).
			Int("min_items_to_cluster", c.params.MinItemsToCluster).
			Msg("too few items to cluster, degrading to a single topic")

		for i := range items {
			items[i].TopicID = domain.DegradedTopicID
		}

		stats.NTopics = 1
		stats.Degraded = true

		return stats, nil
	}

	texts := make([]string, len(items))
	for i := range items {
		texts[i] = items[i].Text()
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return stats, fmt.Errorf("embed items: %w", err)
	}

	if err := validateVectors(vectors, len(items)); err != nil {
		return stats, err
	}

	reduced := reduce(vectors, c.params.ReduceDims, c.params.RandomState)

	eps := c.params.Epsilon
	if eps == 0 {
		eps = kDistanceEpsilon(reduced, c.params.ReduceNeighbors)
		c.logger.Debug().Float64("epsilon", eps).Msg("derived dbscan epsilon from k-distance")
	}

	minPts := c.params.MinClusterSize / 2
	if minPts < 2 {
		minPts = 2
	}

	labels := dbscan(reduced, eps, minPts, c.params.MinClusterSize)

	topics := make(map[int]struct{})

	for i, label := range labels {
		items[i].TopicID = label

		if label == domain.NoiseTopicID {
			stats.NoiseCount++
			continue
		}

		topics[label] = struct{}{}
	}

	stats.NTopics = len(topics)
	stats.NoiseRatio = float64(stats.NoiseCount) / float64(len(items))

	c.logger.Info().
		Int("topics", stats.NTopics).
		Int("noise", stats.NoiseCount).
		Float64("noise_ratio", stats.NoiseRatio).
		Msg("clustering complete")

	return stats, nil
}

func validateVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d items", ErrMalformedVectors, len(vectors), want)
	}

	dims := len(vectors[0])
	if dims == 0 {
		return fmt.Errorf("%w: zero-length vector", ErrMalformedVectors)
	}

	for i, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("%w: vector %d has %d dims, want %d", ErrMalformedVectors, i, len(vec), dims)
		}
	}

	return nil
}
