// Package app wires the mining pipeline together and orchestrates one run:
// collect → deduplicate → cluster → assign signatures → aggregate → score →
// persist.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/okonma/trendminer/internal/cluster"
	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/internal/core/embeddings"
	"github.com/okonma/trendminer/internal/dedup"
	"github.com/okonma/trendminer/internal/ingest"
	"github.com/okonma/trendminer/internal/storage"
	"github.com/okonma/trendminer/internal/topic"
)

// App holds the pipeline dependencies for one invocation.
type App struct {
	cfg       *config.Config
	collector *ingest.Collector
	clusterer *cluster.Clusterer
	logger    *zerolog.Logger
}

// New builds the pipeline from configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	collector := ingest.New(ingest.Params{
		MaxItemsPerFeed: cfg.MaxItemsPerFeed,
		LookbackDays:    cfg.LookbackDays,
		FetchRPS:        cfg.FetchRPS,
	}, logger)

	embedder := embeddings.NewClient(embeddings.Config{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     cfg.Env.OpenAIAPIKey,
		RateLimit:  cfg.Embedding.RateLimit,
	}, logger)

	clusterer := cluster.New(embedder, cluster.Params{
		MinItemsToCluster: cfg.MinItemsToCluster,
		MinClusterSize:    cfg.Cluster.MinClusterSize,
		ReduceDims:        cfg.Cluster.ReduceDims,
		ReduceNeighbors:   cfg.Cluster.ReduceNeighbors,
		RandomState:       cfg.Cluster.ReduceState,
		Epsilon:           cfg.Cluster.Epsilon,
	}, logger)

	return &App{cfg: cfg, collector: collector, clusterer: clusterer, logger: logger}
}

// Run executes one mining pass and persists its results. The returned Run
// always carries the final status; the error is non-nil only for fatal
// failures (storage, embedding, clustering).
func (a *App) Run(ctx context.Context) (*domain.Run, error) {
	run := &domain.Run{
		ID:           uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		LookbackDays: a.cfg.LookbackDays,
		ConfigHash:   a.cfg.Hash(),
		Status:       domain.StatusRunning,
	}

	a.logger.Info().Str("run_id", run.ID).Str("config_hash", run.ConfigHash).Msg("starting run")

	// Storage opens before any pipeline work so an unreachable backend
	// fails the run immediately, before feeds are fetched.
	store, err := a.openStore(ctx)
	if err != nil {
		run.Status = domain.StatusFailed
		run.Stats.Error = err.Error()

		return run, err
	}
	defer store.Close()

	return run, a.execute(ctx, store, run)
}

// execute runs the pipeline stages against an open store. Any failure marks
// the run failed and records that status before the error surfaces, so the
// persisted run row never reports a status the run did not reach.
func (a *App) execute(ctx context.Context, store storage.Store, run *domain.Run) error {
	items, topics, err := a.mine(ctx, run)
	if err != nil {
		a.failRun(ctx, store, run, err)

		return err
	}

	if err := persist(ctx, store, run, items, topics); err != nil {
		a.failRun(ctx, store, run, err)

		return err
	}

	if err := a.export(ctx, run, items, topics); err != nil {
		a.failRun(ctx, store, run, err)

		return err
	}

	a.logSummary(run, topics)

	return nil
}

// failRun finalizes a failed run and re-saves its record. Item and topic
// rows from the failed stage stay uncommitted; the run row's upsert updates
// status and stats only.
func (a *App) failRun(ctx context.Context, store storage.Store, run *domain.Run, cause error) {
	run.Status = domain.StatusFailed
	run.Stats.Error = cause.Error()

	if err := store.SaveRun(ctx, run); err != nil {
		a.logger.Error().Err(err).Msg("failed to record failed run")
	}
}

// mine runs the in-memory pipeline stages and finalizes run status and
// stats. It returns the items and top-scored topics to persist.
func (a *App) mine(ctx context.Context, run *domain.Run) ([]domain.Item, []domain.Topic, error) {
	raw := a.collector.Collect(ctx, a.cfg.Feeds, run.ID)
	run.Stats.FetchedCount = len(raw)

	deduped := dedup.Deduplicate(raw)
	run.Stats.DedupedCount = deduped.Stats.FinalCount
	run.Stats.DuplicateCount = deduped.Stats.DuplicatesByURL + deduped.Stats.DuplicatesByHash

	a.logger.Info().
		Int("kept", deduped.Stats.FinalCount).
		Int("duplicates", run.Stats.DuplicateCount).
		Msg("deduplication complete")

	if len(deduped.Items) == 0 {
		a.logger.Warn().Msg("no items collected")

		run.Status = domain.StatusDegraded
		run.Stats.Degraded = true

		return nil, nil, nil
	}

	clusterStats, err := a.clusterer.Assign(ctx, deduped.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering: %w", err)
	}

	items := deduped.Items
	if a.cfg.NoiseHandling == config.NoiseDrop {
		items = dropNoise(items)
	}

	groups := topic.Group(items)
	keywords := topic.ExtractKeywords(groups, a.cfg.Cluster.TopNWords)
	signatures := topic.AssignSignatures(groups, keywords)
	topic.ApplySignatures(items, signatures)

	topics := topic.Aggregate(groups, keywords, signatures, topic.AggregateParams{
		RunID:          run.ID,
		BucketInterval: a.cfg.BucketInterval,
		Absorbed:       deduped.Absorbed,
	})

	topic.Score(topics, a.cfg.ScoreWeights, a.cfg.Watchlist, topic.LatestPublication(items))

	topics = topic.SortByScore(topics, a.cfg.TopKTopics)

	run.Stats.TopicCount = clusterStats.NTopics
	run.Stats.NoiseCount = clusterStats.NoiseCount
	run.Stats.NoiseRatio = clusterStats.NoiseRatio
	run.Stats.Degraded = clusterStats.Degraded
	run.Stats.MissingSummaryRatio = missingSummaryRatio(items)

	if clusterStats.Degraded {
		run.Status = domain.StatusDegraded
	} else {
		run.Status = domain.StatusSuccess
	}

	return items, topics, nil
}

// openStore selects the backend. Postgres failures surface verbatim; there
// is no fallback to the file backend.
func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	if a.cfg.Storage.Mode == config.StoragePostgres {
		store, err := storage.NewPGStore(ctx, a.cfg.Storage.DSN, a.logger)
		if err != nil {
			return nil, err
		}

		if err := store.Migrate(ctx); err != nil {
			store.Close()

			return nil, err
		}

		return store, nil
	}

	return storage.NewFileStore(a.cfg.OutputDir, a.logger)
}

// persist writes the run's entities in dependency order.
func persist(ctx context.Context, store storage.Store, run *domain.Run, items []domain.Item, topics []domain.Topic) error {
	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}

	if err := store.SaveItems(ctx, run.ID, items); err != nil {
		return err
	}

	return store.SaveTopics(ctx, run.ID, topics)
}

// export writes the parallel file dump when postgres is primary and the
// export toggle is on.
func (a *App) export(ctx context.Context, run *domain.Run, items []domain.Item, topics []domain.Topic) error {
	if a.cfg.Storage.Mode != config.StoragePostgres || !a.cfg.Export.Enabled {
		return nil
	}

	fileStore, err := storage.NewFileStore(a.cfg.Export.OutputDir, a.logger)
	if err != nil {
		return fmt.Errorf("file export: %w", err)
	}

	if err := persist(ctx, fileStore, run, items, topics); err != nil {
		return fmt.Errorf("file export: %w", err)
	}

	return nil
}

func dropNoise(items []domain.Item) []domain.Item {
	kept := items[:0]

	for _, item := range items {
		if item.TopicID != domain.NoiseTopicID {
			kept = append(kept, item)
		}
	}

	return kept
}

func missingSummaryRatio(items []domain.Item) float64 {
	if len(items) == 0 {
		return 0
	}

	missing := 0

	for _, item := range items {
		if !item.HasSummary {
			missing++
		}
	}

	return float64(missing) / float64(len(items))
}

func (a *App) logSummary(run *domain.Run, topics []domain.Topic) {
	a.logger.Info().
		Str("run_id", run.ID).
		Str("status", run.Status).
		Int("fetched", run.Stats.FetchedCount).
		Int("deduped", run.Stats.DedupedCount).
		Int("topics", run.Stats.TopicCount).
		Float64("noise_ratio", run.Stats.NoiseRatio).
		Msg("run complete")

	for i, t := range topics {
		if i == 5 {
			break
		}

		a.logger.Info().
			Int("rank", i+1).
			Float64("score", t.NarrativeSignalScore).
			Int("volume", t.TopicVolume).
			Strs("keywords", head(t.TopKeywords, 5)).
			Msg("top topic")
	}
}

func head(s []string, n int) []string {
	if len(s) < n {
		return s
	}

	return s[:n]
}
