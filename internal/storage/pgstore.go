package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/migrations"
)

const migrationLockID = 1000

// PGStore persists runs to PostgreSQL. Each entity group (run, items,
// topics+buckets) is written in its own transaction, in dependency order,
// with upsert-on-conflict semantics on the composite primary keys.
//
// Connection and write failures are fatal to the run; there is no fallback
// to the file backend.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewPGStore connects to PostgreSQL and verifies the connection. A failure
// here surfaces immediately to the caller.
func NewPGStore(ctx context.Context, dsn string, logger *zerolog.Logger) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PGStore{pool: pool, logger: logger}, nil
}

// Migrate applies schema migrations under an advisory lock so concurrent
// invocations never race on schema changes.
func (s *PGStore) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	defer func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*s.pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// SaveRun upserts run metadata; retries update status and stats only.
func (s *PGStore) SaveRun(ctx context.Context, run *domain.Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (run_id, generated_at, lookback_days, config_hash, status, stats_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			stats_json = EXCLUDED.stats_json
	`, toUUID(run.ID), run.GeneratedAt, run.LookbackDays, run.ConfigHash, run.Status, stats)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	s.logger.Info().Str("run_id", run.ID).Str("status", run.Status).Msg("saved run")

	return nil
}

// SaveItems bulk-inserts items in one transaction. Existing (run_id,
// item_id) rows are left untouched, so retries are idempotent.
func (s *PGStore) SaveItems(ctx context.Context, runID string, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	runUUID := toUUID(runID)

	batch := &pgx.Batch{}

	for i := range items {
		item := &items[i]

		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("marshal item payload: %w", err)
		}

		batch.Queue(`
			INSERT INTO items (
				run_id, item_id, canonical_url, content_hash, published_at,
				publisher_domain, source_name, source_weight, title, summary,
				has_summary, text_len, topic_id, topic_signature, json_payload
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (run_id, item_id) DO NOTHING
		`, runUUID, item.ItemID, item.CanonicalURL, item.ContentHash, toNullableTime(item.PublishedAt),
			item.PublisherDomain, item.SourceName, item.SourceWeight, item.Title, item.Summary,
			item.HasSummary, item.TextLen, item.TopicID, item.TopicSignature, payload)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save items: %w", err)
	}

	s.logger.Info().Str("run_id", runID).Int("items", len(items)).Msg("saved items")

	return nil
}

// SaveTopics writes topics and their buckets in one transaction, topics
// first so the composite foreign key on topic_buckets is satisfiable.
func (s *PGStore) SaveTopics(ctx context.Context, runID string, topics []domain.Topic) error {
	if len(topics) == 0 {
		return nil
	}

	runUUID := toUUID(runID)

	batch := &pgx.Batch{}

	for i := range topics {
		if err := queueTopic(batch, runUUID, &topics[i]); err != nil {
			return err
		}
	}

	for i := range topics {
		t := &topics[i]

		for _, bucket := range t.CountsByBucket {
			batch.Queue(`
				INSERT INTO topic_buckets (run_id, topic_signature, bucket_start, count)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (run_id, topic_signature, bucket_start) DO UPDATE SET
					count = EXCLUDED.count
			`, runUUID, t.TopicSignature, bucket.BucketStart, bucket.Count)
		}
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save topics: %w", err)
	}

	s.logger.Info().Str("run_id", runID).Int("topics", len(topics)).Msg("saved topics")

	return nil
}

func queueTopic(batch *pgx.Batch, runUUID pgtype.UUID, t *domain.Topic) error {
	keywords, err := json.Marshal(t.TopKeywords)
	if err != nil {
		return fmt.Errorf("marshal topic keywords: %w", err)
	}

	reps, err := json.Marshal(t.RepresentativeItems)
	if err != nil {
		return fmt.Errorf("marshal representative items: %w", err)
	}

	breakdown, err := json.Marshal(t.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("marshal score breakdown: %w", err)
	}

	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("marshal topic payload: %w", err)
	}

	batch.Queue(`
		INSERT INTO topics (
			run_id, topic_signature, topic_id, topic_volume, unique_domains,
			avg_source_weight, duplicate_ratio, first_seen_at, last_seen_at,
			narrative_signal_score, top_keywords, representative_items,
			scoring_breakdown, json_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, topic_signature) DO UPDATE SET
			topic_volume = EXCLUDED.topic_volume,
			last_seen_at = EXCLUDED.last_seen_at,
			narrative_signal_score = EXCLUDED.narrative_signal_score,
			scoring_breakdown = EXCLUDED.scoring_breakdown
	`, runUUID, t.TopicSignature, t.TopicID, t.TopicVolume, t.UniqueDomains,
		t.AvgSourceWeight, t.DuplicateRatio, toNullableTime(t.FirstSeenAt), toNullableTime(t.LastSeenAt),
		t.NarrativeSignalScore, keywords, reps, breakdown, payload)

	return nil
}

// sendBatch executes all queued statements inside one transaction.
func (s *PGStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	results := tx.SendBatch(ctx, batch)

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()

			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func toUUID(id string) pgtype.UUID {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}

	return pgtype.UUID{Bytes: u, Valid: true}
}

func toNullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}

	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}
