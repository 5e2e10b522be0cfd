// Package storage persists pipeline runs to a file-based or PostgreSQL
// backend.
//
// Both backends expose identical behavior through Store: a run and its
// items, topics, and topic buckets are written as one logical unit, in
// dependency order, idempotently under retry. The Postgres backend is
// fail-fast: a connection or write failure never falls back to files.
package storage

import (
	"context"

	"github.com/okonma/trendminer/internal/core/domain"
)

// Store is the persistence capability for one pipeline run.
//
// Call order follows entity dependencies: SaveRun, then SaveItems, then
// SaveTopics (which also writes each topic's buckets). Re-writing the same
// run id must not produce duplicate rows.
type Store interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	SaveItems(ctx context.Context, runID string, items []domain.Item) error
	SaveTopics(ctx context.Context, runID string, topics []domain.Topic) error
	Close()
}
