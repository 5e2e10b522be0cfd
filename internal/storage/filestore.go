package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/okonma/trendminer/internal/core/domain"
)

// File names within a run directory.
const (
	RunFile    = "run.json"
	ItemsFile  = "items.jsonl"
	TopicsFile = "topics.json"

	dirPerm = 0o755
)

// FileStore persists runs as JSON files under a run-scoped directory:
// <base>/<run_id>/{run.json, items.jsonl, topics.json}. Writes replace any
// previous content for the run id, so retries are idempotent.
type FileStore struct {
	baseDir string
	logger  *zerolog.Logger
}

// NewFileStore creates a file backend rooted at baseDir.
func NewFileStore(baseDir string, logger *zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &FileStore{baseDir: baseDir, logger: logger}, nil
}

// RunDir returns the directory holding a run's output files.
func (s *FileStore) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// SaveRun writes run metadata as run.json.
func (s *FileStore) SaveRun(_ context.Context, run *domain.Run) error {
	if err := os.MkdirAll(s.RunDir(run.ID), dirPerm); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	path := filepath.Join(s.RunDir(run.ID), RunFile)

	if err := writeJSON(path, run); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Msg("wrote run metadata")

	return nil
}

// SaveItems writes items as newline-delimited JSON.
func (s *FileStore) SaveItems(_ context.Context, runID string, items []domain.Item) error {
	if err := os.MkdirAll(s.RunDir(runID), dirPerm); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	path := filepath.Join(s.RunDir(runID), ItemsFile)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create items file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)

	for i := range items {
		if err := enc.Encode(&items[i]); err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close items file: %w", err)
	}

	s.logger.Info().Str("path", path).Int("items", len(items)).Msg("wrote items")

	return nil
}

// SaveTopics writes the topic array (buckets inline) as topics.json.
func (s *FileStore) SaveTopics(_ context.Context, runID string, topics []domain.Topic) error {
	if err := os.MkdirAll(s.RunDir(runID), dirPerm); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	path := filepath.Join(s.RunDir(runID), TopicsFile)

	if err := writeJSON(path, topics); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Int("topics", len(topics)).Msg("wrote topics")

	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() {}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	return f.Close()
}
