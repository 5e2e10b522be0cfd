package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/okonma/trendminer/internal/core/domain"
)

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(t.TempDir(), &testLogger)
	require.NoError(t, err)

	return store
}

func testRun(id string) *domain.Run {
	return &domain.Run{
		ID:           id,
		GeneratedAt:  time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		LookbackDays: 7,
		ConfigHash:   "abcd1234abcd1234",
		Status:       domain.StatusSuccess,
		Stats:        domain.RunStats{FetchedCount: 10, DedupedCount: 8, TopicCount: 2},
	}
}

func TestFileStoreLayout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := testRun("run-1")

	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.SaveItems(ctx, run.ID, []domain.Item{{ItemID: "a", RunID: run.ID}}))
	require.NoError(t, store.SaveTopics(ctx, run.ID, []domain.Topic{{RunID: run.ID, TopicSignature: "sig"}}))

	for _, name := range []string{RunFile, ItemsFile, TopicsFile} {
		_, err := os.Stat(filepath.Join(store.RunDir(run.ID), name))
		require.NoError(t, err, "expected %s in run directory", name)
	}
}

func TestFileStoreRunRoundTrip(t *testing.T) {
	store := newTestStore(t)
	run := testRun("run-1")

	require.NoError(t, store.SaveRun(context.Background(), run))

	data, err := os.ReadFile(filepath.Join(store.RunDir(run.ID), RunFile))
	require.NoError(t, err)

	var loaded domain.Run
	require.NoError(t, json.Unmarshal(data, &loaded))

	require.Equal(t, run.ID, loaded.ID)
	require.Equal(t, run.Status, loaded.Status)
	require.Equal(t, run.Stats, loaded.Stats)
	require.True(t, run.GeneratedAt.Equal(loaded.GeneratedAt))
}

func TestFileStoreItemsJSONL(t *testing.T) {
	store := newTestStore(t)

	items := []domain.Item{
		{ItemID: "a", RunID: "run-1", Title: "first"},
		{ItemID: "b", RunID: "run-1", Title: "second"},
		{ItemID: "c", RunID: "run-1", Title: "third"},
	}

	require.NoError(t, store.SaveItems(context.Background(), "run-1", items))

	f, err := os.Open(filepath.Join(store.RunDir("run-1"), ItemsFile))
	require.NoError(t, err)
	defer f.Close()

	var loaded []domain.Item

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var item domain.Item
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &item))

		loaded = append(loaded, item)
	}

	require.NoError(t, scanner.Err())
	require.Len(t, loaded, 3)
	require.Equal(t, "a", loaded[0].ItemID)
	require.Equal(t, "c", loaded[2].ItemID)
}

func TestFileStoreTopicsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	published := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	topics := []domain.Topic{{
		RunID:                "run-1",
		TopicID:              0,
		TopicSignature:       "sig-0",
		TopKeywords:          []string{"fed", "rates"},
		TopicVolume:          12,
		UniqueDomains:        4,
		NarrativeSignalScore: 73.25,
		CountsByBucket: []domain.TopicBucket{
			{BucketStart: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), Count: 12},
		},
		LastSeenAt: &published,
	}}

	require.NoError(t, store.SaveTopics(context.Background(), "run-1", topics))

	data, err := os.ReadFile(filepath.Join(store.RunDir("run-1"), TopicsFile))
	require.NoError(t, err)

	var loaded []domain.Topic
	require.NoError(t, json.Unmarshal(data, &loaded))

	require.Len(t, loaded, 1)
	require.Equal(t, "sig-0", loaded[0].TopicSignature)
	require.Equal(t, 73.25, loaded[0].NarrativeSignalScore)
	require.Len(t, loaded[0].CountsByBucket, 1)
	require.Equal(t, 12, loaded[0].CountsByBucket[0].Count)
}

func TestFileStoreRunsIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveItems(ctx, "run-1", []domain.Item{{ItemID: "a"}}))
	require.NoError(t, store.SaveItems(ctx, "run-2", []domain.Item{{ItemID: "b"}, {ItemID: "c"}}))

	first, err := os.ReadFile(filepath.Join(store.RunDir("run-1"), ItemsFile))
	require.NoError(t, err)

	second, err := os.ReadFile(filepath.Join(store.RunDir("run-2"), ItemsFile))
	require.NoError(t, err)

	require.NotEqual(t, string(first), string(second))
	require.Contains(t, string(first), `"a"`)
	require.NotContains(t, string(first), `"b"`)
}

func TestFileStoreRewriteIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []domain.Item{{ItemID: "a"}, {ItemID: "b"}}

	require.NoError(t, store.SaveItems(ctx, "run-1", items))
	require.NoError(t, store.SaveItems(ctx, "run-1", items))

	f, err := os.Open(filepath.Join(store.RunDir("run-1"), ItemsFile))
	require.NoError(t, err)
	defer f.Close()

	lines := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}

	require.NoError(t, scanner.Err())
	require.Equal(t, 2, lines, "rewrite must replace, not append")
}

func TestFileStoreEmptyTopics(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveTopics(context.Background(), "run-1", []domain.Topic{}))

	data, err := os.ReadFile(filepath.Join(store.RunDir("run-1"), TopicsFile))
	require.NoError(t, err)

	var loaded []domain.Topic
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Empty(t, loaded)
}
