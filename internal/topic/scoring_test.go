package topic

import (
	"math"
	"testing"
	"time"

	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
)

var defaultWeights = config.ScoreWeights{Volume: 0.25, Velocity: 0.35, Source: 0.30, Watchlist: 0.10}

func scoredTopic(sig string, volume, domains int, avgWeight float64, lastSeen *time.Time) domain.Topic {
	return domain.Topic{
		TopicSignature:  sig,
		TopicVolume:     volume,
		UniqueDomains:   domains,
		AvgSourceWeight: avgWeight,
		LastSeenAt:      lastSeen,
	}
}

func TestScoreBounds(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		topic domain.Topic
	}{
		{name: "zero topic", topic: scoredTopic("s", 0, 0, 0, nil)},
		{name: "small topic", topic: scoredTopic("s", 2, 1, 0.5, at(25, 11))},
		{name: "huge fresh topic", topic: scoredTopic("s", 100000, 500, 1.0, &anchor)},
		{name: "stale topic", topic: scoredTopic("s", 50, 10, 1.0, at(1, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics := []domain.Topic{tt.topic}

			Score(topics, defaultWeights, config.WatchlistConfig{}, anchor)

			score := topics[0].NarrativeSignalScore
			if score < 0 || score > 100 {
				t.Errorf("NarrativeSignalScore = %v, want within [0, 100]", score)
			}
		})
	}
}

func TestScoreMonotonicInVolume(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	topics := []domain.Topic{
		scoredTopic("small", 3, 2, 1.0, at(25, 10)),
		scoredTopic("large", 60, 2, 1.0, at(25, 10)),
	}

	Score(topics, defaultWeights, config.WatchlistConfig{}, anchor)

	if topics[1].NarrativeSignalScore <= topics[0].NarrativeSignalScore {
		t.Errorf("larger topic scored %v <= smaller topic %v",
			topics[1].NarrativeSignalScore, topics[0].NarrativeSignalScore)
	}
}

func TestScoreVelocityAnchored(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	fresh := scoredTopic("fresh", 10, 2, 1.0, &anchor)
	stale := scoredTopic("stale", 10, 2, 1.0, at(20, 12))

	topics := []domain.Topic{fresh, stale}

	Score(topics, defaultWeights, config.WatchlistConfig{}, anchor)

	if topics[0].ScoreBreakdown.VelocityScore != 100 {
		t.Errorf("fresh velocity = %v, want 100", topics[0].ScoreBreakdown.VelocityScore)
	}

	if topics[1].ScoreBreakdown.VelocityScore >= topics[0].ScoreBreakdown.VelocityScore {
		t.Errorf("stale velocity %v >= fresh velocity %v",
			topics[1].ScoreBreakdown.VelocityScore, topics[0].ScoreBreakdown.VelocityScore)
	}
}

func TestScoreDeterministic(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	build := func() []domain.Topic {
		return []domain.Topic{
			scoredTopic("a", 12, 4, 0.9, at(25, 9)),
			scoredTopic("b", 7, 2, 1.0, at(24, 18)),
		}
	}

	first := build()
	Score(first, defaultWeights, config.WatchlistConfig{}, anchor)

	for i := 0; i < 5; i++ {
		again := build()
		Score(again, defaultWeights, config.WatchlistConfig{}, anchor)

		for j := range again {
			if again[j].NarrativeSignalScore != first[j].NarrativeSignalScore {
				t.Fatalf("run %d topic %d score = %v, want %v",
					i, j, again[j].NarrativeSignalScore, first[j].NarrativeSignalScore)
			}

			if again[j].ScoreBreakdown != first[j].ScoreBreakdown {
				t.Fatalf("run %d topic %d breakdown = %+v, want %+v",
					i, j, again[j].ScoreBreakdown, first[j].ScoreBreakdown)
			}
		}
	}
}

func TestScoreWatchlistBonus(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	watchlist := config.WatchlistConfig{Keywords: []string{"Nvidia"}, Tickers: []string{"NVDA"}}

	tests := []struct {
		name  string
		topic domain.Topic
		want  float64
	}{
		{
			name: "keyword hit",
			topic: domain.Topic{
				TopicSignature: "a",
				TopicVolume:    5,
				TopKeywords:    []string{"nvidia", "earnings"},
			},
			want: 80,
		},
		{
			name: "ticker hit in representative title",
			topic: domain.Topic{
				TopicSignature: "b",
				TopicVolume:    5,
				RepresentativeItems: []domain.RepresentativeItem{
					{Title: "NVDA surges after earnings beat"},
				},
			},
			want: 80,
		},
		{
			name: "no hit",
			topic: domain.Topic{
				TopicSignature: "c",
				TopicVolume:    5,
				TopKeywords:    []string{"oil", "opec"},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics := []domain.Topic{tt.topic}

			Score(topics, defaultWeights, watchlist, anchor)

			if got := topics[0].ScoreBreakdown.WatchlistBonus; got != tt.want {
				t.Errorf("WatchlistBonus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreRounding(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	topics := []domain.Topic{scoredTopic("a", 7, 3, 0.77, at(25, 3))}

	Score(topics, defaultWeights, config.WatchlistConfig{}, anchor)

	score := topics[0].NarrativeSignalScore
	if math.Abs(score*100-math.Round(score*100)) > 1e-9 {
		t.Errorf("score %v not rounded to two decimals", score)
	}
}

func TestSortByScore(t *testing.T) {
	topics := []domain.Topic{
		{TopicSignature: "b", NarrativeSignalScore: 50},
		{TopicSignature: "a", NarrativeSignalScore: 50},
		{TopicSignature: "c", NarrativeSignalScore: 80},
		{TopicSignature: "d", NarrativeSignalScore: 20},
	}

	sorted := SortByScore(topics, 3)

	wantSigs := []string{"c", "a", "b"}
	for i, tp := range sorted {
		if tp.TopicSignature != wantSigs[i] {
			t.Errorf("sorted[%d] = %q, want %q", i, tp.TopicSignature, wantSigs[i])
		}
	}
}

func TestSortByScoreKeepAll(t *testing.T) {
	topics := []domain.Topic{
		{TopicSignature: "a", NarrativeSignalScore: 10},
		{TopicSignature: "b", NarrativeSignalScore: 20},
	}

	if got := SortByScore(topics, 0); len(got) != 2 {
		t.Errorf("SortByScore(k=0) kept %d topics, want all 2", len(got))
	}

	if got := SortByScore(topics, 10); len(got) != 2 {
		t.Errorf("SortByScore(k=10) kept %d topics, want all 2", len(got))
	}
}

func TestLatestPublication(t *testing.T) {
	items := []domain.Item{
		{PublishedAt: at(20, 9)},
		{PublishedAt: at(22, 15)},
		{PublishedAt: nil},
		{PublishedAt: at(21, 3)},
	}

	if got := LatestPublication(items); !got.Equal(*at(22, 15)) {
		t.Errorf("LatestPublication() = %v, want %v", got, at(22, 15))
	}

	if got := LatestPublication(nil); !got.IsZero() {
		t.Errorf("LatestPublication(nil) = %v, want zero", got)
	}
}

func TestVelocityScoreDecay(t *testing.T) {
	anchor := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	dayOld := anchor.Add(-24 * time.Hour)

	got := velocityScore(&dayOld, anchor)
	want := 100 * math.Exp(-1)

	if math.Abs(got-want) > 1e-9 {
		t.Errorf("velocityScore(24h) = %v, want %v", got, want)
	}

	if velocityScore(nil, anchor) != 0 {
		t.Error("velocityScore(nil) should be 0")
	}

	future := anchor.Add(time.Hour)
	if velocityScore(&future, anchor) != 100 {
		t.Error("velocityScore should clamp future publication to 100")
	}
}
