package topic

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
)

const (
	scoreMax          = 100.0
	watchlistHitBonus = 80.0

	volumeLogScale  = 20.0
	volumeBase      = 20.0
	velocityHalfday = 24.0
	weightScaleMax  = 60.0
	diversityScale  = 15.0
	diversityBase   = 15.0
	diversityMax    = 40.0
)

// Score computes each topic's narrative signal score as a bounded weighted
// composite of volume, recency, and source quality/diversity, plus a
// watchlist bonus. The anchor is the latest publication time in the run, not
// wall clock, so scores are a pure function of the item set and
// configuration.
func Score(topics []domain.Topic, weights config.ScoreWeights, watchlist config.WatchlistConfig, anchor time.Time) {
	terms := watchlistTerms(watchlist)

	for i := range topics {
		t := &topics[i]

		breakdown := domain.ScoreBreakdown{
			VolumeScore:    volumeScore(t.TopicVolume),
			VelocityScore:  velocityScore(t.LastSeenAt, anchor),
			SourceScore:    sourceScore(t.AvgSourceWeight, t.UniqueDomains),
			WatchlistBonus: watchlistBonus(t, terms),
		}

		score := breakdown.VolumeScore*weights.Volume +
			breakdown.VelocityScore*weights.Velocity +
			breakdown.SourceScore*weights.Source +
			breakdown.WatchlistBonus*weights.Watchlist

		t.ScoreBreakdown = breakdown
		t.NarrativeSignalScore = math.Round(clamp(score)*100) / 100
	}
}

// SortByScore orders topics by score descending with the signature as a
// deterministic tie-break, then returns the top k (or all when k <= 0).
func SortByScore(topics []domain.Topic, k int) []domain.Topic {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].NarrativeSignalScore != topics[j].NarrativeSignalScore {
			return topics[i].NarrativeSignalScore > topics[j].NarrativeSignalScore
		}

		return topics[i].TopicSignature < topics[j].TopicSignature
	})

	if k > 0 && k < len(topics) {
		return topics[:k]
	}

	return topics
}

// LatestPublication returns the run's scoring anchor: the latest publication
// time across all items, or the zero time when none have one.
func LatestPublication(items []domain.Item) time.Time {
	var latest time.Time

	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.After(latest) {
			latest = *item.PublishedAt
		}
	}

	return latest
}

// volumeScore log-scales item count: 10 items ≈ 41, 100 ≈ 60, 10000 ≈ 100.
func volumeScore(volume int) float64 {
	if volume <= 0 {
		return 0
	}

	return clamp(volumeLogScale*math.Log10(float64(volume)+1) + volumeBase)
}

// velocityScore decays with hours between the topic's latest item and the
// run anchor: 0h = 100, 24h ≈ 37, 7d ≈ 0.
func velocityScore(lastSeen *time.Time, anchor time.Time) float64 {
	if lastSeen == nil || anchor.IsZero() {
		return 0
	}

	hours := anchor.Sub(*lastSeen).Hours()
	if hours < 0 {
		hours = 0
	}

	return clamp(scoreMax * math.Exp(-hours/velocityHalfday))
}

// sourceScore combines average source weight (0..60) with publisher
// diversity (0..40, log-scaled).
func sourceScore(avgWeight float64, uniqueDomains int) float64 {
	weightScore := avgWeight * weightScaleMax

	diversity := 0.0
	if uniqueDomains > 1 {
		diversity = diversityScale*math.Log10(float64(uniqueDomains)) + diversityBase
	}

	if diversity > diversityMax {
		diversity = diversityMax
	}

	return clamp(weightScore + diversity)
}

func watchlistBonus(t *domain.Topic, terms map[string]bool) float64 {
	if len(terms) == 0 {
		return 0
	}

	for _, kw := range t.TopKeywords {
		if terms[strings.ToLower(kw)] {
			return watchlistHitBonus
		}
	}

	for _, rep := range t.RepresentativeItems {
		title := strings.ToLower(rep.Title)

		for term := range terms {
			if strings.Contains(title, term) {
				return watchlistHitBonus
			}
		}
	}

	return 0
}

func watchlistTerms(watchlist config.WatchlistConfig) map[string]bool {
	terms := make(map[string]bool, len(watchlist.Keywords)+len(watchlist.Tickers))

	for _, kw := range watchlist.Keywords {
		terms[strings.ToLower(kw)] = true
	}

	for _, ticker := range watchlist.Tickers {
		terms[strings.ToLower(ticker)] = true
	}

	return terms
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(scoreMax, score))
}
