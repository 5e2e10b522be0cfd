package topic

import (
	"sort"

	"github.com/okonma/trendminer/internal/core/domain"
)

const (
	// RepresentativeSampleSize bounds the per-topic representative item list.
	RepresentativeSampleSize = 5

	summaryPreviewLen = 200
	topDomainsN       = 5
	domainCountsN     = 10
)

// AggregateParams configures topic aggregation.
type AggregateParams struct {
	RunID          string
	BucketInterval string
	// Absorbed maps kept item ids to the duplicate count removed during
	// normalization; it feeds each topic's duplicate_ratio.
	Absorbed map[string]int
}

// Aggregate builds one Topic record per cluster group. The output is ordered
// by topic id ascending so serialization is deterministic.
func Aggregate(groups map[int][]domain.Item, keywords map[int][]string, signatures map[int]string, params AggregateParams) []domain.Topic {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	topics := make([]domain.Topic, 0, len(ids))
	for _, id := range ids {
		topics = append(topics, buildTopic(id, groups[id], keywords[id], signatures[id], params))
	}

	return topics
}

func buildTopic(id int, items []domain.Item, keywords []string, signature string, params AggregateParams) domain.Topic {
	volume := len(items)

	domainCounts := make(map[string]int)

	var weightSum float64

	absorbed := 0

	var firstSeen, lastSeen *domain.Item

	for i := range items {
		item := &items[i]

		domainCounts[item.PublisherDomain]++
		weightSum += item.SourceWeight
		absorbed += params.Absorbed[item.ItemID]

		if item.PublishedAt == nil {
			continue
		}

		if firstSeen == nil || item.PublishedAt.Before(*firstSeen.PublishedAt) {
			firstSeen = item
		}

		if lastSeen == nil || item.PublishedAt.After(*lastSeen.PublishedAt) {
			lastSeen = item
		}
	}

	duplicateRatio := 0.0
	if absorbed > 0 {
		duplicateRatio = float64(absorbed) / float64(volume+absorbed)
	}

	topDomains := rankDomains(domainCounts)

	topic := domain.Topic{
		RunID:               params.RunID,
		TopicID:             id,
		TopicSignature:      signature,
		TopKeywords:         keywords,
		TopicVolume:         volume,
		UniqueDomains:       len(domainCounts),
		AvgSourceWeight:     weightSum / float64(volume),
		DuplicateRatio:      duplicateRatio,
		CountsByBucket:      Buckets(items, params.BucketInterval),
		RepresentativeItems: selectRepresentatives(items),
		Payload: map[string]any{
			"top_domains":   topDomains[:min(topDomainsN, len(topDomains))],
			"domain_counts": topCounts(domainCounts, topDomains),
		},
	}

	if firstSeen != nil {
		topic.FirstSeenAt = firstSeen.PublishedAt
		topic.LastSeenAt = lastSeen.PublishedAt
	}

	return topic
}

// rankDomains orders domains by count descending, name ascending on ties.
func rankDomains(counts map[string]int) []string {
	domains := make([]string, 0, len(counts))
	for d := range counts {
		domains = append(domains, d)
	}

	sort.Slice(domains, func(i, j int) bool {
		if counts[domains[i]] != counts[domains[j]] {
			return counts[domains[i]] > counts[domains[j]]
		}

		return domains[i] < domains[j]
	})

	return domains
}

func topCounts(counts map[string]int, ranked []string) map[string]int {
	out := make(map[string]int)

	for i, d := range ranked {
		if i == domainCountsN {
			break
		}

		out[d] = counts[d]
	}

	return out
}

// selectRepresentatives picks the bounded sample: highest source weight
// first, earliest publication time as tie-break, items without a publication
// time last, canonical URL as the final deterministic tie-break.
func selectRepresentatives(items []domain.Item) []domain.RepresentativeItem {
	ordered := make([]domain.Item, len(items))
	copy(ordered, items)

	sort.Slice(ordered, func(i, j int) bool {
		a, b := &ordered[i], &ordered[j]

		if a.SourceWeight != b.SourceWeight {
			return a.SourceWeight > b.SourceWeight
		}

		switch {
		case a.PublishedAt == nil && b.PublishedAt == nil:
		case a.PublishedAt == nil:
			return false
		case b.PublishedAt == nil:
			return true
		case !a.PublishedAt.Equal(*b.PublishedAt):
			return a.PublishedAt.Before(*b.PublishedAt)
		}

		return a.CanonicalURL < b.CanonicalURL
	})

	n := RepresentativeSampleSize
	if n > len(ordered) {
		n = len(ordered)
	}

	reps := make([]domain.RepresentativeItem, 0, n)

	for _, item := range ordered[:n] {
		summary := item.Summary
		if len(summary) > summaryPreviewLen {
			summary = summary[:summaryPreviewLen]
		}

		reps = append(reps, domain.RepresentativeItem{
			URL:         item.CanonicalURL,
			Title:       item.Title,
			Domain:      item.PublisherDomain,
			PublishedAt: item.PublishedAt,
			Summary:     summary,
		})
	}

	return reps
}
