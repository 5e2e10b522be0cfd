// Package dedup removes duplicate feed items before clustering.
//
// Two items are duplicates when their canonical URLs match or their content
// hashes match. The first-seen item wins: earliest publication time first,
// feed encounter order as tie-break, items without a publication time last.
// Deduplication is a pure function of its input; the only trace a duplicate
// leaves is the absorbed count on its winner, which later feeds the topic
// duplicate_ratio.
package dedup

import (
	"sort"

	"github.com/okonma/trendminer/internal/core/domain"
)

// Stats summarizes one deduplication pass.
type Stats struct {
	OriginalCount    int
	DuplicatesByURL  int
	DuplicatesByHash int
	FinalCount       int
}

// Result carries the kept items plus per-winner absorbed duplicate counts,
// keyed by item id.
type Result struct {
	Items    []domain.Item
	Absorbed map[string]int
	Stats    Stats
}

// Deduplicate collapses URL and content-hash duplicates out of items.
// The returned items are ordered first-seen first.
func Deduplicate(items []domain.Item) Result {
	ordered := firstSeenOrder(items)

	result := Result{
		Absorbed: make(map[string]int),
		Stats:    Stats{OriginalCount: len(items)},
	}

	// Phase 1: canonical URL.
	byURL := make(map[string]*domain.Item)
	urlKept := make([]domain.Item, 0, len(ordered))

	for _, item := range ordered {
		if winner, seen := byURL[item.CanonicalURL]; seen {
			result.Absorbed[winner.ItemID]++
			result.Stats.DuplicatesByURL++

			continue
		}

		urlKept = append(urlKept, item)
		byURL[item.CanonicalURL] = &urlKept[len(urlKept)-1]
	}

	// Phase 2: content hash. A hash winner inherits the absorbed counts of
	// the URL-phase winners it collapses.
	byHash := make(map[string]*domain.Item)
	kept := make([]domain.Item, 0, len(urlKept))

	for _, item := range urlKept {
		if winner, seen := byHash[item.ContentHash]; seen {
			result.Absorbed[winner.ItemID] += result.Absorbed[item.ItemID] + 1
			delete(result.Absorbed, item.ItemID)
			result.Stats.DuplicatesByHash++

			continue
		}

		kept = append(kept, item)
		byHash[item.ContentHash] = &kept[len(kept)-1]
	}

	result.Items = kept
	result.Stats.FinalCount = len(kept)

	return result
}

// firstSeenOrder sorts items by publication time ascending, missing times
// last, preserving feed encounter order among equals.
func firstSeenOrder(items []domain.Item) []domain.Item {
	ordered := make([]domain.Item, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].PublishedAt, ordered[j].PublishedAt

		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	return ordered
}
