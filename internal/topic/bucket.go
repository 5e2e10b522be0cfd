package topic

import (
	"sort"
	"time"

	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
)

// Buckets counts a topic's items per UTC time bucket, truncated to the day
// or hour. Items without a publication time are excluded; their absence is
// the only allowed discrepancy between bucket sums and topic volume. The
// result is sorted by bucket start ascending.
func Buckets(items []domain.Item, interval string) []domain.TopicBucket {
	counts := make(map[time.Time]int)

	for _, item := range items {
		if item.PublishedAt == nil {
			continue
		}

		counts[truncate(*item.PublishedAt, interval)]++
	}

	buckets := make([]domain.TopicBucket, 0, len(counts))
	for start, count := range counts {
		buckets = append(buckets, domain.TopicBucket{BucketStart: start, Count: count})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].BucketStart.Before(buckets[j].BucketStart)
	})

	return buckets
}

func truncate(t time.Time, interval string) time.Time {
	t = t.UTC()

	if interval == config.BucketHourly {
		return t.Truncate(time.Hour)
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
