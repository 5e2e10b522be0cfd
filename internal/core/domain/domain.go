package domain

import "time"

// Run status constants.
const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// NoiseTopicID is the reserved cluster label for items the clusterer could
// not assign to any topic.
const NoiseTopicID = -1

// DegradedTopicID is the synthetic label assigned to every item when the run
// falls below the clustering threshold.
const DegradedTopicID = 0

// Run represents one execution of the mining pipeline.
type Run struct {
	ID           string    `json:"run_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	LookbackDays int       `json:"lookback_days"`
	ConfigHash   string    `json:"config_hash"`
	Status       string    `json:"status"`
	Stats        RunStats  `json:"stats"`
}

// RunStats holds the free-form statistics payload finalized at pipeline end.
type RunStats struct {
	FetchedCount        int     `json:"fetched_count"`
	DedupedCount        int     `json:"deduped_count"`
	DuplicateCount      int     `json:"duplicate_count"`
	TopicCount          int     `json:"topic_count"`
	NoiseCount          int     `json:"noise_count"`
	NoiseRatio          float64 `json:"noise_ratio"`
	MissingSummaryRatio float64 `json:"missing_summary_ratio"`
	Degraded            bool    `json:"degraded"`
	Error               string  `json:"error,omitempty"`
}

// Item represents one deduplicated feed entry. Identity is (RunID, ItemID).
type Item struct {
	ItemID          string         `json:"item_id"`
	RunID           string         `json:"run_id"`
	CanonicalURL    string         `json:"canonical_url"`
	PublisherDomain string         `json:"publisher_domain"`
	PublishedAt     *time.Time     `json:"published_at"`
	FetchedAt       time.Time      `json:"fetched_at"`
	SourceName      string         `json:"source_name"`
	SourceWeight    float64        `json:"source_weight"`
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	HasSummary      bool           `json:"has_summary"`
	TextLen         int            `json:"text_len"`
	ContentHash     string         `json:"content_hash"`
	TopicID         int            `json:"topic_id"`
	TopicSignature  string         `json:"topic_signature"`
	Payload         map[string]any `json:"json_payload,omitempty"`
}

// Text returns the clustering input text for the item.
func (i *Item) Text() string {
	if i.Summary == "" {
		return i.Title
	}

	return i.Title + " " + i.Summary
}

// TopicBucket is one UTC time bucket's item count for one topic.
type TopicBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
}

// RepresentativeItem is one entry in a topic's bounded representative sample.
type RepresentativeItem struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Domain      string     `json:"domain"`
	PublishedAt *time.Time `json:"published_at"`
	Summary     string     `json:"summary"`
}

// ScoreBreakdown records the per-component inputs to the narrative signal
// score, retained for auditability.
type ScoreBreakdown struct {
	VolumeScore    float64 `json:"volume_score"`
	VelocityScore  float64 `json:"velocity_score"`
	SourceScore    float64 `json:"source_score"`
	WatchlistBonus float64 `json:"watchlist_bonus"`
}

// Topic represents one cluster within a run. Identity is (RunID, TopicSignature).
type Topic struct {
	RunID                string               `json:"run_id"`
	TopicID              int                  `json:"topic_id"`
	TopicSignature       string               `json:"topic_signature"`
	TopKeywords          []string             `json:"top_keywords"`
	TopicVolume          int                  `json:"topic_volume"`
	UniqueDomains        int                  `json:"unique_domains"`
	AvgSourceWeight      float64              `json:"avg_source_weight"`
	DuplicateRatio       float64              `json:"duplicate_ratio"`
	CountsByBucket       []TopicBucket        `json:"counts_by_bucket"`
	FirstSeenAt          *time.Time           `json:"first_seen_at"`
	LastSeenAt           *time.Time           `json:"last_seen_at"`
	RepresentativeItems  []RepresentativeItem `json:"representative_items"`
	NarrativeSignalScore float64              `json:"narrative_signal_score"`
	ScoreBreakdown       ScoreBreakdown       `json:"score_breakdown"`
	Payload              map[string]any       `json:"json_payload,omitempty"`
}
