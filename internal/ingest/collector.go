// Package ingest collects candidate items from RSS/Atom feeds.
//
// Only titles and summaries are used; full-text retrieval is out of scope.
// Feeds are fetched concurrently behind a shared rate limiter, and a failing
// feed is logged and skipped, never fatal. All fetching completes before the
// pipeline moves on, and the collected items keep a deterministic order
// (feed config order, then entry order) regardless of fetch scheduling.
package ingest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okonma/trendminer/internal/config"
	"github.com/okonma/trendminer/internal/core/domain"
	"github.com/okonma/trendminer/internal/normalize"
)

const (
	fetchTimeout     = 30 * time.Second
	fetchConcurrency = 4
	fetchBurst       = 2
	userAgent        = "trendminer/1.0"
)

// Params configures a collection pass.
type Params struct {
	MaxItemsPerFeed int
	LookbackDays    int
	FetchRPS        float64
}

// Collector fetches and parses the configured feeds.
type Collector struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	params     Params
	logger     *zerolog.Logger
}

// New creates a Collector.
func New(params Params, logger *zerolog.Logger) *Collector {
	if params.FetchRPS <= 0 {
		params.FetchRPS = 2
	}

	return &Collector{
		httpClient: &http.Client{Timeout: fetchTimeout},
		limiter:    rate.NewLimiter(rate.Limit(params.FetchRPS), fetchBurst),
		params:     params,
		logger:     logger,
	}
}

// Collect fetches every feed and returns the raw (not yet deduplicated)
// items for the run. Individual feed failures are logged and skipped.
func (c *Collector) Collect(ctx context.Context, feeds []config.FeedConfig, runID string) []domain.Item {
	fetchedAt := time.Now().UTC()
	lookback := fetchedAt.AddDate(0, 0, -c.params.LookbackDays)

	perFeed := make([][]domain.Item, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, feed := range feeds {
		g.Go(func() error {
			items, err := c.collectFeed(gctx, feed, runID, lookback, fetchedAt)
			if err != nil {
				c.logger.Error().Err(err).Str("feed", feed.Name).Msg("feed fetch failed, skipping")

				return nil
			}

			perFeed[i] = items

			return nil
		})
	}

	// Goroutines swallow their own errors, so this only fails on context
	// cancellation.
	_ = g.Wait()

	var all []domain.Item
	for _, items := range perFeed {
		all = append(all, items...)
	}

	c.logger.Info().Int("items", len(all)).Int("feeds", len(feeds)).Msg("feed collection complete")

	return all
}

func (c *Collector) collectFeed(ctx context.Context, feed config.FeedConfig, runID string, lookback, fetchedAt time.Time) ([]domain.Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := c.fetchFeed(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(parsed.Items))

	for _, entry := range parsed.Items {
		if len(items) == c.params.MaxItemsPerFeed {
			break
		}

		item, ok := c.buildItem(entry, feed, parsed.Title, runID, lookback, fetchedAt)
		if !ok {
			continue
		}

		items = append(items, item)
	}

	c.logger.Info().Str("feed", feed.Name).Int("items", len(items)).Msg("collected feed")

	return items, nil
}

func (c *Collector) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	return gofeed.NewParser().Parse(resp.Body)
}

func (c *Collector) buildItem(entry *gofeed.Item, feed config.FeedConfig, feedTitle, runID string, lookback, fetchedAt time.Time) (domain.Item, bool) {
	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)

	if title == "" || link == "" {
		return domain.Item{}, false
	}

	canonicalURL, err := normalize.CanonicalURL(link)
	if err != nil {
		c.logger.Warn().Err(err).Str("link", link).Msg("skipping entry with unparseable link")

		return domain.Item{}, false
	}

	publishedAt := entryPublishedAt(entry)
	if publishedAt != nil && publishedAt.Before(lookback) {
		return domain.Item{}, false
	}

	summary := strings.TrimSpace(entry.Description)
	hasSummary := summary != ""

	item := domain.Item{
		ItemID:          normalize.ItemID(canonicalURL),
		RunID:           runID,
		CanonicalURL:    canonicalURL,
		PublisherDomain: normalize.PublisherDomain(canonicalURL),
		PublishedAt:     publishedAt,
		FetchedAt:       fetchedAt,
		SourceName:      feed.Name,
		SourceWeight:    feed.Weight,
		Title:           title,
		Summary:         summary,
		HasSummary:      hasSummary,
		TextLen:         len(title) + len(summary),
		ContentHash:     normalize.ContentHash(title, summary),
		TopicID:         domain.NoiseTopicID,
		Payload: map[string]any{
			"publisher_name": inferPublisher(entry, feedTitle),
			"category":       feed.Category,
			"original_link":  link,
		},
	}

	return item, true
}

// entryPublishedAt resolves an entry's publication time in UTC, or nil when
// the feed provides none. gofeed parses common formats; dateparse covers the
// long tail of nonstandard feed timestamps.
func entryPublishedAt(entry *gofeed.Item) *time.Time {
	for _, parsed := range []*time.Time{entry.PublishedParsed, entry.UpdatedParsed} {
		if parsed != nil {
			t := parsed.UTC()

			return &t
		}
	}

	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}

		if t, err := dateparse.ParseAny(raw); err == nil {
			t = t.UTC()

			return &t
		}
	}

	return nil
}

// inferPublisher picks a display name: the entry's author, then the feed's
// own title.
func inferPublisher(entry *gofeed.Item, feedTitle string) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}

	return feedTitle
}
