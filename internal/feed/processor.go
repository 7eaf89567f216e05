package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bilgisen/newstrust/internal/cache"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/cespare/xxhash/v2"
)

// NewsCreator is the part of the moderation service the importer drives.
type NewsCreator interface {
	CreateNews(ctx context.Context, p models.Principal, in moderation.NewsInput) (*models.News, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Fetched    int `json:"fetched"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
	Created    int `json:"created"`
	Failed     int `json:"failed"`
}

type Processor struct {
	fetcher *Fetcher
	parser  *Parser
	cache   cache.RedisInterface
	news    NewsCreator
	ttl     time.Duration
}

// NewProcessor wires the importer. ttl is how long an imported item is
// remembered for deduplication.
func NewProcessor(fetcher *Fetcher, c cache.RedisInterface, news NewsCreator, ttl time.Duration) *Processor {
	return &Processor{
		fetcher: fetcher,
		parser:  NewParser(),
		cache:   c,
		news:    news,
		ttl:     ttl,
	}
}

// dedupKey hashes the item identity into a compact cache key.
func dedupKey(item models.FeedItem) string {
	return strconv.FormatUint(xxhash.Sum64String(item.Guid), 16)
}

// Import fetches feedURLs and submits every new, valid item as p. Items are
// created one at a time so each goes through the source cascade in order.
func (p *Processor) Import(ctx context.Context, principal models.Principal, feedURLs []string) (ImportResult, error) {
	log := logger.Ctx(ctx)
	start := time.Now()
	var res ImportResult

	log.Info().
		Strs("feed_urls", feedURLs).
		Msg("Starting feed import")

	items, fetchErr := p.fetcher.FetchMultipleFeeds(ctx, feedURLs)
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Msg("Some feeds could not be fetched")
	}
	res.Fetched = len(items)

	seen := make(map[string]bool, len(items))
	for i, raw := range items {
		if err := ctx.Err(); err != nil {
			log.Warn().
				Int("processed_items", i).
				Int("total_items", len(items)).
				Msg("Import cancelled")
			return res, err
		}

		item := p.parser.NormalizeFeedItem(raw)
		if err := p.parser.ValidateFeedItem(item); err != nil {
			log.Debug().Err(err).Str("guid", item.Guid).Msg("Skipping invalid feed item")
			res.Invalid++
			continue
		}

		key := dedupKey(item)
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true

		done, err := p.cache.IsProcessed(ctx, key)
		if err != nil {
			return res, fmt.Errorf("error checking import marker for %s: %w", item.Guid, err)
		}
		if done {
			log.Debug().Str("guid", item.Guid).Msg("Skipping already imported item")
			res.Duplicates++
			continue
		}

		n, err := p.news.CreateNews(ctx, principal, p.parser.ToNewsInput(item))
		if err != nil {
			log.Error().
				Err(err).
				Str("guid", item.Guid).
				Str("title", item.Title).
				Msg("Error creating news item")
			res.Failed++
			continue
		}
		res.Created++

		if err := p.cache.MarkProcessed(ctx, key, p.ttl); err != nil {
			log.Error().
				Err(err).
				Str("guid", item.Guid).
				Str("id", n.ID.Hex()).
				Msg("Error marking item as imported")
		}
	}

	log.Info().
		Int("fetched", res.Fetched).
		Int("created", res.Created).
		Int("duplicates", res.Duplicates).
		Int("invalid", res.Invalid).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("Finished feed import")

	return res, fetchErr
}
