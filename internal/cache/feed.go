package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// ItemsFunc fetches the current feed items from upstream.
type ItemsFunc func(ctx context.Context) ([]models.FeedItem, error)

// FeedCache memoizes the normalized upstream feed in a single Slot.
type FeedCache struct {
	slot   *Slot[[]models.FeedItem]
	fetch  ItemsFunc
	logger *slog.Logger
}

// NewFeedCache wraps fetch with a Slot of the given ttl.
func NewFeedCache(fetch ItemsFunc, ttl time.Duration, logger *slog.Logger, opts ...Option) *FeedCache {
	return &FeedCache{
		slot:   New[[]models.FeedItem](ttl, opts...),
		fetch:  fetch,
		logger: logger,
	}
}

// Items returns the cached items while fresh and refetches once stale.
// Errors come only from the wrapped fetch.
func (c *FeedCache) Items(ctx context.Context) ([]models.FeedItem, error) {
	return c.slot.Get(ctx, func(ctx context.Context) ([]models.FeedItem, error) {
		start := time.Now()
		items, err := c.fetch(ctx)
		if err != nil {
			if prev, ok := c.slot.Peek(); ok {
				c.logger.Warn("feed refresh failed, keeping previous entry",
					"fetched_at", prev.FetchedAt,
					"error", err,
				)
			}
			return nil, err
		}
		c.logger.Info("feed cache refreshed",
			"items", len(items),
			"took", time.Since(start),
			"ttl", c.slot.TTL(),
		)
		return items, nil
	})
}

// Stats reports cache hits and misses.
func (c *FeedCache) Stats() (hits, misses uint64) {
	return c.slot.Stats()
}
