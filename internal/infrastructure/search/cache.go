package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

const defaultCachePrefix = "newsanalyst:search:"

// CacheStore is the subset of the Redis client used by the cache.
// It is satisfied by *redis.Client.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cached memoizes search results in Redis. Cache failures never fail a query.
type Cached struct {
	next   ports.SearchClient
	store  CacheStore
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ ports.SearchClient = (*Cached)(nil)

// NewCached wraps next with a Redis-backed cache.
func NewCached(next ports.SearchClient, store CacheStore, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{next: next, store: store, ttl: ttl, prefix: defaultCachePrefix, logger: logger}
}

// Query serves from the cache when possible and stores fresh results.
func (c *Cached) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	key := c.key(text, maxResults)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var hits []domain.SearchHit
		if jsonErr := json.Unmarshal(raw, &hits); jsonErr == nil {
			c.logger.Debug("search cache hit", "query", text)
			return hits, nil
		}
		c.logger.Warn("discard corrupt cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("search cache read failed", "error", err)
	}

	hits, err := c.next.Query(ctx, text, maxResults)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(hits)
	if err != nil {
		c.logger.Warn("encode search cache entry", "error", err)
		return hits, nil
	}
	if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", "error", err)
	}
	return hits, nil
}

func (c *Cached) key(text string, maxResults int) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, maxResults, strings.ToLower(strings.TrimSpace(text)))
}
