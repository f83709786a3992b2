package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = 24 * time.Hour

// CachedTextEmbedder memoises another embedder's vectors in Redis keyed by a content hash.
// Cache failures never fail the call.
type CachedTextEmbedder struct {
	next   TextEmbedder
	cache  redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedTextEmbedder wraps next with a Redis cache. A nil cache disables caching.
func NewCachedTextEmbedder(next TextEmbedder, cache redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *CachedTextEmbedder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedTextEmbedder{
		next:   next,
		cache:  cache,
		prefix: "qbank:embedding:" + NameOf(next, "text") + ":",
		ttl:    ttl,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

// Name reports the wrapped provider's name.
func (c *CachedTextEmbedder) Name() string { return NameOf(c.next, "text") }

// EmbedText returns the cached vector or computes and stores it.
func (c *CachedTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c.cache == nil {
		return c.next.EmbedText(ctx, text)
	}

	key := c.key(text)
	if cached, err := c.cache.Get(ctx, key).Bytes(); err == nil {
		var vector []float32
		if err := json.Unmarshal(cached, &vector); err == nil && len(vector) > 0 {
			cacheLookups.WithLabelValues("hit").Inc()
			return vector, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Msg("failed to read embedding cache")
	}
	cacheLookups.WithLabelValues("miss").Inc()

	vector, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(vector); err == nil {
		if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to write embedding cache")
		}
	}
	return vector, nil
}

func (c *CachedTextEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}
