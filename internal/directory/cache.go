package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cached keeps looked-up summaries in Redis for ttl. Misses and Redis failures
// fall through to next; NotFound results are never cached.
type Cached struct {
	next Directory
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCached(next Directory, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cached) LookupUser(ctx context.Context, id string) (model.UserSummary, error) {
	return cachedLookup(ctx, c, "ewm:user:"+id, func() (model.UserSummary, error) {
		return c.next.LookupUser(ctx, id)
	})
}

func (c *Cached) LookupCategory(ctx context.Context, id string) (model.CategorySummary, error) {
	return cachedLookup(ctx, c, "ewm:category:"+id, func() (model.CategorySummary, error) {
		return c.next.LookupCategory(ctx, id)
	})
}

func cachedLookup[T any](ctx context.Context, c *Cached, key string, load func() (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return v, nil
		}
		log.Warn().Str("key", key).Msg("directory cache: dropping undecodable entry")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("directory cache: get failed")
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("directory cache: set failed")
		}
	}
	return v, nil
}
