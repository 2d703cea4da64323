package directory

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDirectory struct {
	*Memory
	userCalls int
	catCalls  int
}

func (c *countingDirectory) LookupUser(ctx context.Context, id string) (model.UserSummary, error) {
	c.userCalls++
	return c.Memory.LookupUser(ctx, id)
}

func (c *countingDirectory) LookupCategory(ctx context.Context, id string) (model.CategorySummary, error) {
	c.catCalls++
	return c.Memory.LookupCategory(ctx, id)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *countingDirectory, *Cached) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	next := &countingDirectory{Memory: NewMemory()}
	next.PutUser(model.UserSummary{ID: "u1", Name: "Ann"})
	next.PutCategory(model.CategorySummary{ID: "c1", Name: "Concerts"})
	return mr, next, NewCached(next, rdb, time.Minute)
}

func TestCached_HitsRedisAfterFirstLookup(t *testing.T) {
	mr, next, c := setupCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := c.LookupUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", u.Name)
	}
	assert.Equal(t, 1, next.userCalls)
	assert.True(t, mr.Exists("ewm:user:u1"))
	assert.Equal(t, time.Minute, mr.TTL("ewm:user:u1"))
}

func TestCached_ExpiresWithTTL(t *testing.T) {
	mr, next, c := setupCache(t)
	ctx := context.Background()

	_, err := c.LookupCategory(ctx, "c1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.LookupCategory(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, 2, next.catCalls)
}

func TestCached_NotFoundIsNotCached(t *testing.T) {
	mr, next, c := setupCache(t)
	ctx := context.Background()

	_, err := c.LookupUser(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = c.LookupUser(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.Equal(t, 2, next.userCalls)
	assert.False(t, mr.Exists("ewm:user:ghost"))
}

func TestCached_FallsThroughWhenRedisDown(t *testing.T) {
	mr, next, c := setupCache(t)
	mr.Close()

	u, err := c.LookupUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, 1, next.userCalls)
}
