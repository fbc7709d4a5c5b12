package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *UnreadCounters) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewUnreadCounters(client, time.Minute)
}

func TestUnreadCountersRoundTrip(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()
	user := uuid.New()

	_, ok, err := c.GetUnread(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetUnread(ctx, user, 4))
	count, ok, err := c.GetUnread(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, time.Minute, mr.TTL(unreadKey(user)))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetUnread(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadCountersInvalidate(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()
	a, b, other := uuid.New(), uuid.New(), uuid.New()

	for _, id := range []uuid.UUID{a, b, other} {
		require.NoError(t, c.SetUnread(ctx, id, 1))
	}
	require.NoError(t, c.Invalidate(ctx, a, b))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists(unreadKey(a)))
	assert.False(t, mr.Exists(unreadKey(b)))
	assert.True(t, mr.Exists(unreadKey(other)))
}

func TestUnreadCountersServerDown(t *testing.T) {
	mr, c := setupMiniredis(t)
	mr.Close()

	_, _, err := c.GetUnread(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
