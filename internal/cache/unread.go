package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const unreadKeyPrefix = "notifications:unread:"

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// UnreadCounters caches per-user unread notification counts.
type UnreadCounters struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUnreadCounters(client *redis.Client, ttl time.Duration) *UnreadCounters {
	return &UnreadCounters{client: client, ttl: ttl}
}

func unreadKey(userID uuid.UUID) string {
	return unreadKeyPrefix + userID.String()
}

func (c *UnreadCounters) GetUnread(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	count, err := c.client.Get(ctx, unreadKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (c *UnreadCounters) SetUnread(ctx context.Context, userID uuid.UUID, count int64) error {
	return c.client.Set(ctx, unreadKey(userID), count, c.ttl).Err()
}

func (c *UnreadCounters) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, unreadKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Noop disables caching; every read is a miss.
type Noop struct{}

func (Noop) GetUnread(context.Context, uuid.UUID) (int64, bool, error) { return 0, false, nil }
func (Noop) SetUnread(context.Context, uuid.UUID, int64) error         { return nil }
func (Noop) Invalidate(context.Context, ...uuid.UUID) error            { return nil }
