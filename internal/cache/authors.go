// Package cache holds read-path caches. Nothing here is consulted when
// authorizing a mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyAuthor        = "whiteboard:author:%s"
	defaultAuthorTTL = 10 * time.Minute
)

// RedisAuthors caches public author projections in redis.
type RedisAuthors struct {
	rdb *redis.Client
	ttl time.Duration
	l   *zap.Logger
}

// NewRedisAuthors wraps rdb. A non-positive ttl uses the default.
func NewRedisAuthors(rdb *redis.Client, ttl time.Duration, l *zap.Logger) *RedisAuthors {
	if ttl <= 0 {
		ttl = defaultAuthorTTL
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &RedisAuthors{rdb: rdb, ttl: ttl, l: l}
}

// Connect parses url, pings the server and returns the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *RedisAuthors) Get(ctx context.Context, id string) (types.PublicUser, bool) {
	key := fmt.Sprintf(keyAuthor, id)
	cacheBytes, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.l.Error("failed to query cache for author", zap.String("id", id), zap.Error(err))
		}
		return types.PublicUser{}, false
	}

	var author types.PublicUser
	if err := json.Unmarshal(cacheBytes, &author); err != nil {
		c.l.Error("failed to unmarshal author", zap.String("id", id), zap.ByteString("cacheBytes", cacheBytes), zap.Error(err))
		c.rdb.Del(ctx, key)
		return types.PublicUser{}, false
	}
	return author, true
}

func (c *RedisAuthors) Set(ctx context.Context, author types.PublicUser) {
	cacheBytes, err := json.Marshal(author)
	if err != nil {
		c.l.Error("failed to marshal author", zap.String("id", author.ID), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyAuthor, author.ID), cacheBytes, c.ttl).Err(); err != nil {
		c.l.Error("failed to cache author", zap.String("id", author.ID), zap.Error(err))
	}
}

func (c *RedisAuthors) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, fmt.Sprintf(keyAuthor, id)).Err(); err != nil {
		c.l.Error("failed to invalidate author", zap.String("id", id), zap.Error(err))
	}
}
