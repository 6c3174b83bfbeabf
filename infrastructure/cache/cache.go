package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"kreatr-scheduler/infrastructure/logger"
)

// NewCache connects a Redis client. A nil client is a valid degraded mode;
// callers treat the cache as optional.
func NewCache(ctx context.Context, address, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
		return nil, err
	}
	return rdb, nil
}
