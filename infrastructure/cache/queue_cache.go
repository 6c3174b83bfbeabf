package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kreatr-scheduler/domain/model"
)

// IQueueCache caches the per-workspace queue-status aggregate so the dashboard
// poll does not hit the content store on every request.
type IQueueCache interface {
	GetQueueStatus(ctx context.Context, workspaceID int64) (*model.QueueStatus, error)
	SetQueueStatus(ctx context.Context, workspaceID int64, status *model.QueueStatus, ttl time.Duration) error
	InvalidateQueueStatus(ctx context.Context, workspaceID int64) error
}

type QueueCache struct {
	client *redis.Client
}

func NewQueueCache(client *redis.Client) IQueueCache {
	return &QueueCache{client: client}
}

func queueStatusKey(workspaceID int64) string {
	return fmt.Sprintf("scheduler:queue-status:%d", workspaceID)
}

func (c *QueueCache) GetQueueStatus(ctx context.Context, workspaceID int64) (*model.QueueStatus, error) {
	if c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, queueStatusKey(workspaceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var qs model.QueueStatus
	if err := json.Unmarshal([]byte(raw), &qs); err != nil {
		return nil, err
	}
	return &qs, nil
}

func (c *QueueCache) SetQueueStatus(ctx context.Context, workspaceID int64, status *model.QueueStatus, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, queueStatusKey(workspaceID), raw, ttl).Err()
}

func (c *QueueCache) InvalidateQueueStatus(ctx context.Context, workspaceID int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, queueStatusKey(workspaceID)).Err()
}
