// Package cache holds short-lived Redis snapshots of per-salon queue
// status for the polling hot path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salonq/internal/models"

	"github.com/redis/go-redis/v9"
)

type QueueStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewQueueStatusCache wraps client; a nil client disables caching and
// every lookup misses.
func NewQueueStatusCache(client *redis.Client, ttl time.Duration) *QueueStatusCache {
	return &QueueStatusCache{client: client, ttl: ttl}
}

func (c *QueueStatusCache) Get(ctx context.Context, salonID int64) (models.QueueStatus, bool, error) {
	if c == nil || c.client == nil {
		return models.QueueStatus{}, false, nil
	}
	val, err := c.client.Get(ctx, statusKey(salonID)).Result()
	if err == redis.Nil {
		return models.QueueStatus{}, false, nil
	}
	if err != nil {
		return models.QueueStatus{}, false, fmt.Errorf("get queue status from redis: %w", err)
	}

	var status models.QueueStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return models.QueueStatus{}, false, fmt.Errorf("unmarshal queue status: %w", err)
	}
	return status, true, nil
}

func (c *QueueStatusCache) Set(ctx context.Context, salonID int64, status models.QueueStatus) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal queue status: %w", err)
	}
	if err := c.client.Set(ctx, statusKey(salonID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set queue status in redis: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot after any queue mutation so the
// next poll reads fresh state.
func (c *QueueStatusCache) Invalidate(ctx context.Context, salonID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, statusKey(salonID)).Err(); err != nil {
		return fmt.Errorf("delete queue status from redis: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func statusKey(salonID int64) string {
	return fmt.Sprintf("queue_status:%d", salonID)
}
