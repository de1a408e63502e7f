package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/damione1/paginated-grid/internal/models"
)

// SnapshotPublisher fans call snapshots out to observers outside the process.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot *models.CallSnapshot) error
	Close() error
}

// SnapshotChannel is the pub/sub channel a call's snapshots are sent to.
func SnapshotChannel(callID string) string {
	return "grid:" + callID + ":subscriptions"
}

// NoopPublisher discards snapshots.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *models.CallSnapshot) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// RedisSnapshotPublisher publishes JSON snapshots with go-redis.
type RedisSnapshotPublisher struct {
	client *redis.Client
}

// NewRedisSnapshotPublisher connects to url and verifies the connection.
func NewRedisSnapshotPublisher(url string) (*RedisSnapshotPublisher, error) {
	if url == "" {
		return nil, errors.New("redis: url is empty")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisSnapshotPublisher{client: c}, nil
}

var _ SnapshotPublisher = (*RedisSnapshotPublisher)(nil)

func (r *RedisSnapshotPublisher) Publish(ctx context.Context, snapshot *models.CallSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return r.client.Publish(ctx, SnapshotChannel(snapshot.CallID), data).Err()
}

func (r *RedisSnapshotPublisher) Close() error {
	return r.client.Close()
}
