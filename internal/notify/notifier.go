// Package notify publishes fire-and-forget run announcements on a
// Redis pub/sub channel for the dashboard and alerting to consume.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
)

// Publisher announces pipeline completion or failure.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification)
}

// RedisPublisher publishes notifications on one channel. Publish
// errors are logged, never propagated; a lost notification must not
// fail a completed run.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for the given channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the notification as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Error("marshal notification", "error", err.Error())
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		logger.Warn("publish notification failed",
			"channel", p.channel,
			"brand_id", n.BrandID,
			"error", err.Error())
	}
}

// NopPublisher discards notifications; used when Redis is not
// configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(ctx context.Context, n domain.Notification) {}
