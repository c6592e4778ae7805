package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

func TestRedisPublisherDeliversNotification(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "metrics:sync")
	defer sub.Close()
	_, err := sub.Receive(ctx) // wait for the subscription confirmation
	require.NoError(t, err)

	pub := NewRedisPublisher(client, "metrics:sync")
	pub.Publish(ctx, domain.Notification{
		Success: true,
		Message: "synced 14 days across 2 windows",
		BrandID: "b1",
		UserID:  "u1",
		RunID:   "run-123",
	})

	select {
	case msg := <-sub.Channel():
		var n domain.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.True(t, n.Success)
		assert.Equal(t, "b1", n.BrandID)
		assert.Equal(t, "run-123", n.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never arrived")
	}
}

func TestRedisPublisherSwallowsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close() // force publish failures

	pub := NewRedisPublisher(client, "metrics:sync")
	// Must not panic or propagate anything.
	pub.Publish(context.Background(), domain.Notification{Success: false, Message: "boom"})
}

func TestNopPublisher(t *testing.T) {
	NopPublisher{}.Publish(context.Background(), domain.Notification{Success: true})
}
