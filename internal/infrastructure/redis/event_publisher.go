package redis

import (
	"context"
	"encoding/json"

	"bidding-platform/internal/domain"

	"github.com/go-redis/redis/v8"
)

const bidEventsChannel = "bid_events"

type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, bidEventsChannel, data).Err()
}
