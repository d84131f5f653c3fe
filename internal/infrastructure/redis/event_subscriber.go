package redis

import (
	"context"
	"encoding/json"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

func (r *RedisEventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, bidEventsChannel)
	defer pubsub.Close()

	r.log.Info("Subscribed to bid events")

	return r.consume(ctx, pubsub.Channel(), handler)
}

func (r *RedisEventSubscriber) consume(ctx context.Context, ch <-chan *redis.Message, handler domain.EventHandler) error {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				// The pub/sub channel closes when the connection is
				// lost or the subscription is shut down.
				r.log.Info("Bid event channel closed")
				return nil
			}

			var event domain.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("Failed to parse bid event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("Failed to handle bid event", "event", event, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Bid event subscriber stopped")
			return ctx.Err()
		}
	}
}
