package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bidding-platform/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/peterldowns/testy/check"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

func bidMessage(t *testing.T, event *domain.BidEvent) *redis.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	check.Nil(t, err)
	return &redis.Message{Channel: bidEventsChannel, Payload: string(payload)}
}

func TestConsume_DeliversEventsToHandler(t *testing.T) {
	sub := NewRedisEventSubscriber(nil, nopLogger{})

	ch := make(chan *redis.Message, 2)
	ch <- bidMessage(t, &domain.BidEvent{
		Type:      domain.BidAccepted,
		AuctionID: "auction-1",
		Bidder:    "b@x",
	})
	ch <- &redis.Message{Channel: bidEventsChannel, Payload: "not json"}
	close(ch)

	var seen []*domain.BidEvent
	err := sub.consume(context.Background(), ch, func(event *domain.BidEvent) error {
		seen = append(seen, event)
		return nil
	})

	// Malformed payloads are logged and skipped, not delivered.
	check.Nil(t, err)
	check.Equal(t, 1, len(seen))
	check.Equal(t, domain.BidAccepted, seen[0].Type)
	check.Equal(t, "auction-1", seen[0].AuctionID)
}

func TestConsume_ReturnsNilWhenChannelCloses(t *testing.T) {
	sub := NewRedisEventSubscriber(nil, nopLogger{})

	ch := make(chan *redis.Message)
	close(ch)

	err := sub.consume(context.Background(), ch, func(*domain.BidEvent) error {
		t.Fatal("no events were published")
		return nil
	})
	check.Nil(t, err)
}

func TestConsume_StopsOnContextCancel(t *testing.T) {
	sub := NewRedisEventSubscriber(nil, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *redis.Message)
	done := make(chan error, 1)
	go func() {
		done <- sub.consume(ctx, ch, func(*domain.BidEvent) error { return nil })
	}()

	select {
	case err := <-done:
		check.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("consume did not stop after cancellation")
	}
}
