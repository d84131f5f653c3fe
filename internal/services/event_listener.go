package services

import (
	"context"
	"fmt"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"
)

// EventListener turns bid events from the pub/sub channel into
// websocket broadcasts for watchers of the affected auction.
type EventListener struct {
	broadcaster       domain.AuctionBroadcaster
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager,
	broadcaster domain.AuctionBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting bid event listener")
	return subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
}

func (el *EventListener) handleBidEvent(event *domain.BidEvent) error {
	el.log.Info("Handling bid event", "type", event.Type, "auction_id", event.AuctionID)

	switch event.Type {
	case domain.BidAccepted:
		return el.handleBidAccepted(event)
	case domain.BidRejected:
		// Rejections are returned to the bidder on the request path;
		// watchers do not need them.
		return nil
	case domain.AuctionClosedOut:
		return el.handleAuctionClosed(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.BidEvent) error {
	return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":           "bid_update",
		"highest_bid":    event.Amount,
		"highest_bidder": event.Bidder,
		"timestamp":      event.Timestamp,
	})
}

func (el *EventListener) handleAuctionClosed(event *domain.BidEvent) error {
	if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
		"type":      "auction_closed",
		"timestamp": event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast auction closed event", "auction_id", event.AuctionID, "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.AuctionID); err != nil {
		el.log.Error("Failed to finalize connections for auction",
			"auction_id", event.AuctionID, "error", err)
		return err
	}
	return nil
}
