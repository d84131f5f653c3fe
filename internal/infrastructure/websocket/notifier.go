package websocket

import (
	"context"

	"bidding-platform/internal/domain"
)

// WebSocketBroadcaster adapts the connection manager to the
// context-aware broadcaster interface the event listener consumes.
type WebSocketBroadcaster struct {
	connManager domain.ConnectionManager
}

func NewWebSocketBroadcaster(connManager domain.ConnectionManager) *WebSocketBroadcaster {
	return &WebSocketBroadcaster{connManager: connManager}
}

func (n *WebSocketBroadcaster) BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error {
	return n.connManager.BroadcastToAuction(auctionID, message)
}
