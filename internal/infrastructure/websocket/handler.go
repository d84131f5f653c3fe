package websocket

import (
	"net/http"
	"sync"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// FeedHandler upgrades watchers of an auction to a websocket
// connection that receives bid updates until the auction closes.
type FeedHandler struct {
	store       domain.AuctionStore
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewFeedHandler(store domain.AuctionStore, connManager domain.ConnectionManager, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		store:       store,
		connManager: connManager,
		log:         log,
	}
}

func (h *FeedHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	auction, err := h.store.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.log.Error("Failed to find auction", "auction_id", auctionID, "error", err)
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}

	if auction.Status != domain.AuctionOpen {
		http.Error(w, "auction is closed", http.StatusForbidden)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	feedConn := NewFeedConnection(conn, userID, auctionID)

	if err := h.connManager.RegisterConnection(userID, auctionID, feedConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	// Send the current state so a watcher does not wait for the next bid.
	if err := feedConn.Send(map[string]interface{}{
		"type":           "bid_update",
		"highest_bid":    auction.HighestBid.Amount,
		"highest_bidder": auction.HighestBid.Bidder,
		"timestamp":      auction.UpdatedAt,
	}); err != nil {
		h.log.Error("Failed to send initial state", "auction_id", auctionID, "error", err)
	}

	go h.readLoop(feedConn, userID, auctionID)
}

// readLoop drains client frames (pings and eventual close) so the
// connection's control messages get processed.
func (h *FeedHandler) readLoop(conn *FeedConnection, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}

type FeedConnection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	userID    string
	auctionID string
}

func NewFeedConnection(conn *websocket.Conn, userID, auctionID string) *FeedConnection {
	return &FeedConnection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (fc *FeedConnection) Send(message interface{}) error {
	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	return fc.conn.WriteJSON(message)
}

func (fc *FeedConnection) Close() error {
	return fc.conn.Close()
}

func (fc *FeedConnection) UserID() string {
	return fc.userID
}

func (fc *FeedConnection) AuctionID() string {
	return fc.auctionID
}
