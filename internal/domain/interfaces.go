package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store interfaces
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)

	// ApplyBid performs the conditional atomic update: it commits only if
	// the persisted highest bid amount still equals expectedPrior (and the
	// auction is still open) at the instant of the write. A lost race
	// returns ErrConflict; a committed write returns the resulting
	// snapshot, no second read needed.
	ApplyBid(ctx context.Context, auctionID string, expectedPrior, amount decimal.Decimal, bidder string) (*Auction, error)

	// CloseAuction flips OPEN -> CLOSED. Closing is terminal and the
	// transition is idempotent.
	CloseAuction(ctx context.Context, auctionID string) error

	GetAuctionsByStatus(ctx context.Context, status AuctionStatus) ([]*Auction, error)
}

type CloseJobRepository interface {
	CreateJob(ctx context.Context, job *CloseJob) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*CloseJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForAuction(ctx context.Context, auctionID string) error
}

// Validation interface
type BidValidator interface {
	// Validate applies the bid rules against one snapshot. A nil result
	// is an accept; a non-nil result names the first rule that failed.
	Validate(auction *Auction, bidder string, amount decimal.Decimal) *Rejection
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidEvent) error

// Scheduler interface
type CloseScheduler interface {
	ScheduleAuctionClose(ctx context.Context, auctionID string, endTime time.Time) error
	Start(ctx context.Context) error
	Stop() error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	BroadcastToAuction(auctionID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}
