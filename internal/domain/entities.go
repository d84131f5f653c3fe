package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction is a point-in-time snapshot of an auction's persisted state.
// The core never mutates it in place; a new snapshot is produced by the
// store on every read and on every successful conditional write.
type Auction struct {
	ID         string
	Seller     string
	Status     AuctionStatus
	HighestBid HighestBid
	EndTime    time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HighestBid holds the current leading bid. Bidder is empty until the
// first bid lands; Amount starts at the seller's starting amount and is
// strictly increasing for the life of the auction.
type HighestBid struct {
	Amount decimal.Decimal
	Bidder string
}

type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosed
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "OPEN"
	case AuctionClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ParseAuctionStatus maps the wire form back to a status. The bool is
// false for anything that is not a known status.
func ParseAuctionStatus(s string) (AuctionStatus, bool) {
	switch s {
	case "OPEN":
		return AuctionOpen, true
	case "CLOSED":
		return AuctionClosed, true
	default:
		return AuctionOpen, false
	}
}

type BidEvent struct {
	Type      BidEventType    `json:"type"`
	AuctionID string          `json:"auction_id"`
	Bidder    string          `json:"bidder"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted      BidEventType = "bid_accepted"
	BidRejected      BidEventType = "bid_rejected"
	AuctionClosedOut BidEventType = "auction_closed"
)

// CloseJob schedules the terminal OPEN -> CLOSED transition of one
// auction at its end time.
type CloseJob struct {
	ID        string
	AuctionID string
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
