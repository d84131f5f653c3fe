package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAuctionNotFound means the auction id does not exist in the store.
	ErrAuctionNotFound = errors.New("auction not found")

	// ErrConflict means the conditional write observed a highest bid that
	// no longer matches the one validation ran against. It is a retry
	// signal, not a failure, and is never surfaced to callers.
	ErrConflict = errors.New("auction state changed concurrently")

	// ErrStoreUnavailable wraps infrastructure faults (network, storage,
	// timeouts) from the auction store.
	ErrStoreUnavailable = errors.New("auction store unavailable")

	// ErrTooManyConflicts is returned when a bid keeps losing the
	// conditional write race after the configured number of attempts.
	ErrTooManyConflicts = errors.New("too many concurrent bid conflicts")
)

type RejectionReason string

const (
	SellerCannotBid      RejectionReason = "SELLER_CANNOT_BID"
	AlreadyHighestBidder RejectionReason = "ALREADY_HIGHEST_BIDDER"
	AuctionClosedReason  RejectionReason = "AUCTION_CLOSED"
	BidTooLow            RejectionReason = "BID_TOO_LOW"
)

// Rejection is a business-rule failure, distinct from not-found and
// infrastructure failures. For BID_TOO_LOW, HighestAmount carries the
// bar the bidder has to beat.
type Rejection struct {
	Reason        RejectionReason
	Message       string
	HighestAmount decimal.Decimal
}

func (r *Rejection) Error() string {
	return r.Message
}

func NewRejection(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

func NewBidTooLowRejection(highest decimal.Decimal) *Rejection {
	return &Rejection{
		Reason:        BidTooLow,
		Message:       fmt.Sprintf("Your bid must be higher than %s", highest.String()),
		HighestAmount: highest,
	}
}
