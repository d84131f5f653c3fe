package services

import (
	"bidding-platform/internal/domain"

	"github.com/shopspring/decimal"
)

// BidRuleValidator evaluates the bid rules against a single auction
// snapshot. It is pure: no I/O, no state, safe for concurrent use.
type BidRuleValidator struct{}

func NewBidRuleValidator() *BidRuleValidator {
	return &BidRuleValidator{}
}

// Validate applies the rules in a fixed order; the first failing rule
// determines the rejection a bidder sees, so the order is part of the
// contract. A nil result accepts the bid.
func (v *BidRuleValidator) Validate(auction *domain.Auction, bidder string, amount decimal.Decimal) *domain.Rejection {
	if bidder == auction.Seller {
		return domain.NewRejection(domain.SellerCannotBid, "You cannot bid on your own auction!")
	}

	if bidder == auction.HighestBid.Bidder {
		return domain.NewRejection(domain.AlreadyHighestBidder, "You are already the highest bidder!")
	}

	if auction.Status != domain.AuctionOpen {
		return domain.NewRejection(domain.AuctionClosedReason, "You cannot bid on closed auctions!")
	}

	// Strict increase: matching the current highest amount is not enough.
	if !amount.GreaterThan(auction.HighestBid.Amount) {
		return domain.NewBidTooLowRejection(auction.HighestBid.Amount)
	}

	return nil
}
