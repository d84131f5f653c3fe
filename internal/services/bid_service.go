package services

import (
	"context"
	"errors"
	"time"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"

	"github.com/shopspring/decimal"
)

const defaultMaxAttempts = 3

// BidService coordinates one bid attempt: read the auction snapshot,
// validate the bid against it, then apply it with a conditional write.
// A conditional write that loses to a concurrent bid is retried from
// the read, bounded by maxAttempts, and every retry re-validates
// against the freshly read snapshot - the winner's bid may have made
// this one too low, or made this bidder already the highest.
type BidService struct {
	store       domain.AuctionStore
	validator   domain.BidValidator
	eventPub    domain.EventPublisher
	maxAttempts int
	log         logger.Logger
}

func NewBidService(
	store domain.AuctionStore,
	validator domain.BidValidator,
	eventPub domain.EventPublisher,
	maxAttempts int,
	log logger.Logger,
) *BidService {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &BidService{
		store:       store,
		validator:   validator,
		eventPub:    eventPub,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// PlaceBid returns the updated snapshot when the bid is accepted. A
// *domain.Rejection names the business rule that failed; no write is
// attempted for rejected bids. ErrAuctionNotFound, ErrStoreUnavailable
// and ErrTooManyConflicts propagate as-is.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidder string, amount decimal.Decimal) (*domain.Auction, error) {
	s.log.Info("Placing bid", "auction_id", auctionID, "bidder", bidder, "amount", amount)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		auction, err := s.store.GetAuction(ctx, auctionID)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				s.log.Error("Failed to read auction", "auction_id", auctionID, "error", err)
			}
			return nil, err
		}

		if rejection := s.validator.Validate(auction, bidder, amount); rejection != nil {
			s.log.Info("Bid rejected",
				"auction_id", auctionID,
				"bidder", bidder,
				"reason", rejection.Reason)
			s.publishEvent(ctx, domain.BidRejected, auctionID, bidder, amount)
			return nil, rejection
		}

		updated, err := s.store.ApplyBid(ctx, auctionID, auction.HighestBid.Amount, amount, bidder)
		if errors.Is(err, domain.ErrConflict) {
			// Another bid landed between our read and write. Loop back to a
			// fresh read so validation runs against the winner's state.
			s.log.Info("Concurrent bid detected, re-validating",
				"auction_id", auctionID,
				"bidder", bidder,
				"attempt", attempt)
			continue
		}
		if err != nil {
			s.log.Error("Failed to apply bid", "auction_id", auctionID, "error", err)
			return nil, err
		}

		s.log.Info("Bid accepted",
			"auction_id", auctionID,
			"bidder", bidder,
			"amount", amount)
		s.publishEvent(ctx, domain.BidAccepted, auctionID, bidder, amount)
		return updated, nil
	}

	s.log.Warn("Bid retries exhausted", "auction_id", auctionID, "bidder", bidder, "attempts", s.maxAttempts)
	return nil, domain.ErrTooManyConflicts
}

// publishEvent is best-effort: the bid outcome is already durable, a
// failed publish only degrades the live feed.
func (s *BidService) publishEvent(ctx context.Context, eventType domain.BidEventType, auctionID, bidder string, amount decimal.Decimal) {
	if s.eventPub == nil {
		return
	}

	event := &domain.BidEvent{
		Type:      eventType,
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: time.Now(),
	}

	if err := s.eventPub.PublishBidEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish bid event", "auction_id", auctionID, "type", eventType, "error", err)
	}
}
