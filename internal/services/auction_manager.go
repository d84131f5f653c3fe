package services

import (
	"context"
	"errors"
	"time"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"
	"bidding-platform/pkg/utils"

	"github.com/shopspring/decimal"
)

// AuctionManager owns the auction lifecycle around the bid core:
// creation, reads for the API surface, and the terminal close
// transition executed by the scheduler.
type AuctionManager struct {
	store     domain.AuctionStore
	scheduler domain.CloseScheduler
	eventPub  domain.EventPublisher
	log       logger.Logger
}

func NewAuctionManager(
	store domain.AuctionStore,
	scheduler domain.CloseScheduler,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		store:     store,
		scheduler: scheduler,
		eventPub:  eventPub,
		log:       log,
	}
}

func (am *AuctionManager) CreateAuction(ctx context.Context, seller string, startingAmount decimal.Decimal, endTime time.Time) (*domain.Auction, error) {
	now := time.Now()
	auction := &domain.Auction{
		ID:     utils.GenerateID("auction"),
		Seller: seller,
		Status: domain.AuctionOpen,
		HighestBid: domain.HighestBid{
			Amount: startingAmount,
		},
		EndTime:   endTime,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := am.store.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}

	if err := am.scheduler.ScheduleAuctionClose(ctx, auction.ID, endTime); err != nil {
		return nil, err
	}

	am.log.Info("Auction created", "auction_id", auction.ID, "seller", seller, "end_time", endTime)
	return auction, nil
}

func (am *AuctionManager) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return am.store.GetAuction(ctx, auctionID)
}

func (am *AuctionManager) ListAuctions(ctx context.Context, status domain.AuctionStatus) ([]*domain.Auction, error) {
	return am.store.GetAuctionsByStatus(ctx, status)
}

// CloseAuction performs the OPEN -> CLOSED transition. Leadership is
// decided by the caller (the scheduler drains close jobs only on the
// leader); the transition itself is idempotent and store-guarded, so a
// stray duplicate execution cannot reopen or re-close anything.
func (am *AuctionManager) CloseAuction(ctx context.Context, auctionID string) error {
	am.log.Info("Closing auction", "auction_id", auctionID)

	auction, err := am.store.GetAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			am.log.Warn("Close requested for unknown auction", "auction_id", auctionID)
			return nil
		}
		return err
	}
	if auction.Status != domain.AuctionOpen {
		return nil
	}

	if err := am.store.CloseAuction(ctx, auctionID); err != nil {
		return err
	}

	if am.eventPub != nil {
		event := &domain.BidEvent{
			Type:      domain.AuctionClosedOut,
			AuctionID: auctionID,
			Timestamp: time.Now(),
		}
		if err := am.eventPub.PublishBidEvent(ctx, event); err != nil {
			am.log.Error("Failed to publish auction closed event", "auction_id", auctionID, "error", err)
		}
	}

	return nil
}

func (am *AuctionManager) SetScheduler(scheduler domain.CloseScheduler) {
	am.scheduler = scheduler
}
