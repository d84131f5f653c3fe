package handlers

import (
	"errors"
	"net/http"
	"time"

	"bidding-platform/internal/api/middleware"
	"bidding-platform/internal/domain"
	"bidding-platform/internal/services"
	"bidding-platform/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	bidService     *services.BidService
	auctionManager *services.AuctionManager
	log            logger.Logger
}

func NewAuctionHandler(bidService *services.BidService, auctionManager *services.AuctionManager, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		bidService:     bidService,
		auctionManager: auctionManager,
		log:            log,
	}
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CreateAuctionRequest struct {
	StartingAmount decimal.Decimal `json:"starting_amount"`
	EndTime        time.Time       `json:"end_time"`
}

type AuctionResponse struct {
	AuctionID  string             `json:"auction_id"`
	Seller     string             `json:"seller"`
	Status     string             `json:"status"`
	HighestBid HighestBidResponse `json:"highest_bid"`
	EndTime    time.Time          `json:"end_time"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type HighestBidResponse struct {
	Amount decimal.Decimal `json:"amount"`
	Bidder string          `json:"bidder,omitempty"`
}

func toAuctionResponse(auction *domain.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID: auction.ID,
		Seller:    auction.Seller,
		Status:    auction.Status.String(),
		HighestBid: HighestBidResponse{
			Amount: auction.HighestBid.Amount,
			Bidder: auction.HighestBid.Bidder,
		},
		EndTime:   auction.EndTime,
		CreatedAt: auction.CreatedAt,
		UpdatedAt: auction.UpdatedAt,
	}
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	auctionID := c.Param("id")
	bidder := middleware.IdentityFrom(c)

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if !req.Amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Bid amount must be positive"})
	}

	auction, err := h.bidService.PlaceBid(c.Request().Context(), auctionID, bidder, req.Amount)
	if err != nil {
		return h.bidError(c, err)
	}

	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

// bidError maps the outcome taxonomy onto HTTP classes: business-rule
// rejections are 403, a missing auction is 404, and both conflict
// exhaustion and store faults are 503 so the caller knows a retry of
// the whole request may succeed.
func (h *AuctionHandler) bidError(c echo.Context, err error) error {
	var rejection *domain.Rejection
	if errors.As(err, &rejection) {
		body := map[string]interface{}{
			"error":  rejection.Message,
			"reason": string(rejection.Reason),
		}
		if rejection.Reason == domain.BidTooLow {
			body["highest_bid"] = rejection.HighestAmount
		}
		return c.JSON(http.StatusForbidden, body)
	}

	if errors.Is(err, domain.ErrAuctionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
	}

	if errors.Is(err, domain.ErrTooManyConflicts) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Auction is busy, please retry"})
	}

	h.log.Error("Bid placement failed", "error", err)
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Temporary failure, please retry"})
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	seller := middleware.IdentityFrom(c)

	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.EndTime.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "End time must be in the future"})
	}

	if req.StartingAmount.IsNegative() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Starting amount must not be negative"})
	}

	auction, err := h.auctionManager.CreateAuction(c.Request().Context(), seller, req.StartingAmount, req.EndTime)
	if err != nil {
		h.log.Error("Failed to create auction", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Failed to create auction"})
	}

	return c.JSON(http.StatusCreated, toAuctionResponse(auction))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctionManager.GetAuction(c.Request().Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Auction not found"})
		}
		h.log.Error("Failed to fetch auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Temporary failure, please retry"})
	}

	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	statusParam := c.QueryParam("status")
	if statusParam == "" {
		statusParam = "OPEN"
	}

	status, ok := domain.ParseAuctionStatus(statusParam)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown status"})
	}

	auctions, err := h.auctionManager.ListAuctions(c.Request().Context(), status)
	if err != nil {
		h.log.Error("Failed to list auctions", "status", statusParam, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Temporary failure, please retry"})
	}

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, toAuctionResponse(auction))
	}

	return c.JSON(http.StatusOK, responses)
}
