package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apimiddleware "bidding-platform/internal/api/middleware"
	"bidding-platform/internal/domain"
	"bidding-platform/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}

type stubStore struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
	applyErr error
}

func newStubStore(auctions ...*domain.Auction) *stubStore {
	s := &stubStore{auctions: make(map[string]*domain.Auction)}
	for _, a := range auctions {
		s.auctions[a.ID] = a
	}
	return s
}

func (s *stubStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[auction.ID] = auction
	return nil
}

func (s *stubStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	c := *a
	return &c, nil
}

func (s *stubStore) ApplyBid(ctx context.Context, auctionID string, expectedPrior, amount decimal.Decimal, bidder string) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	if a.Status != domain.AuctionOpen || !a.HighestBid.Amount.Equal(expectedPrior) {
		return nil, domain.ErrConflict
	}
	a.HighestBid = domain.HighestBid{Amount: amount, Bidder: bidder}
	c := *a
	return &c, nil
}

func (s *stubStore) CloseAuction(ctx context.Context, auctionID string) error {
	return nil
}

func (s *stubStore) GetAuctionsByStatus(ctx context.Context, status domain.AuctionStatus) ([]*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Auction
	for _, a := range s.auctions {
		if a.Status == status {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

type stubScheduler struct{}

func (stubScheduler) ScheduleAuctionClose(ctx context.Context, auctionID string, endTime time.Time) error {
	return nil
}
func (stubScheduler) Start(ctx context.Context) error { return nil }
func (stubScheduler) Stop() error                     { return nil }

func testAuction() *domain.Auction {
	return &domain.Auction{
		ID:     "auction-1",
		Seller: "s@x",
		Status: domain.AuctionOpen,
		HighestBid: domain.HighestBid{
			Amount: decimal.NewFromInt(100),
		},
		EndTime: time.Now().Add(time.Hour),
	}
}

func newTestHandler(store *stubStore) *AuctionHandler {
	log := nopLogger{}
	bidService := services.NewBidService(store, services.NewBidRuleValidator(), nil, 3, log)
	auctionManager := services.NewAuctionManager(store, stubScheduler{}, nil, log)
	return NewAuctionHandler(bidService, auctionManager, log)
}

func placeBid(t *testing.T, h *AuctionHandler, auctionID, bidder, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions/"+auctionID+"/bid", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bidder != "" {
		req.Header.Set(apimiddleware.IdentityHeader, bidder)
	}
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/auctions/:id/bid")
	c.SetParamNames("id")
	c.SetParamValues(auctionID)

	handler := apimiddleware.RequireIdentity(h.PlaceBid)
	check.Nil(t, handler(c))
	return rec
}

func TestPlaceBidHandler_Success(t *testing.T) {
	h := newTestHandler(newStubStore(testAuction()))

	rec := placeBid(t, h, "auction-1", "b@x", `{"amount": 150}`)

	check.Equal(t, http.StatusOK, rec.Code)

	var resp AuctionResponse
	check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	check.Equal(t, "auction-1", resp.AuctionID)
	check.Equal(t, "OPEN", resp.Status)
	check.True(t, resp.HighestBid.Amount.Equal(decimal.NewFromInt(150)))
	check.Equal(t, "b@x", resp.HighestBid.Bidder)
}

func TestPlaceBidHandler_RejectionsAreForbidden(t *testing.T) {
	closed := testAuction()
	closed.ID = "auction-closed"
	closed.Status = domain.AuctionClosed

	leading := testAuction()
	leading.ID = "auction-leading"
	leading.HighestBid.Bidder = "b@x"

	tests := []struct {
		name      string
		auctionID string
		bidder    string
		body      string
		reason    string
	}{
		{"seller", "auction-1", "s@x", `{"amount": 150}`, "SELLER_CANNOT_BID"},
		{"already highest", "auction-leading", "b@x", `{"amount": 200}`, "ALREADY_HIGHEST_BIDDER"},
		{"closed", "auction-closed", "b@x", `{"amount": 150}`, "AUCTION_CLOSED"},
		{"too low", "auction-1", "b@x", `{"amount": 100}`, "BID_TOO_LOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(newStubStore(testAuction(), closed, leading))

			rec := placeBid(t, h, tt.auctionID, tt.bidder, tt.body)

			check.Equal(t, http.StatusForbidden, rec.Code)

			var body map[string]interface{}
			check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
			reason, _ := body["reason"].(string)
			check.Equal(t, tt.reason, reason)
		})
	}
}

func TestPlaceBidHandler_BidTooLowCarriesHighestBid(t *testing.T) {
	h := newTestHandler(newStubStore(testAuction()))

	rec := placeBid(t, h, "auction-1", "b@x", `{"amount": 40}`)

	check.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]interface{}
	check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	check.Equal(t, "Your bid must be higher than 100", body["error"])
	// decimal amounts marshal as quoted strings
	check.Equal(t, "100", body["highest_bid"])
}

func TestPlaceBidHandler_UnknownAuctionIsNotFound(t *testing.T) {
	h := newTestHandler(newStubStore())

	rec := placeBid(t, h, "missing", "b@x", `{"amount": 150}`)

	check.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceBidHandler_MissingIdentityIsUnauthorized(t *testing.T) {
	h := newTestHandler(newStubStore(testAuction()))

	rec := placeBid(t, h, "auction-1", "", `{"amount": 150}`)

	check.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceBidHandler_NonPositiveAmountIsBadRequest(t *testing.T) {
	h := newTestHandler(newStubStore(testAuction()))

	for _, body := range []string{`{}`, `{"amount": 0}`, `{"amount": -5}`} {
		rec := placeBid(t, h, "auction-1", "b@x", body)
		check.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestPlaceBidHandler_ExhaustedConflictsAreServiceUnavailable(t *testing.T) {
	store := newStubStore(testAuction())
	store.applyErr = domain.ErrConflict
	h := newTestHandler(store)

	rec := placeBid(t, h, "auction-1", "b@x", `{"amount": 150}`)

	check.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlaceBidHandler_StoreFailureIsServiceUnavailable(t *testing.T) {
	store := newStubStore(testAuction())
	store.applyErr = domain.ErrStoreUnavailable
	h := newTestHandler(store)

	rec := placeBid(t, h, "auction-1", "b@x", `{"amount": 150}`)

	check.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetAuctionHandler(t *testing.T) {
	h := newTestHandler(newStubStore(testAuction()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions/auction-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("auction-1")

	check.Nil(t, h.GetAuction(c))
	check.Equal(t, http.StatusOK, rec.Code)

	var resp AuctionResponse
	check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	check.Equal(t, "s@x", resp.Seller)
}

func TestGetAuctionHandler_NotFound(t *testing.T) {
	h := newTestHandler(newStubStore())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	check.Nil(t, h.GetAuction(c))
	check.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAuctionHandler(t *testing.T) {
	h := newTestHandler(newStubStore())

	e := echo.New()
	body := `{"starting_amount": 100, "end_time": "` + time.Now().Add(time.Hour).Format(time.RFC3339) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(apimiddleware.IdentityHeader, "s@x")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := apimiddleware.RequireIdentity(h.CreateAuction)
	check.Nil(t, handler(c))
	check.Equal(t, http.StatusCreated, rec.Code)

	var resp AuctionResponse
	check.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	check.Equal(t, "s@x", resp.Seller)
	check.Equal(t, "OPEN", resp.Status)
	check.True(t, resp.HighestBid.Amount.Equal(decimal.NewFromInt(100)))
}
