package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bidding-platform/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// MySQLAuctionStore is the durable auction record store. Each auction
// is one row; bids are applied with a guarded UPDATE so a write only
// commits against the exact highest-bid amount validation ran on.
type MySQLAuctionStore struct {
	db *sql.DB
}

func NewMySQLAuctionStore(db *sql.DB) *MySQLAuctionStore {
	return &MySQLAuctionStore{db: db}
}

func (r *MySQLAuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, seller, status, highest_bid_amount, highest_bid_bidder, end_time, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.Seller, int(auction.Status),
		auction.HighestBid.Amount, auction.HighestBid.Bidder,
		auction.EndTime, auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return storeFailure(err)
	}
	return nil
}

func (r *MySQLAuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `
        SELECT id, seller, status, highest_bid_amount, highest_bid_bidder, end_time, created_at, updated_at
        FROM auctions WHERE id = ?
    `
	return scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
}

// ApplyBid is the conditional atomic update. The UPDATE commits only
// while the persisted highest_bid_amount still equals expectedPrior and
// the auction is still open; zero rows affected means another bid (or
// the close transition) got there first, reported as ErrConflict. The
// returned snapshot is read inside the same transaction, so it reflects
// exactly the state this write installed.
func (r *MySQLAuctionStore) ApplyBid(ctx context.Context, auctionID string, expectedPrior, amount decimal.Decimal, bidder string) (*domain.Auction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeFailure(err)
	}
	defer tx.Rollback()

	update := `
        UPDATE auctions
        SET highest_bid_amount = ?, highest_bid_bidder = ?, updated_at = ?
        WHERE id = ? AND status = ? AND highest_bid_amount = ?
    `
	res, err := tx.ExecContext(ctx, update,
		amount, bidder, time.Now(),
		auctionID, int(domain.AuctionOpen), expectedPrior)
	if err != nil {
		return nil, storeFailure(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeFailure(err)
	}

	if affected == 0 {
		// Distinguish a lost race from a missing auction.
		if _, err := r.GetAuction(ctx, auctionID); err != nil {
			return nil, err
		}
		return nil, domain.ErrConflict
	}

	query := `
        SELECT id, seller, status, highest_bid_amount, highest_bid_bidder, end_time, created_at, updated_at
        FROM auctions WHERE id = ?
    `
	auction, err := scanAuction(tx.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storeFailure(err)
	}

	return auction, nil
}

// CloseAuction flips an open auction to CLOSED. The status guard keeps
// the transition terminal; closing an already-closed auction is a no-op.
func (r *MySQLAuctionStore) CloseAuction(ctx context.Context, auctionID string) error {
	query := `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query,
		int(domain.AuctionClosed), time.Now(), auctionID, int(domain.AuctionOpen))
	if err != nil {
		return storeFailure(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeFailure(err)
	}

	if affected == 0 {
		if _, err := r.GetAuction(ctx, auctionID); err != nil {
			return err
		}
		// Already closed.
	}
	return nil
}

func (r *MySQLAuctionStore) GetAuctionsByStatus(ctx context.Context, status domain.AuctionStatus) ([]*domain.Auction, error) {
	query := `
        SELECT id, seller, status, highest_bid_amount, highest_bid_bidder, end_time, created_at, updated_at
        FROM auctions WHERE status = ?
        ORDER BY end_time ASC
    `

	rows, err := r.db.QueryContext(ctx, query, int(status))
	if err != nil {
		return nil, storeFailure(err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure(err)
	}

	return auctions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int

	err := row.Scan(&auction.ID, &auction.Seller, &status,
		&auction.HighestBid.Amount, &auction.HighestBid.Bidder,
		&auction.EndTime, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, storeFailure(err)
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
