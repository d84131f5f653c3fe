package mysql

import (
	"context"
	"database/sql"
	"time"

	"bidding-platform/internal/domain"
)

type MySQLCloseJobRepository struct {
	db *sql.DB
}

func NewMySQLCloseJobRepository(db *sql.DB) *MySQLCloseJobRepository {
	return &MySQLCloseJobRepository{db: db}
}

func (r *MySQLCloseJobRepository) CreateJob(ctx context.Context, job *domain.CloseJob) error {
	query := `
        INSERT INTO close_jobs (id, auction_id, run_at, status, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.AuctionID, job.RunAt, string(job.Status), job.CreatedAt)
	if err != nil {
		return storeFailure(err)
	}
	return nil
}

func (r *MySQLCloseJobRepository) GetPendingJobs(ctx context.Context, before time.Time) ([]*domain.CloseJob, error) {
	query := `
        SELECT id, auction_id, run_at, status, created_at
        FROM close_jobs
        WHERE status = 'pending' AND run_at <= ?
        ORDER BY run_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, storeFailure(err)
	}
	defer rows.Close()

	var jobs []*domain.CloseJob
	for rows.Next() {
		var job domain.CloseJob
		var status string

		err := rows.Scan(&job.ID, &job.AuctionID, &job.RunAt, &status, &job.CreatedAt)
		if err != nil {
			return nil, storeFailure(err)
		}

		job.Status = domain.JobStatus(status)
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure(err)
	}

	return jobs, nil
}

func (r *MySQLCloseJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `UPDATE close_jobs SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(status), jobID)
	if err != nil {
		return storeFailure(err)
	}
	return nil
}

func (r *MySQLCloseJobRepository) CancelJobsForAuction(ctx context.Context, auctionID string) error {
	query := `UPDATE close_jobs SET status = 'cancelled' WHERE auction_id = ? AND status = 'pending'`
	_, err := r.db.ExecContext(ctx, query, auctionID)
	if err != nil {
		return storeFailure(err)
	}
	return nil
}
