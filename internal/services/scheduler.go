package services

import (
	"context"
	"time"

	"bidding-platform/internal/domain"
	"bidding-platform/pkg/logger"
	"bidding-platform/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CronCloseScheduler persists a close job per auction and polls for
// due jobs every minute. Jobs live in MySQL so a restart does not lose
// scheduled closes. Only the leader instance drains the poll; followers
// leave jobs pending, so a due close is never consumed by an instance
// that will not perform it.
type CronCloseScheduler struct {
	cron           *cron.Cron
	repo           domain.CloseJobRepository
	auctionMgr     *AuctionManager
	leaderElection domain.LeaderElection
	instanceID     string
	log            logger.Logger
}

func NewCronCloseScheduler(repo domain.CloseJobRepository, auctionMgr *AuctionManager,
	leaderElection domain.LeaderElection, instanceID string, log logger.Logger) *CronCloseScheduler {
	return &CronCloseScheduler{
		cron:           cron.New(cron.WithSeconds()),
		repo:           repo,
		auctionMgr:     auctionMgr,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		log:            log,
	}
}

func (s *CronCloseScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting auction close scheduler")

	_, err := s.cron.AddFunc("@every 1m", func() {
		s.processPendingJobs(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronCloseScheduler) Stop() error {
	s.log.Info("Stopping auction close scheduler")
	s.cron.Stop()
	return nil
}

func (s *CronCloseScheduler) ScheduleAuctionClose(ctx context.Context, auctionID string, endTime time.Time) error {
	job := &domain.CloseJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auctionID,
		RunAt:     endTime,
		Status:    domain.JobPending,
		CreatedAt: time.Now(),
	}

	return s.repo.CreateJob(ctx, job)
}

func (s *CronCloseScheduler) processPendingJobs(ctx context.Context) {
	isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		// Jobs stay pending for the leader's poll.
		return
	}

	jobs, err := s.repo.GetPendingJobs(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to fetch pending close jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if err := s.auctionMgr.CloseAuction(ctx, job.AuctionID); err != nil {
			s.log.Error("Failed to close auction", "auction_id", job.AuctionID, "job_id", job.ID, "error", err)
			continue
		}

		if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("Failed to mark close job executed", "job_id", job.ID, "error", err)
		}
	}
}
