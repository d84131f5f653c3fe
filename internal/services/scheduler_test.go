package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bidding-platform/internal/domain"

	"github.com/peterldowns/testy/check"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.CloseJob
}

func newMemJobRepo(jobs ...*domain.CloseJob) *memJobRepo {
	r := &memJobRepo{jobs: make(map[string]*domain.CloseJob)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *memJobRepo) CreateJob(ctx context.Context, job *domain.CloseJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobRepo) GetPendingJobs(ctx context.Context, before time.Time) ([]*domain.CloseJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CloseJob
	for _, j := range r.jobs {
		if j.Status == domain.JobPending && !j.RunAt.After(before) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *memJobRepo) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobID].Status = status
	return nil
}

func (r *memJobRepo) CancelJobsForAuction(ctx context.Context, auctionID string) error {
	return nil
}

func (r *memJobRepo) status(jobID string) domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[jobID].Status
}

type fixedLeader struct {
	leader bool
}

func (l *fixedLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, nil
}

func (l *fixedLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, nil
}

func (l *fixedLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return nil
}

func dueCloseJob(auctionID string) *domain.CloseJob {
	return &domain.CloseJob{
		ID:        "job-1",
		AuctionID: auctionID,
		RunAt:     time.Now().Add(-time.Minute),
		Status:    domain.JobPending,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestProcessPendingJobs_FollowerLeavesJobsPending(t *testing.T) {
	// A due close job polled on a non-leader instance must stay pending
	// and the auction must stay open, so the leader's poll still closes
	// it. Consuming the job without closing would leave the auction OPEN
	// forever.
	store := newMemStore(openAuction())
	repo := newMemJobRepo(dueCloseJob("auction-1"))
	mgr := NewAuctionManager(store, nil, nil, nopLogger{})
	sched := NewCronCloseScheduler(repo, mgr, &fixedLeader{leader: false}, "follower-1", nopLogger{})

	sched.processPendingJobs(context.Background())

	check.Equal(t, domain.JobPending, repo.status("job-1"))

	auction, err := store.GetAuction(context.Background(), "auction-1")
	check.Nil(t, err)
	check.Equal(t, domain.AuctionOpen, auction.Status)
}

func TestProcessPendingJobs_LeaderClosesAndMarksExecuted(t *testing.T) {
	store := newMemStore(openAuction())
	repo := newMemJobRepo(dueCloseJob("auction-1"))
	mgr := NewAuctionManager(store, nil, nil, nopLogger{})
	sched := NewCronCloseScheduler(repo, mgr, &fixedLeader{leader: true}, "leader-1", nopLogger{})

	sched.processPendingJobs(context.Background())

	check.Equal(t, domain.JobExecuted, repo.status("job-1"))

	auction, err := store.GetAuction(context.Background(), "auction-1")
	check.Nil(t, err)
	check.Equal(t, domain.AuctionClosed, auction.Status)
}

func TestProcessPendingJobs_FollowerThenLeaderStillCloses(t *testing.T) {
	// Leadership moves after a follower poll: the job survived the
	// follower and the new leader performs the close.
	store := newMemStore(openAuction())
	repo := newMemJobRepo(dueCloseJob("auction-1"))
	leader := &fixedLeader{leader: false}
	mgr := NewAuctionManager(store, nil, nil, nopLogger{})
	sched := NewCronCloseScheduler(repo, mgr, leader, "instance-1", nopLogger{})

	sched.processPendingJobs(context.Background())
	check.Equal(t, domain.JobPending, repo.status("job-1"))

	leader.leader = true
	sched.processPendingJobs(context.Background())

	check.Equal(t, domain.JobExecuted, repo.status("job-1"))

	auction, err := store.GetAuction(context.Background(), "auction-1")
	check.Nil(t, err)
	check.Equal(t, domain.AuctionClosed, auction.Status)
}

func TestCloseAuction_AlreadyClosedIsNoOp(t *testing.T) {
	auction := openAuction()
	auction.Status = domain.AuctionClosed
	store := newMemStore(auction)
	mgr := NewAuctionManager(store, nil, nil, nopLogger{})

	check.Nil(t, mgr.CloseAuction(context.Background(), "auction-1"))
}
