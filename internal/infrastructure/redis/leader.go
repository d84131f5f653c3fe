package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaderKey = "auction_close_leader"

// Renew the lease only while we still hold it, and delete it only if it
// is still ours. Both run as Lua so the ownership check and the write
// land in one step.
const renewLeaseScript = `
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("EXPIRE", KEYS[1], ARGV[2])
    else
        return 0
    end
`

const releaseLeaseScript = `
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`

// RedisLeaderElection elects the instance that runs auction close
// transitions, so a scheduled close executes once across the fleet.
// The leader holds a TTL'd key and renews it from a heartbeat
// goroutine; the heartbeat stops when the lease is lost or released.
type RedisLeaderElection struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

func NewRedisLeaderElection(client *redis.Client, ttl time.Duration) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	acquired, err := r.client.SetNX(ctx, leaderKey, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if acquired {
		go r.maintainLeadership(instanceID, r.startHeartbeat())
	}

	return acquired, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	r.stopHeartbeat()

	_, err := r.client.Eval(ctx, releaseLeaseScript, []string{leaderKey}, instanceID).Result()
	return err
}

// startHeartbeat replaces any previous stop channel so a re-acquired
// lease gets a fresh heartbeat.
func (r *RedisLeaderElection) startHeartbeat() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil {
		close(r.stopCh)
	}
	r.stopCh = make(chan struct{})
	return r.stopCh
}

func (r *RedisLeaderElection) stopHeartbeat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
}

func (r *RedisLeaderElection) maintainLeadership(instanceID string, stop <-chan struct{}) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !r.renewLease(instanceID) {
				return
			}
		}
	}
}

func (r *RedisLeaderElection) renewLease(instanceID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := r.client.Eval(ctx, renewLeaseScript, []string{leaderKey},
		instanceID, int(r.ttl.Seconds())).Result()
	if err != nil {
		return false
	}

	renewed, ok := result.(int64)
	return ok && renewed == 1
}
