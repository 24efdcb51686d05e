package engine

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/swarmchat-backend/internal/logger"
)

// LeaderLockKey is shared by every process in the fleet; whoever holds it runs
// the matching cycle.
const LeaderLockKey = "cme:leader_lock"

const minLockTTL = 60 * time.Second

// LeaderLock is a TTL-based distributed mutex over redis. A non-owner never
// deletes or overwrites another owner's key; a crashed leader's slot is
// reclaimed when the TTL lapses.
type LeaderLock struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
	ttl time.Duration
}

// NewLeaderLock derives the TTL from the cycle interval: long enough to
// outlast one slow cycle, short enough that a dead leader is replaced within a
// few intervals.
func NewLeaderLock(log *logger.Logger, rdb *goredis.Client, cycleInterval time.Duration) *LeaderLock {
	ttl := 3 * cycleInterval
	if ttl < minLockTTL {
		ttl = minLockTTL
	}
	return &LeaderLock{
		log: log.With("service", "LeaderLock"),
		rdb: rdb,
		key: LeaderLockKey,
		ttl: ttl,
	}
}

// Acquire attempts an atomic set-if-absent with TTL. Returns true if this
// token now owns the lock.
func (l *LeaderLock) Acquire(ctx context.Context, token string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
}

// Renew extends the TTL only while the stored owner still equals token.
func (l *LeaderLock) Renew(ctx context.Context, token string) (bool, error) {
	current, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current != token {
		return false, nil
	}
	if err := l.rdb.Expire(ctx, l.key, l.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Release deletes the key only if token still owns it.
func (l *LeaderLock) Release(ctx context.Context, token string) error {
	current, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != token {
		return nil
	}
	return l.rdb.Del(ctx, l.key).Err()
}

func (l *LeaderLock) TTL() time.Duration {
	return l.ttl
}
