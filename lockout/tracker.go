package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is an exported constant or variable used by the lockout layer.
var ErrUnavailable = errors.New("lockout backend unavailable")

// Config holds configuration for the failed-attempt tracker.
type Config struct {
	// MaxAttempts is the failure count that trips the lock.
	MaxAttempts int
	// LockDuration is how long the lock marker lives once tripped.
	LockDuration time.Duration
	// Window bounds the counting window for failures. When zero the counter
	// window equals LockDuration.
	Window time.Duration
}

// Status describes the lockout state of a subject at a point in time.
type Status struct {
	Locked    bool
	Failures  int
	Remaining time.Duration
}

// Tracker defines a public type used by tokengate APIs. See package documentation for details.
type Tracker struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// NewTracker creates a [Tracker] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewTracker(redisClient redis.UniversalClient, prefix string, cfg Config) *Tracker {
	if prefix == "" {
		prefix = "tg"
	}
	if cfg.Window <= 0 {
		cfg.Window = cfg.LockDuration
	}
	return &Tracker{redis: redisClient, prefix: prefix, config: cfg}
}

func (t *Tracker) counterKey(subject string) string {
	return t.prefix + ":lf:" + subject
}

func (t *Tracker) lockKey(subject string) string {
	return t.prefix + ":ll:" + subject
}

// Status returns the current lockout state for a subject.
//
//	Performance: 1 pipelined round trip (PTTL + GET).
func (t *Tracker) Status(ctx context.Context, subject string) (Status, error) {
	pipe := t.redis.Pipeline()
	lockCmd := pipe.PTTL(ctx, t.lockKey(subject))
	countCmd := pipe.Get(ctx, t.counterKey(subject))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var st Status

	pttl, err := lockCmd.Result()
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if pttl > 0 {
		st.Locked = true
		st.Remaining = pttl
	}

	count, err := countCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	st.Failures = int(count)

	return st, nil
}

// IsLocked reports whether the subject is currently locked.
//
//	Performance: 1 Redis EXISTS.
func (t *Tracker) IsLocked(ctx context.Context, subject string) (bool, error) {
	n, err := t.redis.Exists(ctx, t.lockKey(subject)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// RecordFailure increments the subject's failure counter and trips the lock
// when the threshold is reached. It returns the post-increment count and
// whether this call tripped the lock.
//
//	Performance: 1–3 Redis commands (INCR, first-failure EXPIRE, lock SET).
func (t *Tracker) RecordFailure(ctx context.Context, subject string) (int, bool, error) {
	key := t.counterKey(subject)

	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		// TTL on first failure makes the counter a rolling window.
		if err := t.redis.Expire(ctx, key, t.config.Window).Err(); err != nil {
			return int(count), false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if count >= int64(t.config.MaxAttempts) {
		if err := t.redis.Set(ctx, t.lockKey(subject), 1, t.config.LockDuration).Err(); err != nil {
			return int(count), false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return int(count), true, nil
	}

	return int(count), false, nil
}

// RecordSuccess clears the failure counter and any active lock for a subject.
//
//	Performance: 1 Redis DEL (2 keys).
func (t *Tracker) RecordSuccess(ctx context.Context, subject string) error {
	if err := t.redis.Del(ctx, t.counterKey(subject), t.lockKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// FailureCount returns the current failure count for a subject.
func (t *Tracker) FailureCount(ctx context.Context, subject string) (int, error) {
	count, err := t.redis.Get(ctx, t.counterKey(subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// Unlock clears an active lock without touching the failure counter.
// Intended for admin-initiated manual unlocks.
func (t *Tracker) Unlock(ctx context.Context, subject string) error {
	if err := t.redis.Del(ctx, t.lockKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
