package revocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "tg")
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRevokeTokenFirstWriterWins(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	won, err := store.RevokeToken(ctx, "jti-1", time.Hour, ReasonRotated)
	if err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if !won {
		t.Fatal("expected first revoke to win")
	}

	won, err = store.RevokeToken(ctx, "jti-1", time.Hour, ReasonLogout)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if won {
		t.Fatal("expected second revoke to lose")
	}

	// The original reason survives the losing write.
	revoked, reason, err := store.IsRevoked(ctx, "jti-1", "u1", time.Now())
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked || reason != ReasonRotated {
		t.Fatalf("revoked=%v reason=%q, want true/%q", revoked, reason, ReasonRotated)
	}
}

func TestRevokeTokenConcurrentSingleWinner(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	const workers = 16
	var (
		wg   sync.WaitGroup
		wins int64
		mu   sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.RevokeToken(ctx, "jti-race", time.Hour, ReasonRotated)
			if err != nil {
				t.Errorf("revoke: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestRevokeTokenExpiredTTLIsNoOpWin(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	won, err := store.RevokeToken(ctx, "jti-expired", 0, ReasonLogout)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !won {
		t.Fatal("expired token revoke should report a win")
	}

	revoked, _, err := store.IsRevoked(ctx, "jti-expired", "u1", time.Now())
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("no entry should be stored for an already-expired token")
	}
}

func TestTokenEntryExpiresWithTTL(t *testing.T) {
	store, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if _, err := store.RevokeToken(ctx, "jti-ttl", time.Minute, ReasonLogout); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	revoked, _, err := store.IsRevoked(ctx, "jti-ttl", "u1", time.Now())
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("entry should be evicted once the token lifetime has passed")
	}
}

func TestRevokeSubjectEpochMonotonic(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	epoch := time.Now()
	if err := store.RevokeSubject(ctx, "u1", epoch, time.Hour, ReasonAdmin); err != nil {
		t.Fatalf("revoke subject: %v", err)
	}

	// A stale epoch must not shrink the blast radius.
	if err := store.RevokeSubject(ctx, "u1", epoch.Add(-time.Hour), time.Hour, "stale"); err != nil {
		t.Fatalf("stale revoke subject: %v", err)
	}

	revoked, reason, err := store.IsRevoked(ctx, "jti-x", "u1", epoch.Add(-time.Minute))
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked || reason != ReasonAdmin {
		t.Fatalf("revoked=%v reason=%q, want true/%q", revoked, reason, ReasonAdmin)
	}

	// Tokens issued after the epoch stay valid.
	revoked, _, err = store.IsRevoked(ctx, "jti-y", "u1", epoch.Add(2*time.Second))
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("token issued after epoch must not be revoked")
	}
}

func TestTokenEntryTakesPrecedenceOverEpoch(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	epoch := time.Now()
	if err := store.RevokeSubject(ctx, "u1", epoch, time.Hour, ReasonAdmin); err != nil {
		t.Fatalf("revoke subject: %v", err)
	}
	if _, err := store.RevokeToken(ctx, "jti-1", time.Hour, ReasonRotated); err != nil {
		t.Fatalf("revoke token: %v", err)
	}

	revoked, reason, err := store.IsRevoked(ctx, "jti-1", "u1", epoch.Add(-time.Minute))
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked || reason != ReasonRotated {
		t.Fatalf("revoked=%v reason=%q, want true/%q", revoked, reason, ReasonRotated)
	}
}

func TestIsRevokedUnavailableBackend(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewRedisStore(rdb, "tg")
	mr.Close()

	if _, _, err := store.IsRevoked(context.Background(), "jti-1", "u1", time.Now()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := store.RevokeToken(context.Background(), "jti-1", time.Hour, ReasonLogout); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.RevokeSubject(context.Background(), "u1", time.Now(), time.Hour, ReasonAdmin); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPingReportsLatency(t *testing.T) {
	store, _, done := newRedisStoreTest(t)
	defer done()

	latency, err := store.Ping(context.Background())
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if latency < 0 {
		t.Fatalf("negative latency %s", latency)
	}
}
