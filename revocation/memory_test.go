package revocation

import (
	"context"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemoryStoreTest(t *testing.T) (*MemoryStore, *manualClock) {
	t.Helper()
	clock := newManualClock()
	store := NewMemoryStore(WithNowFunc(clock.Now), WithSweepInterval(time.Hour))
	t.Cleanup(store.Close)
	return store, clock
}

func TestMemoryRevokeTokenFirstWriterWins(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
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

	revoked, reason, err := store.IsRevoked(ctx, "jti-1", "u1", store.now())
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked || reason != ReasonRotated {
		t.Fatalf("revoked=%v reason=%q, want true/%q", revoked, reason, ReasonRotated)
	}
}

func TestMemoryConcurrentRevokeSingleWinner(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
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

func TestMemoryEntriesEvictedAfterExpiry(t *testing.T) {
	store, clock := newMemoryStoreTest(t)
	ctx := context.Background()

	if _, err := store.RevokeToken(ctx, "jti-1", time.Minute, ReasonLogout); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	if err := store.RevokeSubject(ctx, "u1", clock.Now(), time.Minute, ReasonAdmin); err != nil {
		t.Fatalf("revoke subject: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 live entries, got %d", store.Len())
	}

	clock.Advance(2 * time.Minute)
	store.Sweep()

	if store.Len() != 0 {
		t.Fatalf("expected sweep to evict all entries, got %d", store.Len())
	}

	revoked, _, err := store.IsRevoked(ctx, "jti-1", "u1", clock.Now())
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("expired entries must not report revoked")
	}

	// An expired jti can be revoked again, by a new winner.
	won, err := store.RevokeToken(ctx, "jti-1", time.Minute, ReasonLogout)
	if err != nil {
		t.Fatalf("re-revoke: %v", err)
	}
	if !won {
		t.Fatal("expected revoke of an expired jti to win")
	}
}

func TestMemoryLookupPrunesExpiredEntries(t *testing.T) {
	store, clock := newMemoryStoreTest(t)
	ctx := context.Background()

	if _, err := store.RevokeToken(ctx, "jti-1", time.Minute, ReasonLogout); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if _, _, err := store.IsRevoked(ctx, "jti-1", "u1", clock.Now()); err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected lookup to prune the expired entry, got %d live", store.Len())
	}
}

func TestMemorySubjectEpochMonotonic(t *testing.T) {
	store, clock := newMemoryStoreTest(t)
	ctx := context.Background()

	epoch := clock.Now()
	if err := store.RevokeSubject(ctx, "u1", epoch, time.Hour, ReasonAdmin); err != nil {
		t.Fatalf("revoke subject: %v", err)
	}
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

	revoked, _, err = store.IsRevoked(ctx, "jti-y", "u1", epoch.Add(2*time.Second))
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatal("token issued after epoch must not be revoked")
	}
}
