package revocation

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type tokenEntry struct {
	expiresAt time.Time
	reason    string
}

type subjectEntry struct {
	epoch     time.Time
	expiresAt time.Time
	reason    string
}

// MemoryStore is an in-process revocation [Store] for deployments that embed
// the engine without Redis. Entries are evicted by a background sweep
// goroutine and opportunistically on lookup, so memory stays bounded by the
// number of unexpired revocations.
//
// All methods are safe for concurrent use. Call [MemoryStore.Close] when the
// store is no longer needed to stop the sweeper.
type MemoryStore struct {
	mu       sync.Mutex
	tokens   map[string]tokenEntry
	subjects map[string]subjectEntry

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	sweepInterval time.Duration
	now           func() time.Time
}

// WithSweepInterval overrides the background eviction interval.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		if interval > 0 {
			o.sweepInterval = interval
		}
	}
}

// WithNowFunc overrides the store's time source. Intended for tests.
func WithNowFunc(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewMemoryStore creates a [MemoryStore] and starts its sweep goroutine.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	options := memoryOptions{
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := &MemoryStore{
		tokens:   make(map[string]tokenEntry),
		subjects: make(map[string]subjectEntry),
		now:      options.now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepLoop(options.sweepInterval)
	return s
}

// RevokeToken marks a single jti as revoked for ttl. It reports true when
// this call created the entry, false when the jti was already present.
func (s *MemoryStore) RevokeToken(_ context.Context, jti string, ttl time.Duration, reason string) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	if reason == "" {
		reason = ReasonAdmin
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.tokens[jti]; ok && entry.expiresAt.After(now) {
		return false, nil
	}
	s.tokens[jti] = tokenEntry{expiresAt: now.Add(ttl), reason: reason}
	return true, nil
}

// RevokeSubject records a revocation epoch for subject. The epoch is
// monotonic: a since older than the stored epoch is ignored.
func (s *MemoryStore) RevokeSubject(_ context.Context, subject string, since time.Time, ttl time.Duration, reason string) error {
	if ttl <= 0 {
		return nil
	}
	if reason == "" {
		reason = ReasonAdmin
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.subjects[subject]
	if ok && entry.expiresAt.After(now) && !since.After(entry.epoch) {
		entry.expiresAt = now.Add(ttl)
		s.subjects[subject] = entry
		return nil
	}
	s.subjects[subject] = subjectEntry{epoch: since, expiresAt: now.Add(ttl), reason: reason}
	return nil
}

// IsRevoked reports whether the token identified by jti/subject/issuedAt is
// revoked, and the recorded reason when it is. Expired entries encountered
// on the way are pruned.
func (s *MemoryStore) IsRevoked(_ context.Context, jti, subject string, issuedAt time.Time) (bool, string, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.tokens[jti]; ok {
		if entry.expiresAt.After(now) {
			return true, entry.reason, nil
		}
		delete(s.tokens, jti)
	}

	if entry, ok := s.subjects[subject]; ok {
		if !entry.expiresAt.After(now) {
			delete(s.subjects, subject)
		} else if issuedAt.Unix() <= entry.epoch.Unix() {
			return true, entry.reason, nil
		}
	}

	return false, "", nil
}

// Len returns the number of live entries. Intended for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens) + len(s.subjects)
}

// Sweep removes expired entries immediately.
func (s *MemoryStore) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.tokens {
		if !entry.expiresAt.After(now) {
			delete(s.tokens, jti)
		}
	}
	for subject, entry := range s.subjects {
		if !entry.expiresAt.After(now) {
			delete(s.subjects, subject)
		}
	}
}

// Close stops the sweep goroutine. Safe to call once.
func (s *MemoryStore) Close() {
	close(s.stop)
	<-s.done
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
