// Package revocation holds the in-memory session token blacklist. Tokens
// land here on logout, password change, and refresh; every gated request
// checks membership. Entries carry the remaining lifetime of the token they
// invalidate, so the store can never outgrow the set of live tokens.
package revocation

import (
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

// Store is a concurrency-safe jti -> expiry map. Expired entries are
// dropped lazily on read and reaped by a background sweep, whichever comes
// first; either way IsRevoked never reports true past the token's natural
// expiry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	sweepInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
	startOnce     sync.Once
	stopOnce      sync.Once

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates a revocation store. A non-positive sweepInterval falls
// back to one minute.
func NewStore(sweepInterval time.Duration) *Store {
	return NewStoreWithClock(sweepInterval, time.Now)
}

// NewStoreWithClock is NewStore with an injected time source, so tests can
// walk entries up to and past their deadlines.
func NewStoreWithClock(sweepInterval time.Duration, now func() time.Time) *Store {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	if now == nil {
		now = time.Now
	}

	return &Store{
		entries:       make(map[string]time.Time),
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		now:           now,
	}
}

// Revoke blacklists a token id for the given remaining lifetime. Callers
// pass exactly `expiresAt - now`, never the full configured token lifetime.
// A non-positive ttl means the token already expired and is not stored.
func (s *Store) Revoke(jti string, ttl time.Duration) {
	if ttl <= 0 || jti == "" {
		return
	}

	deadline := s.now().Add(ttl)

	s.mu.Lock()
	s.entries[jti] = deadline
	s.mu.Unlock()
}

// IsRevoked reports whether an unexpired revocation entry exists for jti.
func (s *Store) IsRevoked(jti string) bool {
	s.mu.RLock()
	deadline, ok := s.entries[jti]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	if s.now().After(deadline) {
		// Lazy expiry: drop the stale entry so the map stays bounded even
		// if the sweeper is not running.
		s.mu.Lock()
		if d, still := s.entries[jti]; still && s.now().After(d) {
			delete(s.entries, jti)
		}
		s.mu.Unlock()
		return false
	}

	return true
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Start launches the background sweep. Safe to call once; Stop shuts it down.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Stop terminates the background sweep and waits for it to finish.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *Store) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep removes every expired entry.
func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, deadline := range s.entries {
		if now.After(deadline) {
			delete(s.entries, jti)
		}
	}
}
