package oauth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultStateTTL = 10 * time.Minute

// StateEntry binds a pending OAuth flow to the user who initiated it
type StateEntry struct {
	UserID    uuid.UUID
	Provider  string
	ExpiresAt time.Time
}

// StateStore keeps short-lived CSRF state for in-flight OAuth flows.
// Entries are single-use: Consume removes the entry it returns.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]StateEntry
	ttl     time.Duration

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewStateStore creates a state store with the default 10-minute TTL
func NewStateStore() *StateStore {
	s := &StateStore{
		entries:     make(map[string]StateEntry),
		ttl:         defaultStateTTL,
		stopCleanup: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Save records a pending flow under the given state value
func (s *StateStore) Save(state string, userID uuid.UUID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = StateEntry{
		UserID:    userID,
		Provider:  provider,
		ExpiresAt: time.Now().Add(s.ttl),
	}
}

// Consume validates a state value and removes it. Returns false when the
// state is unknown or expired.
func (s *StateStore) Consume(state string) (StateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return StateEntry{}, false
	}
	delete(s.entries, state)

	if time.Now().After(entry.ExpiresAt) {
		return StateEntry{}, false
	}
	return entry, true
}

// Close stops the background cleanup goroutine
func (s *StateStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *StateStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for state, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, state)
		}
	}
}
