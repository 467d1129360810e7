package conversation

import (
	"sync"
	"time"

	"TickerSage/internal/model"

	log "github.com/sirupsen/logrus"
)

// Store keeps a bounded, per-user history of recent exchanges.
// State is in-memory only and intentionally does not survive restarts.
type Store struct {
	mu          sync.Mutex
	records     map[string]*record
	maxHistory  int
	idleTimeout time.Duration
}

type record struct {
	history      []model.Exchange
	lastActivity time.Time
}

// NewStore creates a store that keeps at most maxHistory exchanges per user
// and drops a user's record once it has been idle longer than idleTimeout.
func NewStore(maxHistory int, idleTimeout time.Duration) *Store {
	return &Store{
		records:     make(map[string]*record),
		maxHistory:  maxHistory,
		idleTimeout: idleTimeout,
	}
}

// Record appends an exchange to the user's history, creating the record if
// needed. The oldest exchange is evicted once the bound is exceeded.
func (s *Store) Record(userID string, ex model.Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		r = &record{}
		s.records[userID] = r
	}
	r.history = append(r.history, ex)
	if len(r.history) > s.maxHistory {
		r.history = r.history[len(r.history)-s.maxHistory:]
	}
	r.lastActivity = ex.Timestamp
	if r.lastActivity.IsZero() {
		r.lastActivity = time.Now()
	}
}

// History returns a copy of the user's current history, oldest first.
func (s *Store) History(userID string) []model.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return nil
	}
	out := make([]model.Exchange, len(r.history))
	copy(out, r.history)
	return out
}

// Sweep removes every record idle longer than the timeout and returns the
// number of records removed. Called periodically so memory is reclaimed even
// with no further traffic.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, r := range s.records {
		if now.Sub(r.lastActivity) > s.idleTimeout {
			delete(s.records, userID)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("conversation sweep: removed %d idle record(s), %d active", removed, len(s.records))
	}
	return removed
}

// ActiveUsers returns the number of users with live conversation state.
func (s *Store) ActiveUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Shutdown discards all conversation state.
func (s *Store) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*record)
}
