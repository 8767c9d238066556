package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/covid-county-charts/internal/covid"
)

var (
	// ErrNotFound is returned when no digest is available for a given county.
	ErrNotFound = errors.New("no digest for county")
)

var _ covid.DigestStore = (*MemoryStore)(nil)

// DigestHistory holds a time-ordered list of digests for a county.
type DigestHistory struct {
	Digests []covid.Digest
}

// MemoryStore is a concurrency-safe in-memory store of county digests.
type MemoryStore struct {
	mu sync.RWMutex

	// key: county name, value: history
	data map[string]*DigestHistory

	// retention configuration
	maxHistory int           // max number of digests per county
	maxAge     time.Duration // optional max age for digests
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*DigestHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveDigest appends a digest for its county and enforces retention.
func (s *MemoryStore) SaveDigest(d covid.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[d.County]
	if !ok {
		history = &DigestHistory{}
		s.data[d.County] = history
	}

	history.Digests = append(history.Digests, d)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Digests) > s.maxHistory {
		over := len(history.Digests) - s.maxHistory
		history.Digests = history.Digests[over:]
	}

	// Enforce retention by age; the newest digest is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Digests)-1; i++ {
			if !history.Digests[i].ComputedAt.Before(cutoff) {
				break
			}
		}
		history.Digests = history.Digests[i:]
	}
}

// Latest returns the most recent digest for a county.
func (s *MemoryStore) Latest(county string) (covid.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[county]
	if !ok || len(history.Digests) == 0 {
		return covid.Digest{}, ErrNotFound
	}
	return history.Digests[len(history.Digests)-1], nil
}

// History returns a copy of every retained digest for a county, oldest first.
func (s *MemoryStore) History(county string) ([]covid.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[county]
	if !ok || len(history.Digests) == 0 {
		return nil, ErrNotFound
	}
	out := make([]covid.Digest, len(history.Digests))
	copy(out, history.Digests)
	return out, nil
}
