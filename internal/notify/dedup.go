package notify

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Seen is a best-effort duplicate detector over envelope ids, backed by a
// bloom filter. It trades a small false-positive rate (a fresh envelope
// mistaken for a duplicate and skipped) for constant memory under an
// unbounded id stream; the rate below keeps that practically negligible for
// the filter's lifetime. State is per-process and lost on restart, which is
// fine: the input is at-least-once anyway.
type Seen struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewSeen sizes the filter for the expected number of envelope ids.
func NewSeen(capacity uint) *Seen {
	if capacity == 0 {
		capacity = 1_000_000
	}
	return &Seen{
		filter: bloom.NewWithEstimates(capacity, 1e-6),
	}
}

// Has reports whether the id has been recorded.
func (s *Seen) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestString(id)
}

// Add records the id.
func (s *Seen) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.AddString(id)
}
