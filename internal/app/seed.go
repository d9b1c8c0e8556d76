package app

import (
	"math/rand"
	"sync"
	"time"
)

// seedSource hands out exam/room seeds. Each seed fully determines one quiz
// derivation; the source itself is only ever used to draw seeds, never for
// shuffling, so it can be shared behind a mutex without affecting
// reproducibility.
type seedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSeedSource() *seedSource {
	return &seedSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns a seed in [1, 1000000].
func (s *seedSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63n(1_000_000) + 1
}

// Intn mirrors rand.Intn behind the lock; used for room code generation.
func (s *seedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
