// internal/dispatch/pacing.go
package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

// PacingPolicy computes the gap to wait between two consecutive attempts.
type PacingPolicy interface {
	NextDelay(opts Options) (time.Duration, error)
}

// UniformPacing draws each gap independently and uniformly from [DelayMin, DelayMax].
// It keeps no memory of earlier draws.
type UniformPacing struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewUniformPacing creates a policy. A nil rng gets a time-seeded source.
func NewUniformPacing(rng *rand.Rand) *UniformPacing {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &UniformPacing{rng: rng}
}

// NextDelay returns DelayMin when both bounds are equal, otherwise a uniform sample.
func (u *UniformPacing) NextDelay(opts Options) (time.Duration, error) {
	if err := validateDelays(opts.DelayMin, opts.DelayMax); err != nil {
		return 0, err
	}
	span := opts.DelayMax - opts.DelayMin
	if span == 0 {
		return opts.DelayMin, nil
	}

	u.mu.Lock()
	offset := time.Duration(u.rng.Int63n(int64(span) + 1))
	u.mu.Unlock()
	return opts.DelayMin + offset, nil
}
