// internal/dispatch/plan.go
package dispatch

import (
	"math/rand"
	"sync"
	"time"
)

// Planner turns a source message list into the concrete sequence a run will attempt.
// It is safe for concurrent use; the random source is guarded.
type Planner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlanner creates a Planner. A nil rng gets a time-seeded source.
func NewPlanner(rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{rng: rng}
}

// Build expands every source message RepeatCount times and, if Randomize is set,
// permutes the whole expanded sequence. Repeats are flattened before the shuffle,
// so repeats of different originals end up interleaved.
//
// The source slice is never modified. An empty source yields an empty plan.
func (p *Planner) Build(source []string, opts Options) ([]string, error) {
	if opts.RepeatCount <= 0 {
		return nil, invalidf("repeat count must be positive, got %d", opts.RepeatCount)
	}

	plan := make([]string, 0, len(source)*opts.RepeatCount)
	for _, msg := range source {
		for r := 0; r < opts.RepeatCount; r++ {
			plan = append(plan, msg)
		}
	}

	if opts.Randomize && len(plan) > 1 {
		p.mu.Lock()
		p.rng.Shuffle(len(plan), func(i, j int) {
			plan[i], plan[j] = plan[j], plan[i]
		})
		p.mu.Unlock()
	}
	return plan, nil
}

var defaultPlanner = NewPlanner(nil)

// BuildPlan is Build on a package-level, time-seeded planner.
func BuildPlan(source []string, opts Options) ([]string, error) {
	return defaultPlanner.Build(source, opts)
}
