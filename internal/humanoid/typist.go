// internal/humanoid/typist.go
package humanoid

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Keyboard is the input surface a Typist drives. NewLine must insert a line break
// inside the current message without submitting it.
type Keyboard interface {
	TypeRune(ctx context.Context, r rune) error
	NewLine(ctx context.Context) error
}

// commonNgrams are typed faster than isolated letters.
var commonNgrams = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true, "re": true,
	"es": true, "on": true, "st": true, "nt": true,
	"the": true, "and": true, "ing": true, "ion": true, "tio": true,
}

const (
	// DefaultJitter is the relative standard deviation of the per-key delay.
	DefaultJitter = 0.35
	// minDelayFactor bounds how far below the mean speed a single key may go.
	minDelayFactor = 0.3
)

// Typist types text one character at a time with a human-like rhythm: a mean delay per
// character, random jitter around it, faster common letter pairs and a short hesitation
// after word boundaries.
type Typist struct {
	mu     sync.Mutex
	rng    *rand.Rand
	jitter float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Typist.
type Option func(*Typist)

// WithRand sets the random source, for reproducible rhythms.
func WithRand(rng *rand.Rand) Option {
	return func(t *Typist) { t.rng = rng }
}

// WithJitter sets the relative standard deviation of the per-key delay. Zero disables it.
func WithJitter(j float64) Option {
	return func(t *Typist) { t.jitter = math.Max(0, j) }
}

// NewTypist creates a Typist.
func NewTypist(opts ...Option) *Typist {
	t := &Typist{jitter: DefaultJitter, sleep: sleepContext}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return t
}

// Type sends text to kb. speed is the mean delay per character; "\n" becomes kb.NewLine.
// It stops at the first keyboard error or when ctx is done.
func (t *Typist) Type(ctx context.Context, kb Keyboard, text string, speed time.Duration) error {
	runes := []rune(text)
	for i, r := range runes {
		if i > 0 {
			if err := t.sleep(ctx, t.keyDelay(speed, runes, i)); err != nil {
				return err
			}
		}

		var err error
		if r == '\n' {
			err = kb.NewLine(ctx)
		} else {
			err = kb.TypeRune(ctx, r)
		}
		if err != nil {
			return fmt.Errorf("humanoid: failed to type character %d of %d: %w", i+1, len(runes), err)
		}
	}
	return nil
}

// keyDelay computes the pause before typing runes[i].
func (t *Typist) keyDelay(speed time.Duration, runes []rune, i int) time.Duration {
	if speed <= 0 {
		return 0
	}
	mean := float64(speed) * rhythmFactor(runes, i)

	t.mu.Lock()
	n := t.rng.NormFloat64()
	t.mu.Unlock()

	d := mean * (1 + n*t.jitter)
	return time.Duration(math.Max(d, mean*minDelayFactor))
}

// rhythmFactor scales the mean delay for the key at runes[i].
func rhythmFactor(runes []rune, i int) float64 {
	prev := runes[i-1]
	switch {
	case prev == ' ' || prev == '\n':
		return 1.6
	case strings.ContainsRune(".,!?;:", prev):
		return 2.0
	}
	if i >= 2 && commonNgrams[strings.ToLower(string(runes[i-2:i+1]))] {
		return 0.55
	}
	if commonNgrams[strings.ToLower(string(runes[i-1:i+1]))] {
		return 0.7
	}
	return 1.0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
