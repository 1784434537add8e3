// internal/dispatch/options.go
package dispatch

import "time"

// Options is the value object controlling how a plan is built and paced.
// It is passed explicitly into every call; nothing in this package keeps global settings.
type Options struct {
	// RepeatCount is how many times each source message appears in the plan.
	RepeatCount int
	// Randomize shuffles the fully expanded plan once before sending begins.
	Randomize bool
	// DelayMin and DelayMax bound the uniformly sampled gap between attempts (inclusive).
	DelayMin time.Duration
	DelayMax time.Duration
	// TypingSimulation asks the sender to type characters one at a time instead of
	// inserting text atomically. TypingSpeed is the per-character pace.
	TypingSimulation bool
	TypingSpeed      time.Duration
	// SendTimeout bounds a single attempt. Zero means no bound beyond the sender's own.
	SendTimeout time.Duration
	// MaxPerMinute caps the attempt rate. Zero disables the cap.
	MaxPerMinute float64
}

// DefaultOptions mirrors the defaults of the configuration layer.
func DefaultOptions() Options {
	return Options{
		RepeatCount: 1,
		DelayMin:    time.Second,
		DelayMax:    time.Second,
		TypingSpeed: 50 * time.Millisecond,
		SendTimeout: time.Minute,
	}
}

// Validate rejects option sets that can never produce a valid run.
func (o Options) Validate() error {
	if o.RepeatCount <= 0 {
		return invalidf("repeat count must be positive, got %d", o.RepeatCount)
	}
	if err := validateDelays(o.DelayMin, o.DelayMax); err != nil {
		return err
	}
	if o.TypingSpeed < 0 {
		return invalidf("typing speed must not be negative, got %s", o.TypingSpeed)
	}
	if o.SendTimeout < 0 {
		return invalidf("send timeout must not be negative, got %s", o.SendTimeout)
	}
	if o.MaxPerMinute < 0 {
		return invalidf("max per minute must not be negative, got %v", o.MaxPerMinute)
	}
	return nil
}

func validateDelays(lo, hi time.Duration) error {
	if lo < 0 || hi < 0 {
		return invalidf("delay bounds must not be negative (min=%s, max=%s)", lo, hi)
	}
	if lo > hi {
		return invalidf("delay min %s exceeds delay max %s", lo, hi)
	}
	return nil
}
