// internal/dispatch/engine.go
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Request bundles everything a single run needs. Plan is read as a snapshot;
// later changes by the caller do not affect a run in progress.
type Request struct {
	Plan    []string
	Target  Target
	Sender  Sender
	Sink    ProgressSink
	Options Options
}

// Engine drives plans into a Sender one message at a time.
//
// Cancellation is cooperative: cancelling the context passed to Run guarantees that no
// new attempt begins and interrupts the inter-message delay, but an attempt already in
// flight runs to completion on a detached context and its result is recorded.
type Engine struct {
	logger *zap.Logger
	pacing PacingPolicy
	now    func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithPacing replaces the default uniform pacing policy.
func WithPacing(p PacingPolicy) EngineOption {
	return func(e *Engine) { e.pacing = p }
}

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger: logger.Named("dispatch"),
		pacing: NewUniformPacing(nil),
		now:    time.Now,
		active: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Active reports whether a run is in progress against the target.
func (e *Engine) Active(target Target) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[target.ID]
	return ok
}

// Run executes req.Plan against req.Target. Configuration and session problems are
// returned before any attempt; per-message failures are counted and never abort the run.
func (e *Engine) Run(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{
		RunID:     uuid.NewString(),
		Target:    req.Target,
		Total:     len(req.Plan),
		StartedAt: e.now(),
	}
	sink := req.Sink
	if sink == nil {
		sink = nopSink{}
	}

	// 1. Fail fast on anything that makes the run impossible. An empty plan needs
	// neither a session nor a target.
	if err := req.Options.Validate(); err != nil {
		summary.Reason = ReasonRejected
		summary.FinishedAt = e.now()
		return summary, err
	}
	if len(req.Plan) == 0 {
		summary.Reason = ReasonNothingToSend
		summary.FinishedAt = e.now()
		e.logger.Info("Nothing to send.", zap.String("run_id", summary.RunID))
		sink.Notify(Event{Kind: EventNothingToSend, RunID: summary.RunID, Target: req.Target, Summary: summary})
		return summary, nil
	}
	if err := e.preflight(req); err != nil {
		summary.Reason = ReasonRejected
		summary.FinishedAt = e.now()
		return summary, err
	}
	if !e.acquire(req.Target) {
		summary.Reason = ReasonRejected
		summary.FinishedAt = e.now()
		return summary, fmt.Errorf("target %q: %w", req.Target.Title, ErrRunInProgress)
	}
	defer e.release(req.Target)

	log := e.logger.With(
		zap.String("run_id", summary.RunID),
		zap.String("target", req.Target.Title),
		zap.Int("total", summary.Total),
	)

	plan := append([]string(nil), req.Plan...)
	var limiter *rate.Limiter
	if req.Options.MaxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(req.Options.MaxPerMinute/60.0), 1)
	}

	log.Info("Dispatch run started.", zap.Bool("randomized", req.Options.Randomize))
	sink.Notify(Event{Kind: EventStarted, RunID: summary.RunID, Target: req.Target, Total: summary.Total})

	// 2. Sequential loop. The cursor only moves forward.
	stopped := false
	for i, msg := range plan {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				stopped = true
				break
			}
		}

		err := e.attempt(ctx, req, msg)
		summary.Attempted++
		if err != nil {
			summary.Failed++
			log.Warn("Message send failed.", zap.Int("index", i+1), zap.Error(err))
		} else {
			summary.Succeeded++
			log.Debug("Message sent.", zap.Int("index", i+1))
		}
		sink.Notify(Event{
			Kind:    EventAttempt,
			RunID:   summary.RunID,
			Target:  req.Target,
			Current: i + 1,
			Total:   summary.Total,
			Message: msg,
			Err:     err,
		})

		if i == len(plan)-1 {
			break
		}
		if !e.pause(ctx, req.Options, log) {
			stopped = true
			break
		}
	}

	// 3. Terminal status.
	summary.FinishedAt = e.now()
	kind := EventCompleted
	summary.Reason = ReasonCompleted
	if stopped {
		kind = EventStopped
		summary.Reason = ReasonStopped
	}
	log.Info("Dispatch run finished.",
		zap.String("reason", string(summary.Reason)),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	sink.Notify(Event{Kind: kind, RunID: summary.RunID, Target: req.Target, Total: summary.Total, Summary: summary})
	return summary, nil
}

func (e *Engine) preflight(req Request) error {
	if req.Target.IsZero() {
		return fmt.Errorf("%w: no target selected", ErrSessionUnavailable)
	}
	if req.Sender == nil {
		return fmt.Errorf("%w: no sender bound", ErrSessionUnavailable)
	}
	if rc, ok := req.Sender.(ReadinessChecker); ok && !rc.Ready() {
		return fmt.Errorf("%w: session is not ready", ErrSessionUnavailable)
	}
	return nil
}

// attempt performs one send on a context detached from the stop signal so that
// a stop request never tears down an in-flight UI interaction.
func (e *Engine) attempt(ctx context.Context, req Request, msg string) (err error) {
	sendCtx := context.WithoutCancel(ctx)
	if req.Options.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, req.Options.SendTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = NewSendError(FailureUnknown, fmt.Errorf("sender panicked: %v", r))
		}
	}()

	if sendErr := req.Sender.Send(sendCtx, req.Target, msg); sendErr != nil {
		return AsSendError(sendErr)
	}
	return nil
}

// pause waits for the next pacing gap. It returns false if the run was stopped meanwhile.
func (e *Engine) pause(ctx context.Context, opts Options, log *zap.Logger) bool {
	d, err := e.pacing.NextDelay(opts)
	if err != nil {
		// Options were validated up front, so this only happens with a custom policy.
		log.Error("Pacing policy failed, continuing without delay.", zap.Error(err))
		d = 0
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) acquire(t Target) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.active[t.ID]; busy {
		return false
	}
	e.active[t.ID] = struct{}{}
	return true
}

func (e *Engine) release(t Target) {
	e.mu.Lock()
	delete(e.active, t.ID)
	e.mu.Unlock()
}
