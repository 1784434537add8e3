// File: internal/service/controller.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/history"
	"github.com/xkilldash9x/courier-cli/internal/messages"
	"github.com/xkilldash9x/courier-cli/internal/presets"
)

// historyTimeout bounds writing a summary after a run.
const historyTimeout = 5 * time.Second

// ChatSession is the browser session as the controller sees it.
type ChatSession interface {
	Login(ctx context.Context) error
	CurrentChat(ctx context.Context) (dispatch.Target, error)
	Sender(opts dispatch.Options, typist browser.Typist) (dispatch.Sender, error)
	Ready() bool
	Close() error
}

// Deps are the collaborators of a Controller. History and Typist are optional.
type Deps struct {
	Session ChatSession
	Engine  *dispatch.Engine
	Queue   *messages.Queue
	Presets *presets.Store
	History history.Recorder
	Typist  browser.Typist
	// Options returns the dispatch options in effect; it is read at the start of every run.
	Options func() dispatch.Options
	Logger  *zap.Logger
}

// Controller is the single owner of the session, the selected chat and the active run.
// The menus and the send command talk only to it.
type Controller struct {
	deps   Deps
	logger *zap.Logger

	mu     sync.Mutex
	target dispatch.Target
	run    *RunHandle
}

// NewController creates a Controller.
func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = dispatch.NewEngine(deps.Logger)
	}
	if deps.Queue == nil {
		deps.Queue = messages.NewQueue()
	}
	if deps.Options == nil {
		deps.Options = dispatch.DefaultOptions
	}
	return &Controller{deps: deps, logger: deps.Logger.Named("controller")}
}

// Queue returns the staged messages.
func (c *Controller) Queue() *messages.Queue { return c.deps.Queue }

// Presets returns the preset store, or nil when none is configured.
func (c *Controller) Presets() *presets.Store { return c.deps.Presets }

// Options returns the dispatch options currently in effect.
func (c *Controller) Options() dispatch.Options { return c.deps.Options() }

// Login opens the browser and waits for the user to be logged in.
func (c *Controller) Login(ctx context.Context) error {
	return c.deps.Session.Login(ctx)
}

// LoggedIn reports whether the session is ready.
func (c *Controller) LoggedIn() bool {
	return c.deps.Session.Ready()
}

// SelectChat binds the conversation currently open in the browser as the target.
func (c *Controller) SelectChat(ctx context.Context) (dispatch.Target, error) {
	if c.Running() {
		return dispatch.Target{}, dispatch.ErrRunInProgress
	}
	target, err := c.deps.Session.CurrentChat(ctx)
	if err != nil {
		return dispatch.Target{}, err
	}
	c.mu.Lock()
	c.target = target
	c.mu.Unlock()
	c.logger.Info("Chat selected.", zap.String("target", target.Title))
	return target, nil
}

// ClearChat forgets the selected chat. It has no effect on an active run.
func (c *Controller) ClearChat() {
	c.mu.Lock()
	c.target = dispatch.Target{}
	c.mu.Unlock()
}

// Target returns the selected chat.
func (c *Controller) Target() dispatch.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil && !c.run.finished()
}

// SendTest delivers one message once and returns its delivery error, if any.
func (c *Controller) SendTest(ctx context.Context, msg string) error {
	opts := c.deps.Options()
	opts.RepeatCount = 1
	opts.Randomize = false

	var sendErr error
	sink := dispatch.SinkFunc(func(ev dispatch.Event) {
		if ev.Kind == dispatch.EventAttempt {
			sendErr = ev.Err
		}
	})
	h, err := c.start(ctx, []string{msg}, opts, sink)
	if err != nil {
		return err
	}
	if _, err := h.Wait(); err != nil {
		return err
	}
	return sendErr
}

// SendQueue starts a run over a snapshot of the queue with the current options.
func (c *Controller) SendQueue(ctx context.Context, sink dispatch.ProgressSink) (*RunHandle, error) {
	return c.StartRun(ctx, c.deps.Queue.Snapshot(), c.deps.Options(), sink)
}

// SendRepeated starts a run that sends msg n times in a row.
func (c *Controller) SendRepeated(ctx context.Context, msg string, n int, sink dispatch.ProgressSink) (*RunHandle, error) {
	opts := c.deps.Options()
	opts.RepeatCount = n
	opts.Randomize = false
	return c.StartRun(ctx, []string{msg}, opts, sink)
}

// StartRun builds the plan for msgs and runs it in the background. Stopping the
// returned handle, or cancelling ctx, stops the run cooperatively.
func (c *Controller) StartRun(ctx context.Context, msgs []string, opts dispatch.Options, sink dispatch.ProgressSink) (*RunHandle, error) {
	return c.start(ctx, msgs, opts, sink)
}

func (c *Controller) start(ctx context.Context, msgs []string, opts dispatch.Options, sink dispatch.ProgressSink) (*RunHandle, error) {
	// 1. Build everything that can fail before claiming the run slot.
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	plan, err := dispatch.BuildPlan(msgs, opts)
	if err != nil {
		return nil, err
	}
	// An empty plan is reported by the engine as nothing to send, chat or not.
	target := c.Target()
	var sender dispatch.Sender
	if len(plan) > 0 {
		if target.IsZero() {
			return nil, fmt.Errorf("%w: select a chat first", dispatch.ErrSessionUnavailable)
		}
		if sender, err = c.deps.Session.Sender(opts, c.deps.Typist); err != nil {
			return nil, err
		}
	}

	// 2. One run at a time.
	c.mu.Lock()
	if c.run != nil && !c.run.finished() {
		c.mu.Unlock()
		return nil, dispatch.ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	h := &RunHandle{cancel: cancel, done: make(chan struct{})}
	c.run = h
	c.mu.Unlock()

	// 3. The engine runs on its own goroutine; the handle reports the result.
	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = c.deps.Engine.Run(runCtx, dispatch.Request{
			Plan:    plan,
			Target:  target,
			Sender:  sender,
			Sink:    sink,
			Options: opts,
		})
		if h.err == nil {
			c.record(h.summary)
		}
	}()
	return h, nil
}

func (c *Controller) record(sum dispatch.Summary) {
	if c.deps.History == nil || sum.Reason == dispatch.ReasonNothingToSend {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := c.deps.History.Record(ctx, sum); err != nil {
		c.logger.Warn("Could not record run history.", zap.String("run_id", sum.RunID), zap.Error(err))
	}
}

// Stop asks the active run, if any, to stop. It does not wait.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.run
	c.mu.Unlock()
	if h != nil {
		h.Stop()
	}
}

// Shutdown stops any run, waits for it to settle and closes the browser.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	h := c.run
	c.mu.Unlock()
	if h != nil {
		h.Stop()
		_, _ = h.Wait()
	}
	if err := c.deps.Session.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// RunHandle tracks a run started by the controller.
type RunHandle struct {
	cancel context.CancelFunc
	done   chan struct{}

	summary dispatch.Summary
	err     error
}

// Stop requests a cooperative stop: no new attempt starts and the current delay ends.
func (h *RunHandle) Stop() { h.cancel() }

// Done is closed when the run has ended.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run ends and returns its summary.
func (h *RunHandle) Wait() (dispatch.Summary, error) {
	<-h.done
	return h.summary, h.err
}

func (h *RunHandle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
