// internal/browser/sender.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/humanoid"
)

// Typist types text into a keyboard at a given mean speed per character.
type Typist interface {
	Type(ctx context.Context, kb humanoid.Keyboard, text string, speed time.Duration) error
}

var _ Typist = (*humanoid.Typist)(nil)

// SenderOption customizes a sender built by NewSender.
type SenderOption func(*composer)

// WithReadiness makes the sender report readiness through fn, so runs are refused
// while the session is down.
func WithReadiness(fn func() bool) SenderOption {
	return func(c *composer) { c.ready = fn }
}

// WithLogger sets the logger used for warnings raised while building the sender.
func WithLogger(logger *zap.Logger) SenderOption {
	return func(c *composer) { c.logger = logger }
}

// NewSender picks the delivery variant for opts: a TypingSender when typing simulation
// is on and a typist is available, an InsertSender otherwise.
func NewSender(page Page, wa config.WhatsAppConfig, opts dispatch.Options, typist Typist, options ...SenderOption) dispatch.Sender {
	c := composer{
		page:           page,
		sel:            wa.Selectors,
		elementTimeout: config.Seconds(wa.ElementTimeout),
		logger:         zap.NewNop(),
	}
	for _, opt := range options {
		opt(&c)
	}
	if opts.TypingSimulation {
		if typist != nil {
			return &TypingSender{composer: c, typist: typist, speed: opts.TypingSpeed}
		}
		c.logger.Warn("Typing simulation is on but no typist is available; inserting text instead.")
	}
	return &InsertSender{composer: c}
}

// InsertSender writes each line of a message as one atomic text insertion, with
// Shift+Enter between lines, then clicks send.
type InsertSender struct {
	composer
}

func (s *InsertSender) Send(ctx context.Context, target dispatch.Target, message string) error {
	if err := s.prepare(ctx, target); err != nil {
		return err
	}
	for i, line := range strings.Split(message, "\n") {
		if i > 0 {
			if err := s.page.NewLine(ctx); err != nil {
				return s.classify(ctx, nil, "line break", err)
			}
		}
		if line == "" {
			continue
		}
		if err := s.page.InsertText(ctx, line); err != nil {
			return s.classify(ctx, nil, "insert text", err)
		}
	}
	return s.submit(ctx)
}

// TypingSender types the message one character at a time through a Typist.
type TypingSender struct {
	composer
	typist Typist
	speed  time.Duration
}

func (s *TypingSender) Send(ctx context.Context, target dispatch.Target, message string) error {
	if err := s.prepare(ctx, target); err != nil {
		return err
	}
	if err := s.typist.Type(ctx, s.page, message, s.speed); err != nil {
		return s.classify(ctx, nil, "typing", err)
	}
	return s.submit(ctx)
}

// composer holds what both senders share: the page, its selectors and the
// element wait used to tell a missing element from a slow send.
type composer struct {
	page           Page
	sel            config.SelectorConfig
	elementTimeout time.Duration
	ready          func() bool
	logger         *zap.Logger
}

// Ready implements dispatch.ReadinessChecker.
func (c *composer) Ready() bool {
	return c.page != nil && (c.ready == nil || c.ready())
}

// prepare checks that target is the open chat, then focuses the message box.
func (c *composer) prepare(ctx context.Context, target dispatch.Target) error {
	if c.sel.ChatHeader != "" && target.Title != "" {
		waitCtx, cancel := c.elementContext(ctx)
		title, err := c.page.Text(waitCtx, c.sel.ChatHeader)
		cancel()
		if err != nil {
			return c.classify(ctx, waitCtx, "chat header", err)
		}
		if title != target.Title {
			return dispatch.NewSendError(dispatch.FailureTransientState,
				fmt.Errorf("open chat is %q, expected %q", title, target.Title))
		}
	}
	return c.clickWhenVisible(ctx, c.sel.MessageBox, "message box")
}

func (c *composer) submit(ctx context.Context) error {
	return c.clickWhenVisible(ctx, c.sel.SendButton, "send button")
}

func (c *composer) clickWhenVisible(ctx context.Context, selector, what string) error {
	waitCtx, cancel := c.elementContext(ctx)
	defer cancel()
	if err := c.page.WaitVisible(waitCtx, selector); err != nil {
		return c.classify(ctx, waitCtx, what, err)
	}
	if err := c.page.Click(ctx, selector); err != nil {
		return c.classify(ctx, nil, what, err)
	}
	return nil
}

func (c *composer) elementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.elementTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.elementTimeout)
}

// classify maps a page failure to a failure kind. The overall send deadline wins over
// the element wait, which wins over everything else.
func (c *composer) classify(ctx, waitCtx context.Context, what string, err error) error {
	cause := fmt.Errorf("%s: %w", what, err)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return dispatch.NewSendError(dispatch.FailureTimeout, cause)
	case waitCtx != nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		return dispatch.NewSendError(dispatch.FailureElementNotFound, cause)
	default:
		return dispatch.NewSendError(dispatch.FailureTransientState, cause)
	}
}
