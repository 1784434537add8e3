// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Page is the small set of page operations the session and the senders rely on.
// Every call is bounded by the context it receives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	// InsertText inserts text at the caret as a single input event.
	InsertText(ctx context.Context, text string) error
	// TypeRune sends one character as a key press.
	TypeRune(ctx context.Context, r rune) error
	// NewLine inserts a line break in the focused editor without submitting (Shift+Enter).
	NewLine(ctx context.Context) error
}

// cdpPage implements Page over a chromedp tab context.
type cdpPage struct {
	tab context.Context
}

var _ Page = (*cdpPage)(nil)

func (p *cdpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.tab, ctx)
	defer cancel()
	return opError(ctx, chromedp.Run(runCtx, actions...))
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *cdpPage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *cdpPage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *cdpPage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *cdpPage) InsertText(ctx context.Context, text string) error {
	return p.run(ctx, input.InsertText(text))
}

func (p *cdpPage) TypeRune(ctx context.Context, r rune) error {
	return p.run(ctx, chromedp.KeyEvent(string(r)))
}

func (p *cdpPage) NewLine(ctx context.Context) error {
	down := input.DispatchKeyEvent(input.KeyDown).
		WithModifiers(input.ModifierShift).
		WithKey("Enter").
		WithCode("Enter").
		WithWindowsVirtualKeyCode(13)
	up := input.DispatchKeyEvent(input.KeyUp).
		WithModifiers(input.ModifierShift).
		WithKey("Enter").
		WithCode("Enter").
		WithWindowsVirtualKeyCode(13)
	if err := p.run(ctx, down, up); err != nil {
		return fmt.Errorf("shift+enter: %w", err)
	}
	return nil
}
