// internal/browser/page_fake_test.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

// fakePage records every call and lets tests script failures per selector.
type fakePage struct {
	mu  sync.Mutex
	ops []string

	texts      map[string]string
	hidden     map[string]bool // WaitVisible blocks until ctx is done
	clickErr   error
	insertErr  error
	navigateFn func(ctx context.Context) error
}

func newFakePage() *fakePage {
	return &fakePage{texts: map[string]string{}, hidden: map[string]bool{}}
}

func (p *fakePage) record(op string) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *fakePage) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate " + url)
	if p.navigateFn != nil {
		return p.navigateFn(ctx)
	}
	return nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	p.record("wait " + selector)
	if p.hidden[selector] {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.record("click " + selector)
	return p.clickErr
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	p.record("text " + selector)
	if p.hidden[selector] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.texts[selector], nil
}

func (p *fakePage) InsertText(ctx context.Context, text string) error {
	p.record(fmt.Sprintf("insert %q", text))
	return p.insertErr
}

func (p *fakePage) TypeRune(ctx context.Context, r rune) error {
	p.record(fmt.Sprintf("key %q", r))
	return nil
}

func (p *fakePage) NewLine(ctx context.Context) error {
	p.record("shift+enter")
	return nil
}

func testWhatsApp() config.WhatsAppConfig {
	return config.WhatsAppConfig{
		URL:            "https://chat.example/",
		LoginTimeout:   1,
		ElementTimeout: 1,
		Selectors: config.SelectorConfig{
			SearchBox:  "#search",
			ChatHeader: "#header",
			MessageBox: "#box",
			SendButton: "#send",
		},
	}
}
