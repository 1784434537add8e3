// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

// ErrNoChatOpen is returned by CurrentChat when no conversation is selected in the page.
var ErrNoChatOpen = errors.New("no chat is open")

// launchFunc starts a browser and returns its page and a func that shuts it down.
type launchFunc func(ctx context.Context) (Page, func(), error)

// Session is one browser instance logged in to the web messaging client.
type Session struct {
	browser  config.BrowserConfig
	whatsapp config.WhatsAppConfig
	logger   *zap.Logger
	launch   launchFunc

	// loginMu serializes logins; mu guards the fields below and is never held
	// across a page operation.
	loginMu  sync.Mutex
	mu       sync.Mutex
	page     Page
	shutdown func()
	ready    bool
}

// NewSession creates a Session. Nothing is started until Launch or Login.
func NewSession(cfg *config.Config, logger *zap.Logger) *Session {
	s := newSession(cfg, logger, nil)
	s.launch = s.launchChrome
	return s
}

func newSession(cfg *config.Config, logger *zap.Logger, launch launchFunc) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		browser:  cfg.Browser,
		whatsapp: cfg.WhatsApp,
		logger:   logger.Named("browser"),
		launch:   launch,
	}
}

// Launch starts the browser if it is not running yet.
func (s *Session) Launch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launchLocked(ctx)
}

func (s *Session) launchLocked(ctx context.Context) error {
	if s.page != nil {
		return nil
	}
	page, shutdown, err := s.launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to launch browser: %v", dispatch.ErrSessionUnavailable, err)
	}
	s.page, s.shutdown = page, shutdown
	s.logger.Info("Browser launched.", zap.Bool("headless", s.browser.Headless))
	return nil
}

func (s *Session) launchChrome(ctx context.Context) (Page, func(), error) {
	// The browser outlives the call that starts it, so it hangs off Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(s.browser)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.logger.Sugar().Debugf))
	shutdown := func() {
		tabCancel()
		allocCancel()
	}

	// chromedp starts the process on the context of the first Run, so that Run gets
	// the tab context itself.
	if err := startTab(ctx, tabCancel, func() error { return chromedp.Run(tabCtx) }); err != nil {
		shutdown()
		return nil, nil, opError(ctx, err)
	}
	return &cdpPage{tab: tabCtx}, shutdown, nil
}

// startTab runs start, cancelling the tab if ctx ends before start returns. Once
// start has returned, ctx no longer affects the tab.
func startTab(ctx context.Context, tabCancel context.CancelFunc, start func() error) error {
	stop := context.AfterFunc(ctx, tabCancel)
	err := start()
	if !stop() {
		return ctx.Err()
	}
	return err
}

// Login opens the web client and waits up to the login timeout for the chat list,
// which appears once the QR code has been scanned or a stored profile is accepted.
func (s *Session) Login(ctx context.Context) error {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	// 1. Launch and take the page; the wait below runs without s.mu.
	s.mu.Lock()
	if err := s.launchLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	page := s.page
	s.ready = false
	s.mu.Unlock()

	timeout := config.Seconds(s.whatsapp.LoginTimeout)
	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 2. Wait for the chat list.
	s.logger.Info("Opening web client; scan the QR code if asked.", zap.String("url", s.whatsapp.URL), zap.Duration("timeout", timeout))
	if err := page.Navigate(loginCtx, s.whatsapp.URL); err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", dispatch.ErrSessionUnavailable, s.whatsapp.URL, err)
	}
	if err := page.WaitVisible(loginCtx, s.whatsapp.Selectors.SearchBox); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: login not detected within %s", dispatch.ErrSessionUnavailable, timeout)
		}
		return fmt.Errorf("%w: login failed: %v", dispatch.ErrSessionUnavailable, err)
	}

	// 3. Publish, unless the browser was closed meanwhile.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page != page {
		return fmt.Errorf("%w: browser closed during login", dispatch.ErrSessionUnavailable)
	}
	s.ready = true
	s.logger.Info("Login detected.")
	return nil
}

// Ready reports whether Login succeeded and the browser is still open.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && s.page != nil
}

// Page returns the live page, or nil before Launch.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// CurrentChat reads the title of the conversation the user has open.
func (s *Session) CurrentChat(ctx context.Context) (dispatch.Target, error) {
	s.mu.Lock()
	page, ready := s.page, s.ready
	s.mu.Unlock()
	if !ready || page == nil {
		return dispatch.Target{}, fmt.Errorf("%w: log in first", dispatch.ErrSessionUnavailable)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()
	title, err := page.Text(readCtx, s.whatsapp.Selectors.ChatHeader)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dispatch.Target{}, ErrNoChatOpen
		}
		return dispatch.Target{}, fmt.Errorf("failed to read chat header: %w", err)
	}
	if title == "" {
		return dispatch.Target{}, ErrNoChatOpen
	}
	return dispatch.Target{ID: title, Title: title}, nil
}

// Sender builds a sender for the current page from the dispatch options.
func (s *Session) Sender(opts dispatch.Options, typist Typist) (dispatch.Sender, error) {
	page := s.Page()
	if page == nil {
		return nil, fmt.Errorf("%w: browser is not running", dispatch.ErrSessionUnavailable)
	}
	return NewSender(page, s.whatsapp, opts, typist, WithReadiness(s.Ready), WithLogger(s.logger)), nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	shutdown := s.shutdown
	s.page, s.shutdown, s.ready = nil, nil, false
	s.mu.Unlock()

	if shutdown != nil {
		shutdown()
		s.logger.Info("Browser closed.")
	}
	return nil
}

func (s *Session) elementTimeout() time.Duration {
	return config.Seconds(s.whatsapp.ElementTimeout)
}
