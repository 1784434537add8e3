// File: internal/browser/integration_test.go
package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

// chatPage mimics the parts of the web client the session touches. The send button
// appends the composed text to #log so the test can read back what was sent.
const chatPage = `<!DOCTYPE html>
<html><body>
<div id="search" contenteditable="true">Search</div>
<header id="header"><span>Family</span></header>
<div id="box" contenteditable="true"></div>
<button id="send" onclick="var b=document.getElementById('box');document.getElementById('log').textContent+=b.innerText+'|';b.textContent='';">Send</button>
<pre id="log">log:</pre>
</body></html>`

var chromeBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}

// setupSession starts a headless Chrome pointed at a local chat page.
func setupSession(t *testing.T) *browser.Session {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser integration test in short mode.")
	}
	found := false
	for _, name := range chromeBinaries {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("Chrome or Chromium is not installed.")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, chatPage)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Browser: config.BrowserConfig{
			Headless:    true,
			UserDataDir: t.TempDir(),
		},
		WhatsApp: config.WhatsAppConfig{
			URL:            server.URL,
			LoginTimeout:   20,
			ElementTimeout: 5,
			Selectors: config.SelectorConfig{
				SearchBox:  "#search",
				ChatHeader: "#header span",
				MessageBox: "#box",
				SendButton: "#send",
			},
		},
	}

	session := browser.NewSession(cfg, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestSession_ChromeIntegration(t *testing.T) {
	session := setupSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 1. Chrome outlives the call that started it, and login waits for the search box.
	launchCtx, launchCancel := context.WithTimeout(ctx, 30*time.Second)
	require.NoError(t, session.Launch(launchCtx))
	launchCancel()
	require.NoError(t, session.Login(ctx))
	require.True(t, session.Ready())

	// 2. The open chat comes from the header.
	target, err := session.CurrentChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Family", target.Title)

	// 3. A message is inserted into the box and submitted.
	sender, err := session.Sender(dispatch.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, sender.Send(ctx, target, "Hello there"))

	logged, err := session.Page().Text(ctx, "#log")
	require.NoError(t, err)
	assert.Contains(t, logged, "Hello there|")

	// 4. A different open chat is refused before anything is typed.
	err = sender.Send(ctx, dispatch.Target{ID: "Team", Title: "Team"}, "wrong chat")
	require.Error(t, err)
	assert.Equal(t, dispatch.FailureTransientState, dispatch.AsSendError(err).Kind)

	// 5. Close is idempotent and drops readiness.
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.False(t, session.Ready())
}
