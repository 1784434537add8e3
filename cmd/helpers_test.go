// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/browser"
	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/dispatch"
	"github.com/xkilldash9x/courier-cli/internal/presets"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

// fakeSession stands in for the browser. Login always succeeds unless loginErr is set,
// and every sent message is recorded.
type fakeSession struct {
	mu       sync.Mutex
	ready    bool
	loginErr error
	chat     dispatch.Target
	sent     []string
	// pause is how long each send takes.
	pause  time.Duration
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{chat: dispatch.Target{ID: "Family", Title: "Family"}}
}

func (s *fakeSession) Login(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginErr != nil {
		return s.loginErr
	}
	s.ready = true
	return nil
}

func (s *fakeSession) CurrentChat(context.Context) (dispatch.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return dispatch.Target{}, dispatch.ErrSessionUnavailable
	}
	return s.chat, nil
}

func (s *fakeSession) Sender(dispatch.Options, browser.Typist) (dispatch.Sender, error) {
	return dispatch.SenderFunc(func(ctx context.Context, _ dispatch.Target, msg string) error {
		if s.pause > 0 {
			time.Sleep(s.pause)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if strings.Contains(msg, "FAIL") {
			return dispatch.NewSendError(dispatch.FailureElementNotFound, nil)
		}
		s.sent = append(s.sent, msg)
		return nil
	}), nil
}

func (s *fakeSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *fakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// testEnv is a config file in a temp dir with fast pacing and quiet logging.
type testEnv struct {
	dir        string
	configPath string
	session    *fakeSession
}

func newTestEnv(t *testing.T, extraYAML ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		session:    newFakeSession(),
	}
	body := strings.Join(append([]string{
		"logger:",
		"  level: error",
		"dispatch:",
		"  delay_min: 0",
		"  delay_max: 0",
		"presets:",
		"  path: " + filepath.Join(dir, "presets.json"),
	}, extraYAML...), "\n")
	require.NoError(t, os.WriteFile(env.configPath, []byte(body+"\n"), 0o600))

	// Swap the component factory for one that uses the fake browser.
	orig := newComponents
	newComponents = func(ctx context.Context, mgr *config.Manager, logger *zap.Logger) *service.Components {
		cfg := mgr.Current()
		return &service.Components{
			Config: mgr,
			Controller: service.NewController(service.Deps{
				Session: env.session,
				Presets: presets.Open(cfg.Presets.Path, logger),
				Options: func() dispatch.Options { return mgr.Current().Dispatch.Options() },
				Logger:  logger,
			}),
		}
	}
	t.Cleanup(func() { newComponents = orig })
	return env
}

// run executes the root command with args and the given stdin, returning all output.
func (e *testEnv) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// lines joins menu input lines with newlines.
func lines(in ...string) string {
	return strings.Join(in, "\n") + "\n"
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
