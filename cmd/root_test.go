// File: cmd/root_test.go
package cmd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/courier-cli/internal/config"
	"github.com/xkilldash9x/courier-cli/internal/presets"
	"github.com/xkilldash9x/courier-cli/internal/service"
)

// TestRootCmd_VersionFlag tests if the --version flag works correctly.
func TestRootCmd_VersionFlag(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "courier version "+Version)
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "courier "+Version)
}

func TestRootCmd_Help(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Run without a subcommand to start the interactive menu.")
	for _, sub := range []string{"send", "presets", "config", "history", "version"} {
		assert.Contains(t, out, sub)
	}
}

// -- Interactive menu --

func TestMenu_QueueAndSend(t *testing.T) {
	env := newTestEnv(t)
	// Log in, select the open chat, queue three messages, view them, then send the
	// queue. Input ends while the run is in progress.
	out, err := env.run(t, lines(
		"1",
		"2", "", "y", "n",
		"3",
		"1", "Hello there",
		"2", "Second", "Third", "",
		"4",
		"6",
		"4", "1",
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello there", "Second", "Third"}, env.session.Sent())
	assert.Contains(t, out, "Logged in.")
	assert.Contains(t, out, "Selected chat: Family")
	assert.Contains(t, out, "Added: Hello there")
	assert.Contains(t, out, "Added 2 message(s).")
	assert.Contains(t, out, "3. Third")
	assert.Contains(t, out, "sent 3/3")
	assert.Contains(t, out, "completed (completed: attempted 3/3, succeeded 3, failed 0)")
	assert.Contains(t, out, "Goodbye.")
	assert.True(t, env.session.Closed(), "leaving the menu closes the browser")
}

func TestMenu_SendRepeated(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, lines("1", "2", "", "y", "", "4", "2", "Ping", "3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ping", "Ping", "Ping"}, env.session.Sent())
}

func TestMenu_StopWord(t *testing.T) {
	env := newTestEnv(t)
	env.session.pause = 100 * time.Millisecond

	out, err := env.run(t, lines("1", "2", "", "yes", "n", "4", "2", "Ping", "5", "stop"))
	require.NoError(t, err)
	assert.Contains(t, out, "Stopping after the current message...")
	assert.Contains(t, out, "stopped by user")
	assert.Less(t, len(env.session.Sent()), 5)
}

func TestMenu_SendWithoutChat(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, lines("3", "1", "hi", "6", "4", "1"))
	require.NoError(t, err)
	assert.Contains(t, out, "Error: session unavailable: select a chat first")
	assert.Empty(t, env.session.Sent())
}

func TestMenu_SelectChatNeedsLogin(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, lines("2", "7"))
	require.NoError(t, err)
	assert.Contains(t, out, "Log in first (option 1).")
}

func TestMenu_LoginFailure(t *testing.T) {
	env := newTestEnv(t)
	env.session.loginErr = errors.New("login not detected within 1m0s")
	out, err := env.run(t, lines("1", "7"))
	require.NoError(t, err)
	assert.Contains(t, out, "Error: login not detected within 1m0s")
	assert.Contains(t, out, "not logged in")
}

func TestMenu_InvalidChoice(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, lines("42", "q"))
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid choice.")
}

func TestMenu_Settings(t *testing.T) {
	env := newTestEnv(t)
	// Both bounds start at zero, so raising the minimum first must carry the maximum.
	out, err := env.run(t, lines(
		"5",
		"1", "0.5",
		"2", "2.5",
		"3",
		"6", "4",
		"6", "0",
		"2", "soon",
		"7",
		"7",
	))
	require.NoError(t, err)
	assert.Contains(t, out, "Delay is now 0.5s.")
	assert.Contains(t, out, "Delay is now 0.5-2.5s.")
	assert.Contains(t, out, "Saved.")
	assert.Contains(t, out, "Error: dispatch: invalid configuration")
	assert.Contains(t, out, "Enter a number of seconds")
	assert.Contains(t, out, "delay: 0.5-2.5s]", "the main menu shows the new pacing")

	cfg, err := config.Load(viper.New(), env.configPath)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Dispatch.DelayMin)
	assert.Equal(t, 2.5, cfg.Dispatch.DelayMax)
	assert.True(t, cfg.Dispatch.Randomize)
	assert.Equal(t, 4, cfg.Dispatch.RepeatCount)
}

func TestMenu_DelayBoundsFollowEachOther(t *testing.T) {
	d := config.DispatchConfig{DelayMin: 1, DelayMax: 1}
	setDelayMin(&d, 5)
	assert.Equal(t, config.DispatchConfig{DelayMin: 5, DelayMax: 5}, d)
	setDelayMax(&d, 10)
	assert.Equal(t, config.DispatchConfig{DelayMin: 5, DelayMax: 10}, d)
	setDelayMax(&d, 2)
	assert.Equal(t, config.DispatchConfig{DelayMin: 2, DelayMax: 2}, d)
	setDelayMin(&d, 0.5)
	assert.Equal(t, config.DispatchConfig{DelayMin: 0.5, DelayMax: 2}, d)
}

func TestMenu_PacingFollowsConfig(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"), zap.NewNop())
	ctrl := service.NewController(service.Deps{Session: newFakeSession()})
	var out syncBuffer
	m := newMenu(ctrl, mgr, strings.NewReader(""), &out, zap.NewNop())
	defer m.close()

	require.NoError(t, mgr.Update(func(c *config.Config) {
		c.Dispatch.DelayMin = 2
		c.Dispatch.DelayMax = 3
	}))
	assert.Equal(t, 2.0, m.pacing.Load().DelayMin)
	assert.Equal(t, 3.0, m.pacing.Load().DelayMax)

	m.printMain()
	assert.Contains(t, out.String(), "delay: 2-3s]")
}

func TestMenu_ChatConfirmation(t *testing.T) {
	t.Run("declined chat is not kept", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, lines("1", "2", "", "n", "3", "1", "hi", "6", "4", "1"))
		require.NoError(t, err)
		assert.Contains(t, out, "Selected chat: Family")
		assert.Contains(t, out, "Please open another chat and select it again.")
		assert.Contains(t, out, "Error: session unavailable: select a chat first")
	})

	t.Run("test message is sent", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, lines("1", "2", "", "y", "y", "Just checking", "7"))
		require.NoError(t, err)
		assert.Contains(t, out, "Test message sent.")
		assert.Equal(t, []string{"Just checking"}, env.session.Sent())
	})

	t.Run("empty test message", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, lines("1", "2", "", "y", "y", "", "7"))
		require.NoError(t, err)
		assert.Contains(t, out, "Test message was empty. No message sent.")
		assert.Contains(t, out, "chat: Family")
		assert.Empty(t, env.session.Sent())
	})

	t.Run("failed test message is reported", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, lines("1", "2", "", "y", "y", "FAIL now", "7"))
		require.NoError(t, err)
		assert.Contains(t, out, "Error: send failed (element_not_found)")
		assert.Empty(t, env.session.Sent())
	})
}

func TestMenu_Presets(t *testing.T) {
	env := newTestEnv(t)
	// List, load one into the queue, save the queue, delete the first preset and
	// try to load one that does not exist.
	out, err := env.run(t, lines(
		"6",
		"1",
		"2", "Check-in",
		"3", "Mine", "",
		"4", "1",
		"2", "nope",
		"6",
		"7",
	))
	require.NoError(t, err)
	assert.Contains(t, out, "Good Morning Messages")
	assert.Contains(t, out, "Loaded 1 message(s) into the queue.")
	assert.Contains(t, out, `Saved preset "Mine" with 1 message(s).`)
	assert.Contains(t, out, "Preset deleted.")
	assert.Contains(t, out, "Error: preset not found")

	store := presets.Open(filepath.Join(env.dir, "presets.json"), zap.NewNop())
	mine, err := store.GetByName("Mine")
	require.NoError(t, err)
	assert.Equal(t, presets.DefaultDescription, mine.Description)
	_, err = store.GetByName("Good Morning Messages")
	assert.ErrorIs(t, err, presets.ErrNotFound)
}

func TestMenu_StopsOnCancel(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "config.yaml"), zap.NewNop())
	ctrl := service.NewController(service.Deps{Session: newFakeSession()})
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	var out syncBuffer
	m := newMenu(ctrl, mgr, r, &out, zap.NewNop())
	defer m.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.run(ctx) }()

	require.Eventually(t, func() bool { return len(out.String()) > 0 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("menu did not stop after cancellation")
	}
}
