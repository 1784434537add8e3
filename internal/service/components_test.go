// File: internal/service/components_test.go
package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

func newTestManager(t *testing.T, dbURL string) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	mgr := config.NewManager(filepath.Join(dir, "config.yaml"), zap.NewNop())
	require.NoError(t, mgr.Update(func(c *config.Config) {
		c.Presets.Path = filepath.Join(dir, "presets.json")
		c.Database.URL = dbURL
		c.Dispatch.RepeatCount = 2
	}))
	return mgr
}

func TestNewComponents(t *testing.T) {
	mgr := newTestManager(t, "")

	c := NewComponents(context.Background(), mgr, zap.NewNop())
	require.NotNil(t, c.Controller)
	assert.Nil(t, c.History)
	require.NotNil(t, c.Controller.Presets())
	assert.NotEmpty(t, c.Controller.Presets().List())
	assert.Equal(t, 2, c.Controller.Options().RepeatCount)

	// Options follow config changes.
	require.NoError(t, mgr.Update(func(cfg *config.Config) { cfg.Dispatch.RepeatCount = 5 }))
	assert.Equal(t, 5, c.Controller.Options().RepeatCount)

	assert.False(t, c.Controller.LoggedIn())
	c.Shutdown()
	c.Shutdown()
}

func TestNewComponents_HistoryUnavailable(t *testing.T) {
	mgr := newTestManager(t, "postgres://%zz")
	core, logs := observer.New(zapcore.WarnLevel)

	c := NewComponents(context.Background(), mgr, zap.New(core))
	defer c.Shutdown()

	assert.Nil(t, c.History)
	assert.Equal(t, 1, logs.FilterMessage("Run history disabled; database unavailable.").Len())
}
