// File: cmd/config_test.go
package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/courier-cli/internal/config"
)

func TestConfigCmd(t *testing.T) {
	env := newTestEnv(t)

	t.Run("path", func(t *testing.T) {
		out, err := env.run(t, "", "config", "path")
		require.NoError(t, err)
		assert.Equal(t, env.configPath, strings.TrimSpace(out))
	})

	t.Run("show merges the file over the defaults", func(t *testing.T) {
		out, err := env.run(t, "", "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "delay_max: 0")
		assert.Contains(t, out, "url: https://web.whatsapp.com/")
	})

	t.Run("set saves one key", func(t *testing.T) {
		out, err := env.run(t, "", "config", "set", "dispatch.delay_max", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "Set dispatch.delay_max = 3.")

		cfg, err := config.Load(viper.New(), env.configPath)
		require.NoError(t, err)
		assert.Equal(t, 3.0, cfg.Dispatch.DelayMax)
		assert.Equal(t, "error", cfg.Logger.Level, "other keys are kept")
	})

	t.Run("set rejects unknown keys", func(t *testing.T) {
		_, err := env.run(t, "", "config", "set", "dispatch.warp", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown config key")
	})

	t.Run("set needs a key and a value", func(t *testing.T) {
		_, err := env.run(t, "", "config", "set", "dispatch.delay_max")
		assert.Error(t, err)
	})
}
