// File: internal/config/manager.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager owns the config file for an interactive session: it loads it once,
// writes changes back, and republishes the record when the file changes on disk.
type Manager struct {
	v      *viper.Viper
	path   string
	logger *zap.Logger

	mu          sync.RWMutex
	cfg         *Config
	subscribers []func(*Config)
}

// NewManager loads path (or the defaults when it cannot be read). Load problems are
// logged, never returned; the manager is always usable.
func NewManager(path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		v:      viper.New(),
		path:   path,
		logger: logger.Named("config"),
	}
	cfg, err := Load(m.v, path)
	if err != nil {
		m.logger.Warn("Could not load config, using defaults.", zap.String("path", path), zap.Error(err))
	}
	m.cfg = cfg
	return m
}

// Path returns the backing file.
func (m *Manager) Path() string { return m.path }

// Current returns a copy of the active configuration.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Subscribe registers fn to receive every new configuration.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// Update applies fn to a copy of the configuration, validates it, saves it wholesale and
// publishes it. A failed save keeps the change in memory and returns the error.
func (m *Manager) Update(fn func(*Config)) error {
	next := m.Current()
	fn(next)
	return m.apply(next)
}

// Set assigns a single dotted key ("dispatch.delay_max") from its string form and
// saves the result. Values are converted to the key's type; unknown keys are rejected.
func (m *Manager) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	// 1. Start from the active record so earlier updates are not lost.
	data, err := yaml.Marshal(m.Current())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	v := viper.New()
	SetDefaults(v)
	if !slices.Contains(v.AllKeys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// 2. Let viper's decode hooks do the type conversion.
	v.Set(key, value)
	var next Config
	if err := v.Unmarshal(&next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return m.apply(&next)
}

// BindFlags binds command-line flags to config keys and reloads the active record so
// flags given on the command line take precedence. Nothing is written to disk.
func (m *Manager) BindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("no flag named %q", name)
		}
		if err := m.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.set(&cfg)
	return nil
}

func (m *Manager) apply(next *Config) error {
	if err := next.Validate(); err != nil {
		return err
	}
	m.set(next)
	if err := Save(m.path, next); err != nil {
		m.logger.Warn("Could not save config; the change is kept for this session only.", zap.Error(err))
		return err
	}
	return nil
}

// Watch starts reloading the configuration whenever the file changes. A missing file
// is written from the active record first so there is something to watch.
func (m *Manager) Watch() error {
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		if err := Save(m.path, m.Current()); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}
	m.v.SetConfigFile(m.path)
	m.v.OnConfigChange(m.handleChange)
	m.v.WatchConfig()
	return nil
}

func (m *Manager) handleChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		m.logger.Warn("Ignoring unreadable config change.", zap.String("file", e.Name), zap.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		m.logger.Warn("Ignoring invalid config change.", zap.String("file", e.Name), zap.Error(err))
		return
	}
	m.logger.Info("Config reloaded.", zap.String("file", e.Name))
	m.set(&cfg)
}

func (m *Manager) set(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	subs := slices.Clone(m.subscribers)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(cfg.Clone())
	}
}
