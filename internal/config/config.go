// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/courier-cli/internal/dispatch"
)

const (
	// EnvPrefix is the prefix for environment overrides (COURIER_DISPATCH_DELAY_MIN, ...).
	EnvPrefix = "COURIER"
	// DefaultDir holds the config file, the presets file and the browser profile.
	DefaultDir = "~/.courier"
)

// Config holds the entire application configuration.
// Every timing value in the file is expressed in seconds.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" yaml:"whatsapp"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Presets  PresetsConfig  `mapstructure:"presets" yaml:"presets"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	UI       UIConfig       `mapstructure:"ui" yaml:"ui"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// BrowserConfig controls the Chrome instance driven over CDP.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// UserDataDir is the persistent profile; it keeps the messaging login between runs.
	UserDataDir  string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args         []string `mapstructure:"args" yaml:"args"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
}

// WhatsAppConfig describes the web client and the page elements the sender relies on.
// Selectors live in config because the page markup changes without notice.
type WhatsAppConfig struct {
	URL            string         `mapstructure:"url" yaml:"url"`
	LoginTimeout   float64        `mapstructure:"login_timeout" yaml:"login_timeout"`
	ElementTimeout float64        `mapstructure:"element_timeout" yaml:"element_timeout"`
	Selectors      SelectorConfig `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorConfig holds CSS selectors for the elements the automation touches.
type SelectorConfig struct {
	SearchBox  string `mapstructure:"search_box" yaml:"search_box"`
	ChatHeader string `mapstructure:"chat_header" yaml:"chat_header"`
	MessageBox string `mapstructure:"message_box" yaml:"message_box"`
	SendButton string `mapstructure:"send_button" yaml:"send_button"`
}

// DispatchConfig holds the pacing and typing settings of a run.
type DispatchConfig struct {
	DelayMin         float64 `mapstructure:"delay_min" yaml:"delay_min"`
	DelayMax         float64 `mapstructure:"delay_max" yaml:"delay_max"`
	Randomize        bool    `mapstructure:"randomize" yaml:"randomize"`
	RepeatCount      int     `mapstructure:"repeat_count" yaml:"repeat_count"`
	TypingSimulation bool    `mapstructure:"typing_simulation" yaml:"typing_simulation"`
	TypingSpeed      float64 `mapstructure:"typing_speed" yaml:"typing_speed"`
	SendTimeout      float64 `mapstructure:"send_timeout" yaml:"send_timeout"`
	MaxPerMinute     float64 `mapstructure:"max_per_minute" yaml:"max_per_minute"`
}

// PresetsConfig locates the preset collection.
type PresetsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DatabaseConfig holds the optional run history connection. Empty URL disables history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// UIConfig is persisted on behalf of the presentation layer.
type UIConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Options converts the file representation into the dispatch value object.
func (d DispatchConfig) Options() dispatch.Options {
	return dispatch.Options{
		RepeatCount:      d.RepeatCount,
		Randomize:        d.Randomize,
		DelayMin:         Seconds(d.DelayMin),
		DelayMax:         Seconds(d.DelayMax),
		TypingSimulation: d.TypingSimulation,
		TypingSpeed:      Seconds(d.TypingSpeed),
		SendTimeout:      Seconds(d.SendTimeout),
		MaxPerMinute:     d.MaxPerMinute,
	}
}

// Seconds converts a fractional number of seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate checks the settings that would make every run fail.
func (c *Config) Validate() error {
	if err := c.Dispatch.Options().Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.WhatsApp.URL == "" {
		return errors.New("whatsapp.url must not be empty")
	}
	if c.WhatsApp.LoginTimeout <= 0 || c.WhatsApp.ElementTimeout <= 0 {
		return errors.New("whatsapp timeouts must be positive")
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Config) Clone() *Config {
	out := *c
	out.Browser.Args = append([]string(nil), c.Browser.Args...)
	return &out
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "courier")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", DefaultDir+"/chrome-profile")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{"disable-notifications"})
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	// -- WhatsApp Web --
	v.SetDefault("whatsapp.url", "https://web.whatsapp.com/")
	v.SetDefault("whatsapp.login_timeout", 60.0)
	v.SetDefault("whatsapp.element_timeout", 30.0)
	v.SetDefault("whatsapp.selectors.search_box", `div[contenteditable="true"][data-tab="3"]`)
	v.SetDefault("whatsapp.selectors.chat_header", `#main header span[dir="auto"]`)
	v.SetDefault("whatsapp.selectors.message_box", `#main footer div[contenteditable="true"]`)
	v.SetDefault("whatsapp.selectors.send_button", `#main footer button[aria-label="Send"]`)

	// -- Dispatch --
	v.SetDefault("dispatch.delay_min", 1.0)
	v.SetDefault("dispatch.delay_max", 1.0)
	v.SetDefault("dispatch.randomize", false)
	v.SetDefault("dispatch.repeat_count", 1)
	v.SetDefault("dispatch.typing_simulation", false)
	v.SetDefault("dispatch.typing_speed", 0.05)
	v.SetDefault("dispatch.send_timeout", 60.0)
	v.SetDefault("dispatch.max_per_minute", 0.0)

	// -- Storage --
	v.SetDefault("presets.path", DefaultDir+"/presets.json")
	v.SetDefault("database.url", "")

	// -- UI --
	v.SetDefault("ui.theme", "dark")
}

// DefaultPath returns the user-scoped config file location.
func DefaultPath() string {
	return ExpandPath(DefaultDir + "/config.yaml")
}

// ExpandPath resolves a leading "~" to the user's home directory.
// If the home directory cannot be determined the path is returned as is.
func ExpandPath(p string) string {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// Load reads path into v over the defaults and unmarshals the result. Keys missing
// from the file keep their defaults and unknown keys are ignored.
//
// A missing file is not an error. Any other failure still returns a usable default
// config together with the error so that callers can report it and carry on.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var readErr error
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				readErr = fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return NewDefaultConfig(), errors.Join(readErr, fmt.Errorf("failed to unmarshal config: %w", err))
	}
	if readErr != nil {
		return NewDefaultConfig(), readErr
	}
	return &cfg, nil
}

// Save writes the whole configuration record to path as YAML. The file is replaced
// atomically so a crash mid-write never leaves a truncated config behind.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
