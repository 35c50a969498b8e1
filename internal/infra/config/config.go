// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config represents the player configuration.
type Config struct {
	Player   PlayerConfig                `yaml:"player"`
	CMS      CMSConfig                   `yaml:"cms"`
	Polling  PollingConfig               `yaml:"polling"`
	Playback PlaybackConfig              `yaml:"playback"`
	Shell    ShellConfig                 `yaml:"shell"`
	Kiosk    KioskConfig                 `yaml:"kiosk"`
	Nudge    NudgeConfig                 `yaml:"nudge"`
	Widgets  map[string]WidgetKindConfig `yaml:"widgets"`
	Messages MessagesConfig              `yaml:"messages"`
}

// PlayerConfig identifies this device.
type PlayerConfig struct {
	ID    string      `yaml:"id"`
	Name  string      `yaml:"name" default:"player"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// CMSConfig represents the content management server endpoints.
type CMSConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	Token       string `yaml:"token"`
	TimeoutMs   int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	ContentPath string `yaml:"content_path" default:"/api/player/current"`
	ConfigPath  string `yaml:"config_path" default:"/api/system/config"`
	WidgetsPath string `yaml:"widgets_path" default:"/api/widgets?enabled=true"`
	SignalPath  string `yaml:"signal_path" default:"/api/system/config"`
	WeatherPath string `yaml:"weather_path" default:"/api/widgets/weather"`
	StatusPath  string `yaml:"status_path" default:"/api/player/status"`
}

// PollingConfig represents the polling cadences.
type PollingConfig struct {
	ContentIntervalSec int `yaml:"content_interval_sec" default:"60" validate:"gte=5,lte=86400"`
	CommandIntervalMs  int `yaml:"command_interval_ms" default:"2000" validate:"gte=250,lte=60000"`
	StatusIntervalSec  int `yaml:"status_interval_sec" default:"60" validate:"gte=5,lte=86400"`
}

// PlaybackConfig represents playback defaults.
type PlaybackConfig struct {
	DefaultItemDurationSec int `yaml:"default_item_duration_sec" default:"10" validate:"gte=1,lte=86400"`
}

// ShellConfig represents the kiosk page server.
type ShellConfig struct {
	Addr          string `yaml:"addr" default:":8090"`
	IdleTimeoutMs int    `yaml:"idle_timeout_ms" default:"3000" validate:"gte=0,lte=600000"`
	Token         string `yaml:"token"`
}

// KioskConfig represents the optional browser launcher.
type KioskConfig struct {
	LaunchBrowser bool   `yaml:"launch_browser"`
	BrowserBin    string `yaml:"browser_bin"`
	Windowed      bool   `yaml:"windowed"`
}

// NudgeConfig represents the optional Redis push hint.
type NudgeConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"gte=0,lte=15"`
	Channel   string `yaml:"channel" default:"player:nudge"`
}

// WidgetKindConfig represents per-kind widget defaults.
type WidgetKindConfig struct {
	Disabled bool           `yaml:"disabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents on-screen status messages.
type MessagesConfig struct {
	Empty      string `yaml:"empty" default:"No content configured"`
	FetchError string `yaml:"fetch_error" default:"Unable to load content"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if cfg.Player.ID == "" {
		cfg.Player.ID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("CMS_BASE_URL"); v != "" {
		c.CMS.BaseURL = v
	}
	if v := os.Getenv("CMS_TOKEN"); v != "" {
		c.CMS.Token = v
	}
	if v := os.Getenv("PLAYER_ID"); v != "" {
		c.Player.ID = v
	}
	if v := os.Getenv("SHELL_TOKEN"); v != "" {
		c.Shell.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Nudge.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Nudge.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.CMS.BaseURL != "" && !strings.HasPrefix(c.CMS.BaseURL, "http://") && !strings.HasPrefix(c.CMS.BaseURL, "https://") {
		return errors.Newf("cms.base_url must be http(s): %s", c.CMS.BaseURL)
	}

	return nil
}

// IsWidgetEnabled reports whether a widget kind may be rendered.
func (c *Config) IsWidgetEnabled(kind string) bool {
	if w, ok := c.Widgets[kind]; ok {
		return !w.Disabled
	}
	return true
}

// WidgetSettings returns the local default settings of a widget kind.
func (c *Config) WidgetSettings(kind string) map[string]any {
	if w, ok := c.Widgets[kind]; ok {
		return w.Settings
	}
	return nil
}

// CMSTimeout returns the per-request timeout.
func (c *Config) CMSTimeout() time.Duration {
	return time.Duration(c.CMS.TimeoutMs) * time.Millisecond
}

// ContentInterval returns the content poll period.
func (c *Config) ContentInterval() time.Duration {
	return time.Duration(c.Polling.ContentIntervalSec) * time.Second
}

// CommandInterval returns the command channel poll period.
func (c *Config) CommandInterval() time.Duration {
	return time.Duration(c.Polling.CommandIntervalMs) * time.Millisecond
}

// StatusInterval returns the status report period.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Polling.StatusIntervalSec) * time.Second
}

// DefaultItemDuration returns the fallback display time of timed items.
func (c *Config) DefaultItemDuration() time.Duration {
	return time.Duration(c.Playback.DefaultItemDurationSec) * time.Second
}

// IdleTimeout returns the delay before the cursor and controls are hidden.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Shell.IdleTimeoutMs) * time.Millisecond
}
