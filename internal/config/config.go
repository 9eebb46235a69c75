// Package config handles today-in-history configuration loading.
//
// Settings come from an optional YAML file laid over Default(), then from
// the environment. Command-line flags are applied by the cli package last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/today-in-history/internal/feed"
	"github.com/pfrederiksen/today-in-history/internal/logger"
	"github.com/pfrederiksen/today-in-history/internal/render"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvDataDir  = "TODAY_IN_HISTORY_DATA_DIR"
	EnvLogLevel = "TODAY_IN_HISTORY_LOG_LEVEL"
)

// DefaultSearchPaths returns the config file search order:
// ./config.yaml, then ~/.config/today-in-history/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "today-in-history", "config.yaml"))
	}

	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing entry of DefaultSearchPaths is returned, or ""
// when there is none; running on defaults is fine.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Config holds all settings.
type Config struct {
	Plugin   PluginConfig   `yaml:"plugin"`
	Render   RenderConfig   `yaml:"render"`
	Feed     FeedConfig     `yaml:"feed"`
	Telegram TelegramConfig `yaml:"telegram"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	Timezone string         `yaml:"timezone"` // IANA name; empty means local time
}

// PluginConfig holds the three user-facing switches.
type PluginConfig struct {
	// IsTempImage reuses today's image once it exists.
	IsTempImage bool `yaml:"is_temp_image"`
	// AutoClearTemp deletes images of other days after each send.
	AutoClearTemp bool `yaml:"auto_clear_temp"`
	// RedDepth bounds the red channel of the per-line tint (0-255).
	RedDepth int `yaml:"red_depth"`
}

type RenderConfig struct {
	FontPath       string `yaml:"font_path"`
	BackgroundPath string `yaml:"background_path"`
	Layout         string `yaml:"layout"` // fit or fixed
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	// FallbackFonts replaces the built-in list of system CJK fonts searched
	// when font_path is empty.
	FallbackFonts []string `yaml:"fallback_fonts"`
}

type FeedConfig struct {
	URL      string        `yaml:"url"` // %s receives the zero-padded month
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type TelegramConfig struct {
	BotToken    string        `yaml:"bot_token"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	SendRate    float64       `yaml:"send_rate"` // messages per second
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Plugin: PluginConfig{
			IsTempImage:   true,
			AutoClearTemp: true,
			RedDepth:      render.DefaultRedDepth,
		},
		Render: RenderConfig{
			Layout: string(render.LayoutFit),
			Width:  render.DefaultFixedWidth,
			Height: render.DefaultFixedHeight,
		},
		Feed: FeedConfig{
			URL:      feed.EventsURL,
			Timeout:  feed.Timeout,
			CacheTTL: feed.DefaultTTL,
		},
		Telegram: TelegramConfig{
			PollTimeout: 30 * time.Second,
			SendRate:    20,
		},
		DataDir:  "~/.local/share/today-in-history",
		LogLevel: "info",
	}
}

// envRef matches ${NAME} references. A bare $ is left alone so tokens and
// URLs containing one survive.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Load reads a YAML file over Default(). ${NAME} references in the file are
// replaced with the environment value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve finds and loads the config file (if any), then applies the
// environment. It returns the file used, or "" for pure defaults.
func Resolve(explicit string) (*Config, string, error) {
	path, err := FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	if path != "" {
		if cfg, err = Load(path); err != nil {
			return nil, "", err
		}
	}
	cfg.ApplyEnv()
	return cfg, path, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBotToken); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Plugin.RedDepth < 0 || c.Plugin.RedDepth > 255 {
		return fmt.Errorf("plugin.red_depth %d out of range 0-255", c.Plugin.RedDepth)
	}
	switch render.Layout(c.Render.Layout) {
	case render.LayoutFit, render.LayoutFixed:
	default:
		return fmt.Errorf("render.layout %q must be %q or %q", c.Render.Layout, render.LayoutFit, render.LayoutFixed)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Telegram.SendRate <= 0 {
		return fmt.Errorf("telegram.send_rate must be positive")
	}
	if c.Telegram.PollTimeout < time.Second {
		return fmt.Errorf("telegram.poll_timeout %s must be at least 1s", c.Telegram.PollTimeout)
	}
	if !strings.Contains(c.Feed.URL, "%s") || strings.Contains(fmt.Sprintf(c.Feed.URL, "01"), "%!") {
		return fmt.Errorf("feed.url %q must contain a single %%s for the month", c.Feed.URL)
	}
	return nil
}

// TempDir is where day images are kept.
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "temp")
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RenderOptions maps the render and plugin settings to render.Options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		FontPath:       c.Render.FontPath,
		FallbackFonts:  c.Render.FallbackFonts,
		BackgroundPath: c.Render.BackgroundPath,
		Layout:         render.Layout(c.Render.Layout),
		Width:          c.Render.Width,
		Height:         c.Render.Height,
		RedDepth:       c.Plugin.RedDepth,
	}
}
