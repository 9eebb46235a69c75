package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/today-in-history/internal/config"
	"github.com/pfrederiksen/today-in-history/internal/feed"
	"github.com/pfrederiksen/today-in-history/internal/logger"
	"github.com/pfrederiksen/today-in-history/internal/plugin"
	"github.com/pfrederiksen/today-in-history/internal/render"
	"github.com/pfrederiksen/today-in-history/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
	flagVerbose  bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today-in-history",
		Short: "Send a \"today in history\" image to Telegram chats",
		Long: `A Telegram bot that answers /history (or 历史上的今天) with an image
listing what happened on this day in history, built from the Baidu Baike feed.
One image is cached per day.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./config.yaml or ~/.config/today-in-history/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for the image cache (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging (same as --log-level debug)")

	cmd.AddCommand(
		newBotCmd(),
		newRenderCmd(),
		newEventsCmd(),
		newClearCacheCmd(),
	)

	return cmd
}

// loadConfig resolves the config file, applies flag overrides and installs
// the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.Resolve(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	if path != "" {
		logger.Debug("Loaded config", logger.Fields{"path": path})
	}
	return cfg, nil
}

// pipeline is everything a command needs to produce a day's events or image.
type pipeline struct {
	cfg      *config.Config
	location *time.Location
	loader   *feed.Loader
	store    *storage.Storage
	plugin   *plugin.Plugin
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(cfg.RenderOptions())
	if err != nil {
		return nil, fmt.Errorf("initializing renderer: %w", err)
	}

	store, err := storage.New(cfg.TempDir())
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	loader := feed.NewLoader(feed.NewWithURL(cfg.Feed.URL, cfg.Feed.Timeout), cfg.Feed.CacheTTL)

	return &pipeline{
		cfg:      cfg,
		location: loc,
		loader:   loader,
		store:    store,
		plugin: plugin.New(loader, renderer, store, plugin.Options{
			ReuseImage: cfg.Plugin.IsTempImage,
			AutoClear:  cfg.Plugin.AutoClearTemp,
			Location:   loc,
		}),
	}, nil
}

// date resolves a --date flag value; empty means today.
func (p *pipeline) date(s string) (time.Time, error) {
	return parseDate(strings.TrimSpace(s), p.location)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
