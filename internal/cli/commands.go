package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/today-in-history/internal/bot"
	"github.com/pfrederiksen/today-in-history/internal/history"
	"github.com/pfrederiksen/today-in-history/internal/logger"
	"github.com/pfrederiksen/today-in-history/internal/notifier"
	"github.com/pfrederiksen/today-in-history/internal/plugin"
	"github.com/pfrederiksen/today-in-history/internal/storage"
	"github.com/pfrederiksen/today-in-history/internal/telegram"
)

func parseDate(s string, loc *time.Location) (time.Time, error) {
	return history.ParseDate(s, time.Now(), loc)
}

func newBotCmd() *cobra.Command {
	var (
		loop         bool
		loopDuration time.Duration
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Answer chat commands with today's image",
		Long: `Polls Telegram for /history, /today and 历史上的今天 and replies with the
day image. Without --loop, pending messages are handled once and acknowledged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Telegram.BotToken == "" {
				return fmt.Errorf("bot token is required (set telegram.bot_token or %s)", "TELEGRAM_BOT_TOKEN")
			}

			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}

			client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.SendRate)
			if err != nil {
				return fmt.Errorf("creating telegram client: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			me, err := client.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("checking bot token: %w", err)
			}
			logger.Info("Bot identity", logger.Fields{"username": me.Username})

			var n notifier.Notifier = notifier.NewTelegram(client)
			if dryRun {
				n = notifier.NewDryRun(cmd.OutOrStdout())
			}

			b := bot.New(client, p.plugin, n, bot.Options{
				Username:     me.Username,
				PollTimeout:  cfg.Telegram.PollTimeout,
				LoopDuration: loopDuration,
				DryRun:       dryRun,
			})

			if loop {
				return b.Run(ctx)
			}

			processed, err := b.RunOnce(ctx)
			if err != nil {
				return err
			}
			logger.Info("Processed updates", logger.Fields{"count": processed})
			return nil
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Run continuously with long polling")
	cmd.Flags().DurationVar(&loopDuration, "loop-duration", 5*time.Hour+50*time.Minute, "Maximum duration for loop mode (0 = until interrupted)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print replies instead of sending them")

	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		date string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a day image to a file",
		Long: `Renders the image for --date (default today) with the same cache policy the
bot uses, and writes it to --out (default ./YYYY_MM_DD.png).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			t, err := p.date(date)
			if err != nil {
				return err
			}

			return p.plugin.HandleDate(cmd.Context(), t, func(ctx context.Context, img plugin.Image) error {
				path := out
				if path == "" {
					path = img.Name
				}
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
				if err := os.WriteFile(path, img.Data, 0644); err != nil {
					return fmt.Errorf("writing image: %w", err)
				}

				source := "rendered"
				if img.Cached {
					source = "cached"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes)\n", path, source, len(img.Data))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to render, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: ./YYYY_MM_DD.png)")

	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		date      string
		format    string
		sortOrder string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print a day's events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat := OutputFormat(strings.ToLower(format))
			if outFormat != FormatText && outFormat != FormatJSON {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)
			}
			order := SortOrder(strings.ToLower(sortOrder))
			if !order.Valid() {
				return fmt.Errorf("invalid sort: %s (must be 'feed', 'year' or 'title')", sortOrder)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := newPipeline(cfg)
			if err != nil {
				return err
			}
			t, err := p.date(date)
			if err != nil {
				return err
			}

			events, err := p.loader.Events(cmd.Context(), t)
			if err != nil {
				return fmt.Errorf("loading events: %w", err)
			}
			sortEvents(events, order)

			result := &OutputResult{
				Date:       t.Format("2006-01-02"),
				Headline:   history.Headline(t),
				FetchedAt:  time.Now().UTC(),
				Events:     events,
				EventCount: len(events),
			}
			if err := WriteOutput(cmd.OutOrStdout(), result, outFormat, flagVerbose); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to list, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&sortOrder, "sort", string(SortByFeed), "Sort order: feed, year or title")

	return cmd
}

func newClearCacheCmd() *cobra.Command {
	var keepToday bool

	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove cached day images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.TempDir())
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}

			var removed int
			if keepToday {
				removed, err = store.Sweep(time.Now().In(loc))
			} else {
				removed, err = store.Clear()
			}
			if err != nil {
				return fmt.Errorf("clearing %s: %w", store.Dir(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached image(s) from %s\n", removed, store.Dir())
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepToday, "keep-today", false, "Keep today's image")

	return cmd
}
