package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/today-in-history/internal/logger"
	"github.com/pfrederiksen/today-in-history/internal/notifier"
	"github.com/pfrederiksen/today-in-history/internal/plugin"
	"github.com/pfrederiksen/today-in-history/internal/telegram"
)

// Updater fetches pending Telegram updates. *telegram.Client implements it.
type Updater interface {
	GetUpdates(ctx context.Context, offset int, timeoutSeconds int) ([]telegram.Update, error)
}

// Handler produces the day image. *plugin.Plugin implements it.
type Handler interface {
	Handle(ctx context.Context, send plugin.SendFunc) error
}

// Options tune the polling loop.
type Options struct {
	// Username is the bot's own @name, used to ignore commands meant for other bots.
	Username string
	// PollTimeout is the long-poll wait per getUpdates call, at least 1s.
	PollTimeout time.Duration
	// LoopDuration bounds Run; zero runs until the context ends.
	LoopDuration time.Duration
	// DryRun leaves processed updates unacknowledged in RunOnce.
	DryRun bool
	// ErrorPause is the wait after a failed getUpdates call.
	ErrorPause time.Duration
}

// Bot dispatches chat commands
type Bot struct {
	updates  Updater
	handler  Handler
	notifier notifier.Notifier
	opts     Options
}

// New creates a Bot
func New(updates Updater, handler Handler, n notifier.Notifier, opts Options) *Bot {
	switch {
	case opts.PollTimeout <= 0:
		opts.PollTimeout = 30 * time.Second
	case opts.PollTimeout < time.Second:
		// getUpdates takes whole seconds; 0 would turn Run into a busy loop
		opts.PollTimeout = time.Second
	}
	if opts.ErrorPause <= 0 {
		opts.ErrorPause = 5 * time.Second
	}
	return &Bot{
		updates:  updates,
		handler:  handler,
		notifier: n,
		opts:     opts,
	}
}

// Run long-polls for updates until ctx is done or LoopDuration elapses.
func (b *Bot) Run(ctx context.Context) error {
	if b.opts.LoopDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.LoopDuration)
		defer cancel()
	}

	logger.Info("Starting long polling loop", logger.Fields{
		"poll_timeout":  b.opts.PollTimeout.String(),
		"loop_duration": b.opts.LoopDuration.String(),
	})

	offset := 0
	for ctx.Err() == nil {
		updates, err := b.updates.GetUpdates(ctx, offset, int(b.opts.PollTimeout/time.Second))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Error getting updates", nil, err)
			select {
			case <-ctx.Done():
			case <-time.After(b.opts.ErrorPause):
			}
			continue
		}

		if len(updates) == 0 {
			continue
		}

		if next := b.processBatch(ctx, updates); next > offset {
			offset = next
		}
	}

	logger.Info("Long polling loop completed", logger.Fields{"metrics": logger.GetMetricsSnapshot()})
	return nil
}

// RunOnce processes whatever is pending, then acknowledges it so the next
// run does not see it again. It returns the number of updates processed.
func (b *Bot) RunOnce(ctx context.Context) (int, error) {
	updates, err := b.updates.GetUpdates(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("getting updates: %w", err)
	}
	if len(updates) == 0 {
		logger.Info("No new messages to process", nil)
		return 0, nil
	}

	next := b.processBatch(ctx, updates)

	if b.opts.DryRun {
		return len(updates), nil
	}
	if _, err := b.updates.GetUpdates(ctx, next, 0); err != nil {
		return len(updates), fmt.Errorf("acknowledging updates: %w", err)
	}
	return len(updates), nil
}

// processBatch handles each message concurrently and returns the offset that
// acknowledges the whole batch.
func (b *Bot) processBatch(ctx context.Context, updates []telegram.Update) int {
	logger.Debug("Processing updates", logger.Fields{"count": len(updates)})

	next := 0
	var wg sync.WaitGroup
	for _, update := range updates {
		if update.UpdateID >= next {
			next = update.UpdateID + 1
		}
		if update.Message == nil {
			continue
		}

		wg.Add(1)
		go func(msg *telegram.Message) {
			defer wg.Done()
			b.handleMessage(ctx, msg)
		}(update.Message)
	}
	wg.Wait()

	return next
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch ParseCommand(text, b.opts.Username) {
	case CommandHistory:
		b.handleHistory(ctx, chatID)
	case CommandHelp:
		if err := b.notifier.NotifyText(ctx, chatID, getHelpMessage()); err != nil {
			logger.Error("Sending help failed", logger.Fields{"chat_id": chatID}, err)
		}
	}
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64) {
	fields := logger.Fields{
		"invocation": uuid.NewString(),
		"chat_id":    chatID,
	}
	logger.IncrCounter("command.history")
	logger.Debug("History command received", fields)

	start := time.Now()
	var cached bool
	err := b.handler.Handle(ctx, func(ctx context.Context, img plugin.Image) error {
		cached = img.Cached
		return b.notifier.NotifyImage(ctx, chatID, img.Name, img.Data, "")
	})
	logger.RecordTiming("command.history", time.Since(start))

	if err != nil {
		logger.IncrCounter("command.history_errors")
		logger.Error("History command failed", fields, err)
		return
	}

	fields["cached"] = cached
	logger.Info("Sent history image", fields)
}
