package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/today-in-history/internal/telegram"
)

// Notifier defines the interface for delivering replies
type Notifier interface {
	// NotifyImage sends a PNG to chatID
	NotifyImage(ctx context.Context, chatID int64, name string, png []byte, caption string) error
	// NotifyText sends a plain text message to chatID
	NotifyText(ctx context.Context, chatID int64, text string) error
}

// Sender is the subset of telegram.Client the Telegram notifier needs.
type Sender interface {
	SendPhoto(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

var _ Sender = (*telegram.Client)(nil)

// Telegram delivers replies through the Bot API
type Telegram struct {
	sender Sender
}

// NewTelegram creates a Telegram notifier
func NewTelegram(sender Sender) *Telegram {
	return &Telegram{sender: sender}
}

// NotifyImage uploads the image as a photo
func (n *Telegram) NotifyImage(ctx context.Context, chatID int64, name string, png []byte, caption string) error {
	if err := n.sender.SendPhoto(ctx, chatID, name, png, caption); err != nil {
		return fmt.Errorf("sending photo to %d: %w", chatID, err)
	}
	return nil
}

// NotifyText sends a text message
func (n *Telegram) NotifyText(ctx context.Context, chatID int64, text string) error {
	if err := n.sender.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("sending message to %d: %w", chatID, err)
	}
	return nil
}
