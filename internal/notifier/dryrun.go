package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// DryRun prints what would be sent without contacting any chat
type DryRun struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRun creates a dry-run notifier writing to out (stdout when nil)
func NewDryRun(out io.Writer) *DryRun {
	if out == nil {
		out = os.Stdout
	}
	return &DryRun{out: out}
}

// NotifyImage prints the image name and size
func (n *DryRun) NotifyImage(ctx context.Context, chatID int64, name string, png []byte, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[DRY RUN] Would send image %s (%d bytes) to %d\n", name, len(png), chatID)
	if caption != "" {
		fmt.Fprintf(n.out, "  caption: %s\n", caption)
	}
	return nil
}

// NotifyText prints the message
func (n *DryRun) NotifyText(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[DRY RUN] Would send to %d:\n%s\n\n", chatID, text)
	return nil
}
