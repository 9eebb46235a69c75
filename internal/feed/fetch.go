package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pfrederiksen/today-in-history/internal/logger"
)

const (
	EventsURL = "https://baike.baidu.com/cms/home/eventsOnHistory/%s.json"
	UserAgent = "today-in-history/1.0 (github.com/pfrederiksen/today-in-history)"
	Timeout   = 30 * time.Second

	maxBodyBytes = 8 << 20
)

// Source returns the raw feed body for a zero-padded month.
type Source interface {
	Fetch(ctx context.Context, month string) string
}

// Fetcher retrieves the monthly feed over HTTP
type Fetcher struct {
	client *http.Client
	url    string
}

// New creates a Fetcher for the public Baidu Baike endpoint
func New() *Fetcher {
	return NewWithURL(EventsURL, Timeout)
}

// NewWithURL creates a Fetcher for a custom URL template. The template
// receives the zero-padded month through a single %s verb.
func NewWithURL(urlTemplate string, timeout time.Duration) *Fetcher {
	if urlTemplate == "" {
		urlTemplate = EventsURL
	}
	if timeout <= 0 {
		timeout = Timeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		url: urlTemplate,
	}
}

// URL returns the feed address for month.
func (f *Fetcher) URL(month string) string {
	return fmt.Sprintf(f.url, month)
}

// Fetch returns the body of the month's feed. Failures are logged and
// reported as an empty body; callers find out when the body fails to parse.
func (f *Fetcher) Fetch(ctx context.Context, month string) string {
	start := time.Now()
	body, err := f.fetch(ctx, month)
	logger.RecordTiming("feed.fetch", time.Since(start))

	if err != nil {
		logger.IncrCounter("feed.fetch_errors")
		logger.Error("Feed fetch failed", logger.Fields{
			"month": month,
			"url":   f.URL(month),
		}, err)
		return ""
	}

	logger.Debug("Feed fetched", logger.Fields{
		"month": month,
		"bytes": len(body),
	})
	return body
}

func (f *Fetcher) fetch(ctx context.Context, month string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(month), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading feed: %w", err)
	}

	return string(data), nil
}
