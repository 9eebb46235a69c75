package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pfrederiksen/today-in-history/internal/history"
	"github.com/pfrederiksen/today-in-history/internal/logger"
)

// DefaultTTL is how long a parsed month stays in memory.
const DefaultTTL = 6 * time.Hour

// Loader fetches and parses monthly feeds, keeping successfully parsed months
// in memory for a TTL. A zero TTL disables the memo.
type Loader struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	months   map[string]history.Feed
	cachedAt map[string]time.Time
}

// NewLoader creates a Loader over source.
func NewLoader(source Source, ttl time.Duration) *Loader {
	return &Loader{
		source:   source,
		ttl:      ttl,
		now:      time.Now,
		months:   make(map[string]history.Feed),
		cachedAt: make(map[string]time.Time),
	}
}

// Load returns the parsed feed for t's month.
func (l *Loader) Load(ctx context.Context, t time.Time) (history.Feed, error) {
	month := history.MonthKey(t)

	if feed := l.get(month); feed != nil {
		logger.IncrCounter("feed.memo_hits")
		return feed, nil
	}

	feed, err := Parse(l.source.Fetch(ctx, month))
	if err != nil {
		return nil, fmt.Errorf("month %s: %w", month, err)
	}

	l.set(month, feed)
	return feed, nil
}

// Events returns a copy of t's events, loading the month if needed.
func (l *Loader) Events(ctx context.Context, t time.Time) ([]history.Event, error) {
	feed, err := l.Load(ctx, t)
	if err != nil {
		return nil, err
	}
	events, err := feed.Day(t)
	if err != nil {
		return nil, err
	}
	return slices.Clone(events), nil
}

func (l *Loader) get(month string) history.Feed {
	if l.ttl <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	feed, exists := l.months[month]
	if !exists {
		return nil
	}

	cachedTime, hasTime := l.cachedAt[month]
	if !hasTime || l.now().Sub(cachedTime) > l.ttl {
		delete(l.months, month)
		delete(l.cachedAt, month)
		return nil
	}

	return feed
}

func (l *Loader) set(month string, feed history.Feed) {
	if l.ttl <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.months[month] = feed
	l.cachedAt[month] = l.now()
}

// CleanExpired drops expired months and reports how many were removed.
func (l *Loader) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	now := l.now()
	for month, cachedTime := range l.cachedAt {
		if now.Sub(cachedTime) > l.ttl {
			delete(l.months, month)
			delete(l.cachedAt, month)
			removed++
		}
	}
	return removed
}

// Size returns the number of memoised months.
func (l *Loader) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.months)
}
