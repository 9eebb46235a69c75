package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/today-in-history/internal/history"
)

// ErrEmptyFeed is returned when there is nothing to parse, usually because
// the fetch failed.
var ErrEmptyFeed = errors.New("empty feed body")

// Parse cleans a raw feed body and decodes it.
func Parse(text string) (history.Feed, error) {
	cleaned := strings.TrimSpace(Clean(text))
	if cleaned == "" {
		return nil, ErrEmptyFeed
	}

	var feed history.Feed
	if err := json.Unmarshal([]byte(cleaned), &feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	for _, days := range feed {
		for _, events := range days {
			for i := range events {
				events[i].Year = strings.TrimSpace(events[i].Year)
				events[i].Title = plainText(events[i].Title)
			}
		}
	}

	return feed, nil
}

// plainText strips leftover markup and entities from a title and collapses
// runs of whitespace.
func plainText(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
