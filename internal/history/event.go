package history

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDayNotFound is returned when a feed has no entry list for the requested day.
var ErrDayNotFound = errors.New("day not found in feed")

// Event is one historical entry for a calendar day.
type Event struct {
	Year     string `json:"year"`
	Title    string `json:"title"`
	Festival string `json:"festival,omitempty"`
	Link     string `json:"link,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Line renders the event the way it appears in the image: "{year} {title}".
func (e Event) Line() string {
	return e.Year + " " + e.Title
}

// Feed is the decoded upstream document: month -> month-day -> events.
type Feed map[string]map[string][]Event

// Day returns the events listed for t's month and day, in feed order.
func (f Feed) Day(t time.Time) ([]Event, error) {
	month, ok := f[MonthKey(t)]
	if !ok {
		return nil, fmt.Errorf("month %s: %w", MonthKey(t), ErrDayNotFound)
	}
	events, ok := month[DayKey(t)]
	if !ok {
		return nil, fmt.Errorf("day %s: %w", DayKey(t), ErrDayNotFound)
	}
	return events, nil
}

// Lines builds the reply for a day: the headline followed by one line per event.
func Lines(t time.Time, events []Event) []string {
	lines := make([]string, 0, len(events)+1)
	lines = append(lines, Headline(t))
	for _, evt := range events {
		lines = append(lines, evt.Line())
	}
	return lines
}

// Text joins Lines with newlines, for plain-text output.
func Text(t time.Time, events []Event) string {
	return strings.Join(Lines(t, events), "\n")
}
