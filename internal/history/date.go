package history

import (
	"fmt"
	"time"
)

// MonthKey returns the zero-padded month used in the feed URL and as the
// top-level feed key, e.g. "03".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%02d", int(t.Month()))
}

// DayKey returns the month-day key inside a month, e.g. "0315".
func DayKey(t time.Time) string {
	return fmt.Sprintf("%02d%02d", int(t.Month()), t.Day())
}

// Headline is the first line of the reply, e.g. "【历史上的今天-3月15日】".
// Month and day are not padded.
func Headline(t time.Time) string {
	return fmt.Sprintf("【历史上的今天-%d月%d日】", int(t.Month()), t.Day())
}

// DateStamp names the per-day cache entry, e.g. "2026_03_15".
func DateStamp(t time.Time) string {
	return t.Format("2006_01_02")
}

// ParseDate parses a YYYY-MM-DD date in loc. An empty string yields now.
func ParseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
