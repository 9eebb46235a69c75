package history

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFeedDay(t *testing.T) {
	feed := Feed{
		"10": {
			"1015": {
				{Year: "1917", Title: "Mata Hari executed"},
				{Year: "2003", Title: "Shenzhou 5 launched"},
			},
			"1016": {},
		},
	}

	tests := []struct {
		name    string
		date    time.Time
		want    []Event
		wantErr error
	}{
		{
			name: "day present",
			date: time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC),
			want: []Event{
				{Year: "1917", Title: "Mata Hari executed"},
				{Year: "2003", Title: "Shenzhou 5 launched"},
			},
		},
		{
			name: "day present but empty",
			date: time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC),
			want: []Event{},
		},
		{
			name:    "day missing",
			date:    time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC),
			wantErr: ErrDayNotFound,
		},
		{
			name:    "month missing",
			date:    time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC),
			wantErr: ErrDayNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := feed.Day(tt.date)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Day() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Day() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLines(t *testing.T) {
	date := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Year: "1917", Title: "Mata Hari executed"},
		{Year: "2003", Title: "Shenzhou 5 launched"},
	}

	want := []string{
		"【历史上的今天-10月15日】",
		"1917 Mata Hari executed",
		"2003 Shenzhou 5 launched",
	}
	if diff := cmp.Diff(want, Lines(date, events)); diff != "" {
		t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
	}

	if got := Lines(date, nil); len(got) != 1 {
		t.Errorf("Lines() with no events = %v, want headline only", got)
	}

	wantText := "【历史上的今天-10月15日】\n1917 Mata Hari executed\n2003 Shenzhou 5 launched"
	if got := Text(date, events); got != wantText {
		t.Errorf("Text() = %q, want %q", got, wantText)
	}
}
