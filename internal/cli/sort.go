package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pfrederiksen/today-in-history/internal/history"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByFeed  SortOrder = "feed"
	SortByYear  SortOrder = "year"
	SortByTitle SortOrder = "title"
)

// Valid reports whether o is a known order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortByFeed, SortByYear, SortByTitle:
		return true
	}
	return false
}

// sortEvents sorts a slice of events based on the specified sort order.
// Feed order leaves the slice untouched.
func sortEvents(events []history.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByYear:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByYear(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			if ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title); ti != tj {
				return ti < tj
			}
			return compareByYear(events[i], events[j])
		})
	}
}

// parseYear reads the year field. The feed writes BC years with a leading
// minus or a "前" prefix.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if rest, ok := strings.CutPrefix(s, "前"); ok {
		s, neg = rest, true
	}
	s = strings.TrimSuffix(s, "年")
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if neg {
		y = -y
	}
	return y, true
}

// compareByYear returns true if i should come before j. Events without a
// numeric year go last.
func compareByYear(i, j history.Event) bool {
	yi, okI := parseYear(i.Year)
	yj, okJ := parseYear(j.Year)

	if okI && okJ {
		return yi < yj
	}
	if okI != okJ {
		return okI
	}
	return false
}
