package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/today-in-history/internal/history"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	Date       string          `json:"date"`
	Headline   string          `json:"headline"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Events     []history.Event `json:"events"`
	EventCount int             `json:"event_count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	if result.Events == nil {
		result.Events = []history.Event{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(result)
}

// writeText prints the headline and one line per event, as in the image.
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprintln(w, result.Headline)

	if result.EventCount == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range result.Events {
		fmt.Fprintln(w, evt.Line())
		if verbose {
			if evt.Type != "" {
				fmt.Fprintf(w, "     Type: %s\n", evt.Type)
			}
			if evt.Festival != "" {
				fmt.Fprintf(w, "     Festival: %s\n", evt.Festival)
			}
			if evt.Link != "" {
				fmt.Fprintf(w, "     Link: %s\n", evt.Link)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", result.EventCount)

	return nil
}
