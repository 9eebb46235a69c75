// Package cli implements the command-line interface for today-in-history.
//
// The cli package provides the Cobra-based CLI: the bot command runs the
// Telegram loop, render writes a day image to disk, events prints a day's
// entries (text/JSON, in feed order or sorted) and clear-cache empties the
// day-image cache. It loads the configuration and wires the feed, render,
// storage and plugin packages together.
package cli
