// Package notifier delivers replies to a chat.
//
// Telegram is the production channel; DryRun prints what would have been sent
// and is used by --dry-run and the CLI.
package notifier
