// Package telegram is a small Telegram Bot API client.
//
// It covers what the bot needs: long-polling getUpdates, sendMessage,
// sendPhoto (multipart upload) and getMe. Requests use net/http directly;
// outbound sends share a rate limiter so bursts of commands stay under the
// API's flood limits.
//
// Authentication requires a bot token from @BotFather.
package telegram
