// Package bot runs the Telegram long-polling loop and dispatches chat
// commands to the history plugin.
//
// A message whose first word is /history, /today or 历史上的今天 (optionally
// addressed as /history@botname) produces today's image. Failures are logged
// and the chat gets no reply. /start and /help answer with a usage note.
package bot
