package bot

import (
	"strings"
)

// Command is a recognised chat command
type Command int

const (
	CommandNone Command = iota
	CommandHistory
	CommandHelp
)

// ChineseTrigger is the plain-text trigger carried over from the original plugin.
const ChineseTrigger = "历史上的今天"

var commandNames = map[string]Command{
	"/history":           CommandHistory,
	"/today":             CommandHistory,
	"/today_in_history":  CommandHistory,
	ChineseTrigger:       CommandHistory,
	"/" + ChineseTrigger: CommandHistory,
	"/start":             CommandHelp,
	"/help":              CommandHelp,
}

// ParseCommand maps a message to a command. Arguments after the command
// word are ignored. A command addressed to another bot (/history@other_bot)
// is not ours; username is the bot's own name without the @.
func ParseCommand(text, username string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return CommandNone
	}

	word := fields[0]
	if name, target, ok := strings.Cut(word, "@"); ok && strings.HasPrefix(word, "/") {
		if username != "" && !strings.EqualFold(target, username) {
			return CommandNone
		}
		word = name
	}

	return commandNames[strings.ToLower(word)]
}

func getHelpMessage() string {
	return `历史上的今天 / Today in History

Send /history (or 历史上的今天) and I'll reply with an image listing what happened on this day in history.`
}
