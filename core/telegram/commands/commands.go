// Package commands describes slash commands known to the bot.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a registered slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run only for the configured admin and never appear in the menu.
	AdminOnly bool
	Hidden    bool
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}

// Valid reports whether the command can be registered.
func (c Command) Valid() bool {
	return c.Handler != nil && strings.TrimSpace(c.Description) != ""
}

// Normalize turns user input such as "Start", "/start" or "/start@leadbot" into
// the canonical "/start" key. Arguments after the first space are dropped.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	if name == "" {
		return ""
	}
	return "/" + name
}
