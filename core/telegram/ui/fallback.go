// Package ui declares the user-facing pieces a bot supplies to the shared routers.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider supplies the replies for updates that match no command,
// no registered callback and no conversation step. A nil handler leaves that
// update kind unanswered.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownContact() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
