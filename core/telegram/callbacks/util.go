// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// dataPrefix marks button data produced by markup.Data; Telebot keeps it on
// callbacks that reach the generic OnCallback endpoint.
const dataPrefix = "\f"

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Data without the prefix is treated as a bare unique key.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		// Telebot already split the data for a unique-bound handler
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, dataPrefix)
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload after '|' of the current callback.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}
