// Package keyboard builds the reply markups the bots send.
package keyboard

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxCallbackData is Telegram's limit on callback_data, in bytes.
const MaxCallbackData = 64

// ErrCallbackData is returned for a button whose callback data cannot be sent.
var ErrCallbackData = errors.New("keyboard: invalid callback data")

// Button is an inline button. Telebot sends its callback data as "\f<unique>|<payload>".
type Button struct {
	Text    string
	Unique  string
	Payload string
}

// Validate checks that the button can be routed and fits into callback_data.
func (b Button) Validate() error {
	if strings.TrimSpace(b.Text) == "" || b.Unique == "" {
		return fmt.Errorf("%w: button %q needs text and unique", ErrCallbackData, b.Text)
	}
	if strings.ContainsAny(b.Unique, "|\f") {
		return fmt.Errorf("%w: unique %q contains a separator", ErrCallbackData, b.Unique)
	}
	if n := len(b.Unique) + len(b.Payload) + 2; n > MaxCallbackData {
		return fmt.Errorf("%w: button %q needs %d bytes", ErrCallbackData, b.Text, n)
	}
	return nil
}

// Validate checks every button.
func Validate(buttons ...Button) error {
	errs := make([]error, 0, len(buttons))
	for _, b := range buttons {
		errs = append(errs, b.Validate())
	}
	return errors.Join(errs...)
}

// Column builds an inline keyboard with one button per row.
func Column(buttons ...Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, markup.Row(markup.Data(b.Text, b.Unique, b.Payload)))
	}
	markup.Inline(rows...)
	return markup
}

// ContactRequest returns a resized one-button reply keyboard that shares the user's phone number.
func ContactRequest(label string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact(label)))
	return markup
}

// Remove hides a reply keyboard shown earlier.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
