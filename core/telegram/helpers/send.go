package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. Nil makes them synchronous again.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// delivery names one Bot API call for the dispatcher logs.
type delivery struct {
	action   string
	endpoint string
}

var (
	deliverText    = delivery{"send.text", "sendMessage"}
	deliverPhoto   = delivery{"send.photo", "sendPhoto"}
	deliverRespond = delivery{"callback.respond", "answerCallbackQuery"}
)

// deliver queues call on the dispatcher, keeping per-chat order. A full or
// closed queue degrades to a synchronous send instead of losing the message.
func deliver(c tele.Context, d delivery, call func() error) error {
	disp := dispatcher.Load()
	if disp == nil {
		return call()
	}
	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, d.action, d.endpoint, call)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.ComponentSender, "queue.fallback",
			slog.String("action", d.action),
			slog.String("endpoint", d.endpoint),
			slog.String("err", err.Error()),
		)
		return call()
	}
	return err
}

// SendText sends text as is, with no parse mode unless opts sets one.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := []any{text}
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, deliverText, func() error {
		return c.Send(args[0], args[1:]...)
	})
}

// SendHTML sends text in HTML parse mode with an optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}

// SendPhoto sends a photo already uploaded to Telegram, by file id.
func SendPhoto(c tele.Context, fileID string) error {
	photo := &tele.Photo{File: tele.File{FileID: fileID}}
	return deliver(c, deliverPhoto, func() error {
		return c.Send(photo)
	})
}

// Respond answers the current callback query with a short notification.
func Respond(c tele.Context, text string) error {
	return deliver(c, deliverRespond, func() error {
		return c.Respond(&tele.CallbackResponse{Text: text})
	})
}
