package middleware

import (
	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RIDKey is the tele.Context key holding the request id of the current update.
const RIDKey = "rid"

// LoggerMiddleware assigns the update its rid, stores the logging context for
// downstream helpers and writes one update.received line (debug, sampled).
// Applying it twice to the same update is a no-op the second time.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get(RIDKey).(string); rid != "" {
			return next(c)
		}

		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(RIDKey, rid)
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c, rid)...)
		}
		return next(c)
	}
}

// receiptAttrs describes the update without personal data beyond the username.
// Contact payloads are reduced to their kind; phone numbers never reach the log.
func receiptAttrs(c tele.Context, rid string) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("rid", rid),
		slog.Int("update_id", upd.ID),
		slog.String("kind", updateKind(upd)),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.Int64("chat_id", chat.ID), slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		attrs = append(attrs, slog.Int64("user_id", user.ID))
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	switch msg := upd.Message; {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case msg != nil && msg.Contact != nil:
		attrs = append(attrs, slog.String("payload", "contact"))
	case msg != nil && msg.Document != nil:
		attrs = append(attrs, slog.String("payload", "document"))
	case msg != nil && msg.Text != "":
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(msg.Text, 256)))
	}
	return attrs
}
