package leadbot

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/crm/auth"
	"github.com/m3rciful/leadbot/core/crm/leads"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// onStart greets the user and offers the age brackets. It restarts any unfinished flow.
func (a *App) onStart(c tele.Context) error {
	if user := c.Sender(); user != nil {
		a.fsm.Clear(user.ID)
	}
	if photo := a.cfg.Bot.WelcomePhotoID; photo != "" {
		if err := tghelpers.SendPhoto(c, photo); err != nil {
			return err
		}
	}
	return tghelpers.SendHTML(c, welcomeText, keyboard.Column(ageKeyboardButtons()...))
}

func (a *App) onAge(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	age := strings.TrimSpace(callbacks.CallbackPayload(c))
	if age == "" {
		return tghelpers.Respond(c, staleCallbackText)
	}

	if err := tghelpers.Respond(c, ageChosenText(age)); err != nil {
		return err
	}
	a.fsm.SetTemp(user.ID, tempAge, age)
	a.fsm.SetState(user.ID, StateAwaitingPhone)

	logger.Info(tghelpers.BuildContext(c), logger.ComponentBot, "age.selected",
		slog.String("status", "ok"),
		slog.String("age", age),
	)
	return a.sendPhonePrompt(c, phonePromptText)
}

func (a *App) sendPhonePrompt(c tele.Context, text string) error {
	return tghelpers.SendText(c, text, &tele.SendOptions{
		ReplyMarkup: keyboard.ContactRequest(phoneButtonText),
	})
}

// onPhoneStep serves every message of a user who is expected to share a phone number.
func (a *App) onPhoneStep(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return a.sendPhonePrompt(c, phoneRepeatText)
	}
	user := c.Sender()
	age, _ := a.fsm.GetTempString(user.ID, tempAge)
	a.fsm.Clear(user.ID)

	lead := leads.Lead{
		Name:          user.FirstName,
		Phone:         msg.Contact.PhoneNumber,
		AgeBracket:    age,
		ContactHandle: contactHandle(user),
	}

	ctx, cancel := tghelpers.OperationContext(c, a.submitTimeout)
	defer cancel()
	start := time.Now()
	id, err := a.leads.Submit(ctx, lead)
	if err != nil {
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.String("age", age),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		}
		var se *leads.SubmissionError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.String("err_code", se.Code()))
		}
		if errors.Is(err, auth.ErrNotAuthorized) {
			attrs = append(attrs, slog.String("cause", "not_authorized"))
		}
		logger.Error(ctx, logger.ComponentBot, "lead.create", attrs...)
		return tghelpers.SendText(c, submitErrorText, &tele.SendOptions{ReplyMarkup: keyboard.Remove()})
	}

	logger.Info(ctx, logger.ComponentBot, "lead.create",
		slog.String("status", "ok"),
		slog.Int64("lead_id", int64(id)),
		slog.String("age", age),
		slog.Duration("duration", logger.Took(start)),
	)
	return tghelpers.SendText(c, thanks(a.cfg.Bot.ChannelURL), &tele.SendOptions{
		ReplyMarkup:           keyboard.Remove(),
		DisableWebPagePreview: true,
	})
}

func contactHandle(user *tele.User) string {
	if user == nil || user.Username == "" {
		return NoHandle
	}
	return "@" + user.Username
}

func (a *App) onStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := a.status.Status(ctx)
	switch {
	case err != nil:
		logger.Error(ctx, logger.ComponentBot, "status.read",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return tghelpers.SendText(c, statusErrorText)
	case !st.Authorized:
		return tghelpers.SendText(c, statusMissingText)
	default:
		return tghelpers.SendText(c, statusText(st.ExpiresAt.Local().Format(statusTimeLayout), st.Expired))
	}
}

func (a *App) onAdminReject(c tele.Context) error {
	return tghelpers.SendText(c, adminOnlyText)
}

func (a *App) onRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Respond(c, rateLimitedText)
	}
	return nil
}

// UnknownText answers text outside of the conversation.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, startHintText)
	}
}

// UnknownContact answers a shared contact that arrived before an age was chosen.
func (a *App) UnknownContact() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, contactHintText, &tele.SendOptions{ReplyMarkup: keyboard.Remove()})
	}
}

// UnknownDocument answers files, which the conversation never asks for.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return a.UnknownText()
}

// UnknownCallback answers buttons of older keyboards.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Respond(c, staleCallbackText)
	}
}
