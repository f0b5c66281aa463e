package router

import (
	"time"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text, contact and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownContact  tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text, contact and document routing.
// Users with an active conversation are served by the FSM first.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inFlow := func(c tele.Context) bool {
		user := c.Sender()
		return fsmMgr != nil && user != nil && fsmMgr.InProgress(user.ID)
	}

	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if inFlow(c) {
			return handleWithSummary(c, "fsm", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		logSkipped(c, "unknown_text", start)
		return nil
	}

	contactHandler := func(c tele.Context) error {
		start := time.Now()
		if inFlow(c) {
			return handleWithSummary(c, "fsm_contact", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if opts.UnknownContact != nil {
			return handleWithSummary(c, "unexpected_contact", start, func() error {
				return opts.UnknownContact(c)
			})
		}
		logSkipped(c, "unexpected_contact", start)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if inFlow(c) {
			return handleWithSummary(c, "fsm_document", start, func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, func() error {
				return opts.UnknownDocument(c)
			})
		}
		logSkipped(c, "unexpected_document", start)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(handler)},
		{Endpoint: tele.OnContact, Handler: wrap(contactHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(docHandler)},
	}
}
