package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	"github.com/m3rciful/leadbot/core/telegram/commands"
)

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() string  { return "crm request failed" }

type plainError struct{}

func (*plainError) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Empty(t, deriveErrorCode(nil))
	assert.Equal(t, "CRM_REQUEST_FAILED", deriveErrorCode(fmt.Errorf("submit: %w", codedError{})))
	assert.Equal(t, "PLAINERROR", deriveErrorCode(&plainError{}))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/start"))
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
	assert.Equal(t, "age_pick", normalizeHandlerName("Age Pick"))
}

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot
}

func callbackUpdate(data string) tele.Update {
	return tele.Update{
		ID: 3,
		Callback: &tele.Callback{
			Sender: &tele.User{ID: 9},
			Data:   data,
		},
	}
}

func captureTG(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := logger.TG
	logger.TG = slog.New(slog.NewJSONHandler(buf, nil))
	t.Cleanup(func() { logger.TG = prev })
	return buf
}

func summaryLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line), string(raw))
		if line["event"] == "handler.handled" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestCallbackRouteDispatchesByUnique(t *testing.T) {
	logs := captureTG(t)
	bot := newBot(t)
	reg := tg.NewRegistry()

	var payload string
	require.NoError(t, reg.RegisterCallback("age", func(c tele.Context) error {
		payload = callbacks.CallbackPayload(c)
		return nil
	}))

	var missed string
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(c tele.Context) error {
		missed = callbacks.CallbackKey(c)
		return nil
	}})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	require.NoError(t, route.Handler(bot.NewContext(callbackUpdate("\fage|9-11"))))
	assert.Equal(t, "9-11", payload)
	assert.Empty(t, missed)

	require.NoError(t, route.Handler(bot.NewContext(callbackUpdate("\fcolor|red"))))
	assert.Equal(t, "color", missed)

	lines := summaryLines(t, logs)
	require.Len(t, lines, 2)
	assert.Equal(t, "age", lines[0]["cb_key"])
	assert.Nil(t, lines[0]["reason"])
	assert.Equal(t, "callback.age", lines[0]["handler"])
	assert.Equal(t, "color", lines[1]["cb_key"])
	assert.Equal(t, "not_found", lines[1]["reason"])
}

type fakeFSM struct {
	active  map[int64]bool
	handled int
}

func (f *fakeFSM) InProgress(userID int64) bool { return f.active[userID] }

func (f *fakeFSM) ManagerHandler(tele.Context) error {
	f.handled++
	return nil
}

func messageUpdate(userID int64, msg tele.Message) tele.Update {
	msg.Sender = &tele.User{ID: userID}
	msg.Chat = &tele.Chat{ID: userID}
	return tele.Update{ID: 4, Message: &msg}
}

func TestTextRoutes(t *testing.T) {
	bot := newBot(t)
	fsm := &fakeFSM{active: map[int64]bool{1: true}}
	reg := tg.NewRegistry()

	var started, unknownText, unknownContact int
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Description: "start",
		Handler:     func(tele.Context) error { started++; return nil },
	}))
	require.NoError(t, reg.RegisterCommand("/status", commands.Command{
		Description: "status",
		AdminOnly:   true,
		Handler:     func(tele.Context) error { return errors.New("must not run") },
	}))

	routes := TextRoutes(fsm, reg, TextOptions{
		UnknownText:    func(tele.Context) error { unknownText++; return nil },
		UnknownContact: func(tele.Context) error { unknownContact++; return nil },
	})
	handlers := make(map[any]tele.HandlerFunc, len(routes))
	for _, r := range routes {
		handlers[r.Endpoint] = r.Handler
	}
	require.Contains(t, handlers, tele.OnContact)

	contact := tele.Message{Contact: &tele.Contact{PhoneNumber: "+79001234567"}}

	require.NoError(t, handlers[tele.OnText](bot.NewContext(messageUpdate(1, tele.Message{Text: "hi"}))))
	require.NoError(t, handlers[tele.OnContact](bot.NewContext(messageUpdate(1, contact))))
	assert.Equal(t, 2, fsm.handled)

	require.NoError(t, handlers[tele.OnText](bot.NewContext(messageUpdate(2, tele.Message{Text: "start"}))))
	require.NoError(t, handlers[tele.OnText](bot.NewContext(messageUpdate(2, tele.Message{Text: "/status"}))))
	require.NoError(t, handlers[tele.OnText](bot.NewContext(messageUpdate(2, tele.Message{Text: "hello"}))))
	require.NoError(t, handlers[tele.OnContact](bot.NewContext(messageUpdate(2, contact))))

	assert.Equal(t, 1, started)
	assert.Equal(t, 2, unknownText)
	assert.Equal(t, 1, unknownContact)
	assert.Equal(t, 2, fsm.handled)
}

type recordingFallbacks struct{ hit []string }

func (r *recordingFallbacks) handler(name string) tele.HandlerFunc {
	return func(tele.Context) error {
		r.hit = append(r.hit, name)
		return nil
	}
}

func (r *recordingFallbacks) UnknownText() tele.HandlerFunc     { return r.handler("text") }
func (r *recordingFallbacks) UnknownContact() tele.HandlerFunc  { return r.handler("contact") }
func (r *recordingFallbacks) UnknownDocument() tele.HandlerFunc { return nil }
func (r *recordingFallbacks) UnknownCallback() tele.HandlerFunc { return r.handler("callback") }

func TestFallbacksSplitsProvider(t *testing.T) {
	p := &recordingFallbacks{}
	text, cb := Fallbacks(p)

	require.NotNil(t, text.UnknownText)
	require.NotNil(t, text.UnknownContact)
	assert.Nil(t, text.UnknownDocument)
	require.NotNil(t, cb.NotFound)

	require.NoError(t, text.UnknownText(nil))
	require.NoError(t, text.UnknownContact(nil))
	require.NoError(t, cb.NotFound(nil))
	assert.Equal(t, []string{"text", "contact", "callback"}, p.hit)

	text, cb = Fallbacks(nil)
	assert.Equal(t, TextOptions{}, text)
	assert.Nil(t, cb.NotFound)
}
