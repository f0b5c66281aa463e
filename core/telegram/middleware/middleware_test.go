package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot
}

func messageContext(bot *tele.Bot, userID int64) tele.Context {
	return bot.NewContext(tele.Update{
		ID: 10,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   "/status",
		},
	})
}

func callbackContext(bot *tele.Bot, userID int64) tele.Context {
	return bot.NewContext(tele.Update{
		ID: 11,
		Callback: &tele.Callback{
			Sender: &tele.User{ID: userID},
			Data:   "\fage|5-8",
		},
	})
}

func TestAdminOnlyMiddleware(t *testing.T) {
	bot := newBot(t)
	var handled, rejected int
	next := func(tele.Context) error { handled++; return nil }
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  100,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})

	require.NoError(t, mw(next)(messageContext(bot, 100)))
	require.NoError(t, mw(next)(messageContext(bot, 200)))
	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, rejected)

	open := AdminOnlyMiddleware(AdminOptions{})
	require.NoError(t, open(next)(messageContext(bot, 200)))
	assert.Equal(t, 2, handled)
}

func TestRateLimitMiddleware(t *testing.T) {
	bot := newBot(t)
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{coreconfig.UpdateCallback: {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(messageContext(bot, 1)))
	require.NoError(t, h(messageContext(bot, 1)))
	require.NoError(t, h(messageContext(bot, 2)))
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)

	require.NoError(t, h(callbackContext(bot, 1)))
	assert.Equal(t, 3, handled)
}

func TestRecoverMiddlewareTurnsPanicIntoError(t *testing.T) {
	bot := newBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })

	err := h(messageContext(bot, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(messageContext(bot, 1)), want)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	bot := newBot(t)
	c := callbackContext(bot, 5)

	var rid string
	require.NoError(t, LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get(RIDKey).(string)
		return nil
	})(c))
	assert.NotEmpty(t, rid)
}

func TestMessageMetricsCounters(t *testing.T) {
	bot := newBot(t)
	c := messageContext(bot, 1)
	assert.Equal(t, Snapshot{}, GetCounters(c))

	inline := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "5-8", Unique: "age"}}}}
	require.NoError(t, MessageMetricsMiddleware(func(c tele.Context) error {
		m, ok := c.(metricsContext)
		require.True(t, ok)
		m.counters.sent(nil)
		m.counters.sent([]any{&tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true}}})
		assert.False(t, GetCounters(c).Keyboard)
		m.counters.sent([]any{&tele.SendOptions{ReplyMarkup: inline}})
		m.counters.answers.Add(1)
		return nil
	})(c))

	assert.Equal(t, Snapshot{Messages: 3, Answers: 1, Keyboard: true}, GetCounters(c))
}

func TestOffersKeyboard(t *testing.T) {
	contact := &tele.ReplyMarkup{ReplyKeyboard: [][]tele.ReplyButton{{{Text: "phone", Contact: true}}}}
	assert.True(t, offersKeyboard([]any{contact}))
	assert.True(t, offersKeyboard([]any{tele.ModeHTML, &tele.SendOptions{ReplyMarkup: contact}}))
	assert.False(t, offersKeyboard([]any{&tele.SendOptions{}}))
	assert.False(t, offersKeyboard([]any{&tele.ReplyMarkup{RemoveKeyboard: true}}))
	assert.False(t, offersKeyboard(nil))
}
