package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "tg.counters"

// Counters records what a handler sent back while serving one update. Sends
// may complete on dispatcher workers, so the fields are atomic.
type Counters struct {
	messages atomic.Int32
	answers  atomic.Int32
	keyboard atomic.Bool
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Messages int
	Answers  int
	Keyboard bool
}

func (k *Counters) sent(opts []any) {
	k.messages.Add(1)
	if offersKeyboard(opts) {
		k.keyboard.Store(true)
	}
}

// Snapshot reads the counters. A nil receiver yields zeroes.
func (k *Counters) Snapshot() Snapshot {
	if k == nil {
		return Snapshot{}
	}
	return Snapshot{
		Messages: int(k.messages.Load()),
		Answers:  int(k.answers.Load()),
		Keyboard: k.keyboard.Load(),
	}
}

// offersKeyboard reports whether a send carries buttons; removing a keyboard does not count.
func offersKeyboard(opts []any) bool {
	for _, o := range opts {
		var rm *tele.ReplyMarkup
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil {
				rm = v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			rm = v
		}
		if rm != nil && (len(rm.InlineKeyboard) > 0 || len(rm.ReplyKeyboard) > 0) {
			return true
		}
	}
	return false
}

// metricsContext counts successful sends and callback answers made through the context.
type metricsContext struct {
	tele.Context
	counters *Counters
}

func (m metricsContext) Send(what any, opts ...any) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.counters.sent(opts)
	}
	return err
}

func (m metricsContext) Reply(what any, opts ...any) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.counters.sent(opts)
	}
	return err
}

func (m metricsContext) Edit(what any, opts ...any) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.counters.sent(opts)
	}
	return err
}

func (m metricsContext) Respond(resp ...*tele.CallbackResponse) error {
	err := m.Context.Respond(resp...)
	if err == nil {
		m.counters.answers.Add(1)
	}
	return err
}

// MessageMetricsMiddleware attaches fresh Counters to every update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		counters := &Counters{}
		c.Set(countersKey, counters)
		return next(metricsContext{Context: c, counters: counters})
	}
}

// GetCounters returns what was sent for the current update so far.
func GetCounters(c tele.Context) Snapshot {
	counters, _ := c.Get(countersKey).(*Counters)
	return counters.Snapshot()
}
