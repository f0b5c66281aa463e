package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Option configures the in-memory manager.
type Option func(*memoryManager)

// WithTTL drops sessions left untouched for longer than ttl; the user is idle again.
// Zero keeps sessions until Clear.
func WithTTL(ttl time.Duration) Option {
	return func(m *memoryManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *memoryManager) {
		if now != nil {
			m.now = now
		}
	}
}

type memoryManager struct {
	mu        sync.RWMutex
	sessions  map[int64]*Session
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time

	handlersMu sync.RWMutex
	handlers   map[State]tele.HandlerFunc
}

// NewMemoryManager constructs an in-memory Manager. Sessions are lost on restart.
func NewMemoryManager(opts ...Option) Manager {
	m := &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *memoryManager) expired(sess *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(sess.touched) > m.ttl
}

// live returns the user's unexpired session. Callers hold mu for reading.
func (m *memoryManager) live(userID int64) (*Session, bool) {
	sess, ok := m.sessions[userID]
	if !ok || m.expired(sess, m.now()) {
		return nil, false
	}
	return sess, true
}

// touch returns the user's session for writing, starting a fresh one when
// missing or expired. Callers hold mu.
func (m *memoryManager) touch(userID int64) *Session {
	now := m.now()
	m.sweep(now)
	sess, ok := m.sessions[userID]
	if !ok || m.expired(sess, now) {
		sess = &Session{State: StateIdle, TempData: make(map[string]any)}
		m.sessions[userID] = sess
	}
	sess.touched = now
	return sess
}

// sweep removes expired sessions at most once per ttl. Callers hold mu.
func (m *memoryManager) sweep(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
		}
	}
}

func (m *memoryManager) SetTemp(userID int64, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID).TempData[key] = value
}

func (m *memoryManager) GetTemp(userID int64, key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.live(userID)
	if !ok {
		return nil, false
	}
	val, ok := sess.TempData[key]
	return val, ok
}

// GetTempString returns the value stored under key when it is a string.
func (m *memoryManager) GetTempString(userID int64, key string) (string, bool) {
	val, found := m.GetTemp(userID, key)
	if !found {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Clear removes the user's session.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID).State = st
}

// GetState returns the user's state, StateIdle without a live session.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.live(userID); ok {
		return sess.State
	}
	return StateIdle
}

// RegisterHandler binds h to st. Nil handlers are ignored.
func (m *memoryManager) RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[st] = h
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ManagerHandler runs the handler bound to the sender's current state. Updates
// without a sender or without a bound handler are ignored.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	current := m.GetState(sender.ID)
	logger.Debug(tghelpers.BuildContext(c), logger.ComponentTG, "fsm.manager",
		slog.String("status", "ok"),
		slog.String("state", string(current)),
	)

	m.handlersMu.RLock()
	handler, ok := m.handlers[current]
	m.handlersMu.RUnlock()
	if !ok {
		return nil
	}
	return handler(c)
}
