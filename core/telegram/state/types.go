package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session is one user's place in a conversation plus the answers collected so far.
type Session struct {
	State    State
	TempData map[string]any

	touched time.Time
}

// Manager keeps per-user sessions and dispatches updates by the user's state.
// Implementations are safe for concurrent use.
type Manager interface {
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	GetTempString(userID int64, key string) (string, bool)
	Clear(userID int64)

	SetState(userID int64, st State)
	GetState(userID int64) State

	// RegisterHandler binds the handler run by ManagerHandler for users in st.
	RegisterHandler(st State, h tele.HandlerFunc)
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
