package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrInvalidRegistration is returned for an empty name, a nil handler or a missing description.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicateRegistration is returned when the name is already taken.
	ErrDuplicateRegistration = errors.New("telegram: duplicate registration")
)

// Registry holds the bot's commands and callback handlers. It is safe for
// concurrent use; registration normally happens once before the bot starts.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry. Unknown callbacks are answered silently
// until SetCallbackNotFound installs a handler.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond()
		},
	}
}

// RegisterCommand adds a command under its normalized name ("/start").
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	key := commands.Normalize(name)
	if key == "" || !cmd.Valid() {
		warnRegistration("register.command.skip", name, "invalid")
		return fmt.Errorf("%w: command %q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[key]; exists {
		warnRegistration("register.command.skip", key, "duplicate")
		return fmt.Errorf("%w: command %s", ErrDuplicateRegistration, key)
	}
	r.commands[key] = cmd
	return nil
}

// ListCommands returns the commands sorted by name. With visibleOnly the hidden
// and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && !meta.Listed() {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves free text such as "start" or "/start@bot" to a command.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	key := commands.Normalize(text)
	if key == "" {
		return "", commands.Command{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[key]
	return key, cmd, ok
}

// Commands returns a snapshot of the registered commands keyed by "/name".
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback maps a callback unique to its handler. The unique must not
// contain the payload separator.
func (r *Registry) RegisterCallback(unique string, handler tele.HandlerFunc) error {
	if unique == "" || handler == nil || strings.ContainsAny(unique, "|\f") {
		warnRegistration("register.callback.skip", unique, "invalid")
		return fmt.Errorf("%w: callback %q", ErrInvalidRegistration, unique)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[unique]; exists {
		warnRegistration("register.callback.skip", unique, "duplicate")
		return fmt.Errorf("%w: callback %s", ErrDuplicateRegistration, unique)
	}
	r.callbacks[unique] = handler
	return nil
}

// GetCallback returns the handler registered for unique.
func (r *Registry) GetCallback(unique string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[unique]
	return h, ok
}

// ListCallbacks returns the registered uniques, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the handler for callbacks nobody registered,
// typically buttons left over from an earlier deployment.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unknown callbacks.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// InitBotCommands publishes the visible commands as the bot's menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	visible := reg.ListCommands(true)
	if len(visible) == 0 {
		return
	}
	if err := bot.SetCommands(visible); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}

func warnRegistration(event, name, reason string) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event,
		slog.String("name", name),
		slog.String("reason", reason),
	)
}
