// Package leadbot is the lead-capture conversation: it greets the user, asks for
// the child's age and a phone number, and files the contact as a CRM lead.
package leadbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/crm/auth"
	"github.com/m3rciful/leadbot/core/crm/leads"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/core/telegram/state"
	"github.com/m3rciful/leadbot/core/telegram/ui"
)

// StateAwaitingPhone marks users who picked an age and owe a phone number.
const StateAwaitingPhone state.State = "awaiting_phone"

// LeadSubmitter files a lead in the CRM.
type LeadSubmitter interface {
	Submit(ctx context.Context, lead leads.Lead) (leads.LeadID, error)
}

// CredentialStatus reports the stored CRM authorization.
type CredentialStatus interface {
	Status(ctx context.Context) (auth.Status, error)
}

// Deps are the collaborators of the conversation.
type Deps struct {
	Leads  LeadSubmitter
	Status CredentialStatus
	// FSM defaults to an in-memory manager.
	FSM state.Manager
}

// App holds the conversation handlers and their wiring.
type App struct {
	cfg    *coreconfig.Config
	leads  LeadSubmitter
	status CredentialStatus
	fsm    state.Manager
	reg    *tg.Registry

	submitTimeout time.Duration
}

var _ ui.FallbackProvider = (*App)(nil)

// New builds the conversation and registers its commands, callbacks and FSM steps.
func New(cfg *coreconfig.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("leadbot: nil config")
	}
	if deps.Leads == nil {
		return nil, errors.New("leadbot: missing lead submitter")
	}
	fsm := deps.FSM
	if fsm == nil {
		fsm = state.NewMemoryManager(
			state.WithTTL(time.Duration(cfg.Bot.SessionTTLMinutes) * time.Minute),
		)
	}

	// refresh and submit each get the full CRM timeout
	timeout := 2 * time.Duration(cfg.CRM.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * coreconfig.DefaultCRMTimeoutSeconds * time.Second
	}

	a := &App{
		cfg:           cfg,
		leads:         deps.Leads,
		status:        deps.Status,
		fsm:           fsm,
		reg:           tg.NewRegistry(),
		submitTimeout: timeout,
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) register() error {
	if err := keyboard.Validate(ageKeyboardButtons()...); err != nil {
		return fmt.Errorf("leadbot: age keyboard: %w", err)
	}
	if err := a.reg.RegisterCommand("/start", commands.Command{
		Handler:     a.onStart,
		Description: startDescription,
	}); err != nil {
		return err
	}
	if a.status != nil && a.cfg.Telegram.AdminID != 0 {
		if err := a.reg.RegisterCommand("/status", commands.Command{
			Handler:     a.onStatus,
			Description: statusDescription,
			AdminOnly:   true,
			Hidden:      true,
		}); err != nil {
			return err
		}
	}
	a.reg.SetCallbackNotFound(a.UnknownCallback())
	a.fsm.RegisterHandler(StateAwaitingPhone, a.onPhoneStep)
	return a.reg.RegisterCallback(callbackAge, a.onAge)
}

// Registry exposes the registered commands and callbacks.
func (a *App) Registry() *tg.Registry {
	return a.reg
}

// Routes returns every bot endpoint of the conversation.
func (a *App) Routes() []tg.Route {
	textOpts, cbOpts := router.Fallbacks(a)
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.onAdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.reg, cbOpts))
	return append(routes, router.TextRoutes(a.fsm, a.reg, textOpts)...)
}

// TelegramRunOptions assembles the runtime options for the bot process.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, a.onRateLimited),
		Routes:      a.Routes(),
	}, nil
}
