// Package auth keeps the CRM access token valid. It loads the stored credential
// record, runs the OAuth2 refresh exchange once the token expired and persists
// the renewed record.
//
// Refreshes are not serialized: two callers that observe the same expired
// record both run the exchange.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/m3rciful/leadbot/core/crm/tokenstore"
	"github.com/m3rciful/leadbot/core/logger"
)

// Config identifies the CRM account and the OAuth2 integration.
type Config struct {
	// BaseURL is the account root, e.g. https://example.amocrm.ru.
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Manager hands out valid access tokens.
type Manager struct {
	store  tokenstore.Store
	oauth  oauth2.Config
	client *http.Client
	now    func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token endpoint calls.
// Its transport is wrapped; the client itself is not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithClock replaces time.Now for expiry checks and expiry computation.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Manager backed by store.
func New(cfg Config, store tokenstore.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("crm/auth: missing token store")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm/auth: missing base url")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("crm/auth: missing client credentials")
	}

	m := &Manager{
		store:  store,
		client: http.DefaultClient,
		now:    time.Now,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth",
				TokenURL:  base + "/oauth2/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AccessToken returns a token that is valid now. An expired record is refreshed
// exactly once; a failed refresh leaves the stored record untouched.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	creds, ok, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("crm/auth: load credentials: %w", err)
	}
	if !ok {
		logger.Warn(ctx, logger.ComponentAuth, "token.missing", slog.String("status", "fail"))
		return "", ErrNotAuthorized
	}
	if !creds.Expired(m.now()) {
		return creds.AccessToken, nil
	}

	start := time.Now()
	renewed, err := m.refresh(ctx, creds.RefreshToken)
	if err != nil {
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		}
		var re *RefreshError
		if errors.As(err, &re) {
			attrs = append(attrs, slog.String("err_code", re.Code()))
			if re.StatusCode != 0 {
				attrs = append(attrs, slog.Int("http_code", re.StatusCode))
			}
		}
		logger.Error(ctx, logger.ComponentAuth, "token.refresh", attrs...)
		return "", err
	}
	if err := m.store.Save(ctx, renewed); err != nil {
		logger.Error(ctx, logger.ComponentAuth, "token.persist",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("crm/auth: save credentials: %w", err)
	}
	logger.Info(ctx, logger.ComponentAuth, "token.refresh",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
		slog.Time("expires_at", renewed.ExpiresAt),
	)
	return renewed.AccessToken, nil
}

// refresh runs the refresh exchange. Only a 200 reply counts as success.
func (m *Manager) refresh(ctx context.Context, refreshToken string) (tokenstore.Credentials, error) {
	var reply endpointReply
	src := m.oauth.TokenSource(m.exchangeContext(ctx, &reply), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		status, body := exchangeFailure(err)
		return tokenstore.Credentials{}, &RefreshError{StatusCode: status, Body: body, Err: err}
	}
	if reply.status != http.StatusOK {
		return tokenstore.Credentials{}, &RefreshError{StatusCode: reply.status, Body: string(reply.body)}
	}
	creds, err := m.credentialsFrom(tok)
	if err != nil {
		return tokenstore.Credentials{}, &RefreshError{Err: err}
	}
	return creds, nil
}

// Authorize exchanges a one-time authorization code for the first credential
// record and stores it, replacing any existing record.
func (m *Manager) Authorize(ctx context.Context, code string) (tokenstore.Credentials, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return tokenstore.Credentials{}, errors.New("crm/auth: empty authorization code")
	}
	var reply endpointReply
	tok, err := m.oauth.Exchange(m.exchangeContext(ctx, &reply), code)
	if err != nil {
		if status, body := exchangeFailure(err); status != 0 {
			return tokenstore.Credentials{}, fmt.Errorf("crm/auth: authorize: status %d: %s", status, logger.SanitizeLimit(body, 256))
		}
		return tokenstore.Credentials{}, fmt.Errorf("crm/auth: authorize: %w", err)
	}
	if reply.status != http.StatusOK {
		return tokenstore.Credentials{}, fmt.Errorf("crm/auth: authorize: status %d: %s", reply.status, logger.SanitizeLimit(string(reply.body), 256))
	}
	creds, err := m.credentialsFrom(tok)
	if err != nil {
		return tokenstore.Credentials{}, fmt.Errorf("crm/auth: authorize: %w", err)
	}
	if err := m.store.Save(ctx, creds); err != nil {
		return tokenstore.Credentials{}, fmt.Errorf("crm/auth: save credentials: %w", err)
	}
	logger.Info(ctx, logger.ComponentAuth, "token.authorize",
		slog.String("status", "ok"),
		slog.Time("expires_at", creds.ExpiresAt),
	)
	return creds, nil
}

// Status describes the stored record without exposing tokens.
type Status struct {
	Authorized bool
	ExpiresAt  time.Time
	Expired    bool
}

// Status reports whether a record is stored and when it expires. It never refreshes.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	creds, ok, err := m.store.Load(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("crm/auth: load credentials: %w", err)
	}
	if !ok {
		return Status{}, nil
	}
	return Status{
		Authorized: true,
		ExpiresAt:  creds.ExpiresAt,
		Expired:    creds.Expired(m.now()),
	}, nil
}

// exchangeContext carries the HTTP client oauth2 uses for token endpoint calls.
// The endpoint's reply is recorded into reply.
func (m *Manager) exchangeContext(ctx context.Context, reply *endpointReply) context.Context {
	client := &http.Client{
		Timeout: m.client.Timeout,
		Transport: &formParamTransport{
			base:   m.client.Transport,
			params: url.Values{"redirect_uri": {m.oauth.RedirectURL}},
			reply:  reply,
		},
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// credentialsFrom converts a token endpoint response into a record.
// The expiry is measured from the moment the response was handled.
func (m *Manager) credentialsFrom(tok *oauth2.Token) (tokenstore.Credentials, error) {
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return tokenstore.Credentials{}, errors.New("token response misses access_token or refresh_token")
	}
	var expiresAt time.Time
	if ttl, ok := expiresIn(tok); ok {
		expiresAt = m.now().Add(ttl)
	} else if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry
	} else {
		return tokenstore.Credentials{}, errors.New("token response misses expires_in")
	}
	return tokenstore.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// maxTokenTTL caps expires_in so the expiry instant stays representable.
const maxTokenTTL = 10 * 365 * 24 * time.Hour

func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var secs float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		secs = f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}
	if secs <= 0 || math.IsNaN(secs) {
		return 0, false
	}
	if secs > maxTokenTTL.Seconds() {
		return maxTokenTTL, true
	}
	return time.Duration(secs * float64(time.Second)), true
}
