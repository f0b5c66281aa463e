// Package leads submits captured contacts to the CRM as leads.
package leads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultNameFormat renders the lead display name from the contact name.
const DefaultNameFormat = "Lead from %s"

const maxBodyBytes = 1 << 20

// TokenSource supplies a valid access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config describes the target account and its field layout.
type Config struct {
	// BaseURL is the account root, e.g. https://example.amocrm.ru.
	BaseURL string
	Fields  Fields
	// NameFormat must contain one %s verb; empty selects DefaultNameFormat.
	NameFormat string
}

// Client submits leads. It never retries.
type Client struct {
	endpoint   string
	fields     Fields
	nameFormat string
	tokens     TokenSource
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for lead creation.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New returns a Client.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("crm/leads: missing token source")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crm/leads: missing base url")
	}
	format := cfg.NameFormat
	if format == "" {
		format = DefaultNameFormat
	}
	if strings.Count(format, "%s") != 1 {
		return nil, fmt.Errorf("crm/leads: name format %q must contain exactly one %%s", format)
	}
	c := &Client{
		endpoint:   base + "/api/v4/leads",
		fields:     cfg.Fields,
		nameFormat: format,
		tokens:     tokens,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit creates one lead and returns its id. Every failure is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, lead Lead) (LeadID, error) {
	start := time.Now()
	id, err := c.submit(ctx, lead)
	if err != nil {
		attrs := []slog.Attr{
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("age", lead.AgeBracket),
			slog.String("phone", lead.Phone),
			slog.String("err", err.Error()),
		}
		var se *SubmissionError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.String("err_code", se.Code()))
			if se.StatusCode != 0 {
				attrs = append(attrs, slog.Int("http_code", se.StatusCode))
			}
		}
		logger.Error(ctx, logger.ComponentLeads, "lead.submit", attrs...)
		return 0, err
	}
	logger.Info(ctx, logger.ComponentLeads, "lead.submit",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
		slog.String("age", lead.AgeBracket),
		slog.String("phone", lead.Phone),
		slog.Int64("lead_id", int64(id)),
	)
	return id, nil
}

func (c *Client) submit(ctx context.Context, lead Lead) (LeadID, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return 0, &SubmissionError{Kind: KindAuthFailed, Err: err}
	}

	payload, err := buildPayload(lead, c.fields, c.nameFormat)
	if err != nil {
		return 0, &SubmissionError{Kind: KindRequestFailed, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, &SubmissionError{Kind: KindRequestFailed, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &SubmissionError{Kind: KindRequestFailed, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, &SubmissionError{Kind: KindRequestFailed, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &SubmissionError{Kind: KindRequestFailed, StatusCode: resp.StatusCode, Body: string(body)}
	}
	id, err := parseLeadID(body)
	if err != nil {
		return 0, &SubmissionError{Kind: KindRequestFailed, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	return id, nil
}
