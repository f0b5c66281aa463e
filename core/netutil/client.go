// Package netutil builds the HTTP clients shared by the Telegram transport and the CRM integration.
package netutil

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 5 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
)

// Options tunes a client built by NewClient.
type Options struct {
	// Timeout bounds the whole exchange including retries; 0 disables it.
	Timeout time.Duration
	// ResponseHeaderTimeout overrides the default header wait.
	ResponseHeaderTimeout time.Duration
	// Retries is the number of extra attempts after a transient network failure.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// TelegramOptions matches the long-standing Telegram API client settings.
func TelegramOptions() Options {
	return Options{
		Timeout: 30 * time.Second,
		Retries: 3,
		Backoff: 2 * time.Second,
	}
}

// CRMOptions returns settings for CRM calls: a single attempt bounded by timeout.
func CRMOptions(timeout time.Duration) Options {
	return Options{
		Timeout:               timeout,
		ResponseHeaderTimeout: timeout,
	}
}

// NewClient returns an HTTP client with a tuned transport and optional retries.
func NewClient(opts Options) *http.Client {
	headerTimeout := opts.ResponseHeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = defaultResponseTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = transport
	if opts.Retries > 0 {
		rt = &RetryTransport{Base: transport, MaxRetries: opts.Retries, Backoff: opts.Backoff}
	}
	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

// RetryTransport repeats requests that failed with a transient network error.
// HTTP error statuses are returned as-is.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				// body already consumed and cannot be replayed
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !ShouldRetry(err) || attempt == attempts {
			break
		}
		if err := Sleep(req, t.Backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// Sleep waits for d or until the request context is done.
func Sleep(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
