package auth

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/m3rciful/leadbot/core/logger"
)

var (
	// ErrNotAuthorized means no credential record is stored; the account must be authorized again.
	ErrNotAuthorized = errors.New("crm/auth: no credentials, re-authorization required")
	// ErrRefreshFailed matches every *RefreshError.
	ErrRefreshFailed = errors.New("crm/auth: token refresh failed")
)

// RefreshError describes a rejected or failed refresh exchange.
// StatusCode is 0 when no HTTP response was received.
type RefreshError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RefreshError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", ErrRefreshFailed, e.StatusCode, logger.SanitizeLimit(e.Body, 256))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrRefreshFailed, e.Err)
	}
	return ErrRefreshFailed.Error()
}

// Is reports ErrRefreshFailed as a match.
func (e *RefreshError) Is(target error) bool { return target == ErrRefreshFailed }

// Unwrap returns the underlying cause.
func (e *RefreshError) Unwrap() error { return e.Err }

// Code returns a stable identifier for logs.
func (e *RefreshError) Code() string { return "CRM_REFRESH_FAILED" }

// exchangeFailure extracts status and body from an oauth2 token endpoint error.
func exchangeFailure(err error) (int, string) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode, string(re.Body)
	}
	return 0, ""
}
