package leads

import (
	"errors"
	"fmt"

	"github.com/m3rciful/leadbot/core/logger"
)

var (
	// ErrAuthFailed matches submissions that could not obtain an access token.
	ErrAuthFailed = errors.New("crm/leads: authorization failed")
	// ErrRequestFailed matches rejected submissions, transport failures and malformed responses.
	ErrRequestFailed = errors.New("crm/leads: request failed")
)

// Kind classifies a SubmissionError.
type Kind int

const (
	KindAuthFailed Kind = iota + 1
	KindRequestFailed
)

func (k Kind) sentinel() error {
	if k == KindAuthFailed {
		return ErrAuthFailed
	}
	return ErrRequestFailed
}

// SubmissionError is returned by Client.Submit for every failure.
// StatusCode is 0 when no HTTP response was received.
type SubmissionError struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, logger.SanitizeLimit(e.Body, 256))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the sentinel of the error kind.
func (e *SubmissionError) Is(target error) bool { return target == e.Kind.sentinel() }

// Unwrap returns the underlying cause. For KindAuthFailed it is the token manager error unchanged.
func (e *SubmissionError) Unwrap() error { return e.Err }

// Code returns a stable identifier for logs.
func (e *SubmissionError) Code() string {
	if e.Kind == KindAuthFailed {
		return "CRM_AUTH_FAILED"
	}
	return "CRM_REQUEST_FAILED"
}
