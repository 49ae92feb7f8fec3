package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - these represent business rule violations
var (
	// Lifecycle
	ErrAlreadyRunning = errors.New("monitoring is already running")
	ErrNotRunning     = errors.New("monitoring is not running")

	// Ticket data
	ErrMissingField  = errors.New("ticket is missing a required field")
	ErrInvalidTicket = errors.New("ticket data could not be decoded")

	// Generic
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// RemoteError reports a failed call to the ticketing provider. StatusCode is
// zero when the request never produced a response.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError for a transport-level failure.
func NewRemoteError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Err: err}
}

// NewRemoteStatusError builds a RemoteError for a non-2xx response.
func NewRemoteStatusError(op string, statusCode int, message string) *RemoteError {
	return &RemoteError{Op: op, StatusCode: statusCode, Message: message}
}

// EvaluationError reports ticket data the rule evaluator could not use:
// either required Fields were absent or the record failed to decode (Err).
type EvaluationError struct {
	TicketID int64
	Fields   []string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ticket %d: invalid data: %v", e.TicketID, e.Err)
	}
	return fmt.Sprintf("ticket %d: missing %s", e.TicketID, strings.Join(e.Fields, ", "))
}

func (e *EvaluationError) Unwrap() []error {
	var errs []error
	if len(e.Fields) > 0 {
		errs = append(errs, ErrMissingField)
	}
	if e.Err != nil {
		errs = append(errs, ErrInvalidTicket, e.Err)
	}
	return errs
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}
