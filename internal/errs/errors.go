// Package errs defines the error taxonomy shared by the fetch, extract and pipeline stages.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is
var (
	ErrCaptchaBlocked = errors.New("blocked by captcha")
	ErrShortBody      = errors.New("empty or too short response")
	ErrTokenNotFound  = errors.New("start token not found")
	ErrUnbalanced     = errors.New("unbalanced braces")
	ErrStopped        = errors.New("run stopped")
)

// Code represents a class of failure
type Code string

const (
	// CodeNetwork covers transport failures; always retryable.
	CodeNetwork Code = "NETWORK_ERROR"
	// CodeHTTPStatus is an unexpected status; retryable when the status is in the configured set.
	CodeHTTPStatus Code = "HTTP_STATUS"
	// CodeCaptcha stops the whole run.
	CodeCaptcha Code = "CAPTCHA_BLOCKED"
	// CodeParse fails the item.
	CodeParse Code = "PARSE_ERROR"
	// CodeValidation never fails the item; the record proceeds with defaults.
	CodeValidation Code = "VALIDATION"
)

// Error wraps errors with a code and structured details
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, otherwise defers to the underlying error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// New creates a new Error
func New(code Code, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]any),
	}
}

// WithRetry marks the error as retryable
func (e *Error) WithRetry() *Error {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// Network builds a retryable transport error
func Network(url string, err error) *Error {
	return New(CodeNetwork, "request failed", err).WithRetry().WithDetail("url", url)
}

// HTTPStatus builds a status error; retry reports whether the status is in the retryable set.
func HTTPStatus(url string, status int, retry bool) *Error {
	e := New(CodeHTTPStatus, fmt.Sprintf("unexpected status %d", status), nil).
		WithDetail("url", url).
		WithDetail("status", status)
	e.Retry = retry
	return e
}

// Captcha builds the run-level block error
func Captcha(url, finalURL string) *Error {
	return New(CodeCaptcha, "captcha challenge", ErrCaptchaBlocked).
		WithDetail("url", url).
		WithDetail("final_url", finalURL)
}

// Parse builds an item-level parse error carrying a snippet of the offending input
func Parse(url string, snippet string, err error) *Error {
	return New(CodeParse, "cannot extract page data", err).
		WithDetail("url", url).
		WithDetail("snippet", Snippet(snippet, 200))
}

// Validation builds a non-fatal validation error
func Validation(url, message string) *Error {
	return New(CodeValidation, message, nil).WithDetail("url", url)
}

// CodeOf returns the code of the first *Error in the chain, or "" when none is present
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether err is marked retryable
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retry
	}
	return false
}

// Snippet truncates s to at most n bytes for log output
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
