package bridge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind categorizes analysis failures.
type Kind string

const (
	// KindEngineNotFound indicates no engine was found at any candidate path.
	KindEngineNotFound Kind = "ENGINE_NOT_FOUND"

	// KindTimeout indicates the engine did not finish before the deadline.
	KindTimeout Kind = "TIMEOUT"

	// KindEngineFailure indicates the engine exited non-zero or could not start.
	KindEngineFailure Kind = "ENGINE_FAILURE"

	// KindParseFailure indicates the engine exited zero with undecodable output.
	KindParseFailure Kind = "PARSE_FAILURE"

	// KindRejected indicates the engine rejected the image. This is a domain
	// outcome, not a system failure.
	KindRejected Kind = "REJECTED"

	// KindTransport indicates the network analysis service failed.
	KindTransport Kind = "TRANSPORT"

	// KindCanceled indicates the caller canceled the analysis.
	KindCanceled Kind = "CANCELED"
)

// Error is returned by every failed analysis.
//
// Only the fields relevant to Kind are set:
//   - KindEngineNotFound: Checked
//   - KindTimeout: Deadline
//   - KindEngineFailure: ExitCode, Stderr, Stdout
//   - KindParseFailure: Raw
//   - KindRejected: Code, Message
//   - KindTransport: Message, StatusCode
type Error struct {
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Checked lists every path the locator tried.
	Checked []string

	Deadline time.Duration

	ExitCode int
	Stderr   string
	Stdout   string

	// Raw is the engine output that failed to decode.
	Raw string

	// Code is the engine's rejection code, e.g. NOT_AN_EYE.
	Code string

	// StatusCode is the HTTP status of a failed network request, 0 when the
	// request never got a response.
	StatusCode int

	// RequestID correlates the failure with log records.
	RequestID string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindEngineNotFound:
		return fmt.Sprintf("%s: %s (checked: %s)", e.Kind, e.Message, strings.Join(e.Checked, ", "))
	case KindEngineFailure:
		if e.Stderr != "" {
			return fmt.Sprintf("%s: %s (exit %d): %s", e.Kind, e.Message, e.ExitCode, strings.TrimSpace(e.Stderr))
		}
		return fmt.Sprintf("%s: %s (exit %d)", e.Kind, e.Message, e.ExitCode)
	case KindRejected:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsRejection returns true if the engine rejected the image.
func IsRejection(err error) bool {
	return KindOf(err) == KindRejected
}

// IsTimeout returns true if the analysis ran past its deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// NewNotFoundError creates an Error listing every checked path.
func NewNotFoundError(checked []string) *Error {
	return &Error{
		Kind:    KindEngineNotFound,
		Message: "detection engine not found",
		Checked: checked,
	}
}

// NewRejectedError creates an Error for an engine rejection.
func NewRejectedError(code, message string) *Error {
	return &Error{
		Kind:    KindRejected,
		Message: message,
		Code:    code,
	}
}

// NewTransportError creates an Error for a failed network analysis.
func NewTransportError(statusCode int, message string, cause error) *Error {
	return &Error{
		Kind:       KindTransport,
		Message:    message,
		StatusCode: statusCode,
		Err:        cause,
	}
}
