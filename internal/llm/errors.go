package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/glossahq/glossa/pkg/protocol"
)

// Error is the canonical error type across the provider boundary. Every
// failure a Provider returns is an *Error so upstream handling can branch on
// Code instead of backend-specific strings.
type Error struct {
	Code    protocol.ErrorCode
	Message string
	Err     error
}

// NewError builds an *Error. err may be nil.
func NewError(code protocol.ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the error code from any error. Context cancellation maps
// to CANCELLED and deadline expiry to TIMEOUT even when the backend did not
// wrap them; anything unrecognized is UNKNOWN.
func CodeOf(err error) protocol.ErrorCode {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	if errors.Is(err, context.Canceled) {
		return protocol.CodeCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.CodeTimeout
	}
	return protocol.CodeUnknown
}

// IsCancelled reports whether err represents a caller-initiated abort.
func IsCancelled(err error) bool {
	return CodeOf(err) == protocol.CodeCancelled
}

// Detail converts any error into the wire ErrorDetail. For an *Error the
// message is carried without its code prefix; anything else keeps its full
// Error() text under the code CodeOf derives.
func Detail(err error) protocol.ErrorDetail {
	var le *Error
	if errors.As(err, &le) {
		return protocol.ErrorDetail{Code: le.Code, Message: le.Message}
	}
	return protocol.ErrorDetail{Code: CodeOf(err), Message: err.Error()}
}

// FromStatus maps an HTTP response status to an *Error using the shared
// translation table all backends follow.
func FromStatus(status int, message string) *Error {
	var code protocol.ErrorCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = protocol.CodeAuthenticationFailed
	case status == http.StatusNotFound:
		code = protocol.CodeModelNotFound
	case status == http.StatusTooManyRequests:
		code = protocol.CodeRateLimited
	default:
		code = protocol.CodeUnknown
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return NewError(code, message, nil)
}

// FromTransport maps a transport-level failure (dial, TLS, aborted body
// read) to an *Error, distinguishing caller cancellation from real
// connectivity loss.
func FromTransport(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return NewError(protocol.CodeCancelled, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(protocol.CodeTimeout, "request timed out", err)
	default:
		return NewError(protocol.CodeConnectionFailed, "connection failed", err)
	}
}
