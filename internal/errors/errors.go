package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if err carries an AppError anywhere in its
// chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	for err != nil {
		if ae, ok := err.(*AppError); ok {
			return ae.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "UNKNOWN"
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	return GetCode(err) == code
}

// Error codes for the orchestration pipeline
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeAuthUnavailable   = "AUTH_UNAVAILABLE"
	CodeQuotaExhausted    = "QUOTA_EXHAUSTED"
	CodeTransport         = "TRANSPORT_ERROR"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeInvalidStrategy   = "INVALID_STRATEGY"
	CodeUnderspecified    = "UNDERSPECIFIED_DRAFT"
	CodeBoardroomFailure  = "BOARDROOM_FAILURE"
	CodeContentRejected   = "CONTENT_REJECTED"
	CodeAborted           = "ABORTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func AuthUnavailable(cause error) *AppError {
	return &AppError{Code: CodeAuthUnavailable, Message: "no access token could be obtained", Cause: cause}
}

func QuotaExhausted(model string, attempts int) *AppError {
	return New(CodeQuotaExhausted, fmt.Sprintf("quota exhausted for %s after %d attempts", model, attempts))
}

func Transport(cause error, attempts int) *AppError {
	return &AppError{
		Code:    CodeTransport,
		Message: fmt.Sprintf("transport failure after %d attempts", attempts),
		Cause:   cause,
	}
}

// MalformedResponse carries a truncated preview of the offending model
// output so the failure is debuggable from logs alone
func MalformedResponse(preview string) *AppError {
	return New(CodeMalformedResponse, fmt.Sprintf("could not extract structured response: %s", Preview(preview, 120)))
}

func InvalidStrategy(preview string) *AppError {
	return New(CodeInvalidStrategy, fmt.Sprintf("strategist produced an invalid artifact: %s", Preview(preview, 100)))
}

func Underspecified(got int) *AppError {
	return New(CodeUnderspecified, fmt.Sprintf("assistant director returned %d scenes, need 10", got))
}

func BoardroomFailure(turn string, cause error) *AppError {
	return &AppError{
		Code:    CodeBoardroomFailure,
		Message: fmt.Sprintf("boardroom %s turn failed", turn),
		Cause:   cause,
	}
}

func ContentRejected(reason string) *AppError {
	return New(CodeContentRejected, fmt.Sprintf("backend rejected the request: %s", reason))
}

func Aborted(stage string) *AppError {
	return New(CodeAborted, fmt.Sprintf("run aborted during %s", stage))
}

// Preview truncates raw model output for error messages
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
