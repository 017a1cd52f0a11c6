package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the structured error carried inside the library. At the
// boundary it collapses into its Code.
type AppError struct {
	// Code is the boundary status code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = code.Text()
	}
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Wrap creates a new AppError for code with cause attached.
func Wrap(code ErrorCode, cause error) *AppError {
	return New(code, "").WithCause(cause)
}

// Sentinels usable with errors.Is.
var (
	ErrNotInitialized     = New(ErrCodeNotInitialized, "")
	ErrAlreadyInitialized = New(ErrCodeAlreadyInitialized, "")
	ErrTimeout            = New(ErrCodeTimeout, "")
	ErrClosed             = New(ErrCodeClosed, "")
)

// --- Common Error Constructors ---

// NotInitialized creates an error for a call made before the engine is ready.
func NotInitialized() *AppError {
	return New(ErrCodeNotInitialized, "the validation engine is not initialized")
}

// AlreadyInitialized creates an error for a call that requires an
// uninitialized engine.
func AlreadyInitialized(operation string) *AppError {
	return New(ErrCodeAlreadyInitialized, "the validation engine is already initialized").
		WithDetail("operation", operation)
}

// Timeout creates an error for an operation that ran out of time.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "the operation timed out").
		WithDetail("operation", operation)
}

// InvalidIssuer creates an error for an issuer that is not an absolute URL.
func InvalidIssuer(iss string, cause error) *AppError {
	return New(ErrCodeInvalidIss, fmt.Sprintf("invalid issuer %q", iss)).
		WithDetail("issuer", iss).
		WithCause(cause)
}

// InvalidArgument creates an error for a caller supplied argument.
func InvalidArgument(name, reason string) *AppError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf("invalid %s: %s", name, reason)).
		WithDetail("argument", name)
}

// NotSupported creates an error for a capability the engine does not offer.
func NotSupported(capability string) *AppError {
	return New(ErrCodeNotSupported, fmt.Sprintf("capability %q is not supported", capability)).
		WithDetail("capability", capability)
}

// Closed creates an error for an engine that shut down underneath the call.
func Closed() *AppError {
	return New(ErrCodeClosed, "the validation engine is closed")
}

// Token creates a token validation error with the given code.
func Token(code ErrorCode, cause error) *AppError {
	return Wrap(code, cause)
}

// MissingScope creates an error for a token that lacks a required scope.
func MissingScope(scope string) *AppError {
	return New(ErrCodeMissingRequiredScope, fmt.Sprintf("missing required scope %q", scope)).
		WithDetail("scope", scope)
}

// UserinfoFailed creates an error for a failed userinfo request.
func UserinfoFailed(cause error) *AppError {
	return New(ErrCodeUserinfoFailed, "userinfo request failed").WithCause(cause)
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeUnknown, "an unexpected error occurred").WithCause(cause)
}

// CodeOf collapses err into a boundary code. nil maps to ErrCodeNone and
// errors without an AppError in their chain map to ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeNone
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeUnknown
}
