package domain

import (
	"errors"
	"fmt"
)

// Application error codes. The values are the stable codes clients branch on,
// so they never change once published.
const (
	EINVALID         = "VALIDATION_ERROR"     // Invalid input or validation failure
	EUNAUTHORIZED    = "UNAUTHORIZED"         // No valid session
	EFORBIDDEN       = "FORBIDDEN"            // Session does not own the resource
	ENOTFOUND        = "NOT_FOUND"            // Resource not found
	ECONFLICT        = "CONFLICT"             // Resource conflict (e.g., duplicate)
	EEXPIRED         = "CODE_EXPIRED"         // Challenge or link past its expiry
	EMISMATCH        = "CODE_MISMATCH"        // Supplied code does not match
	ETOOMANYATTEMPTS = "TOO_MANY_ATTEMPTS"    // Attempt ceiling reached
	ETOOLARGE        = "TOO_LARGE"            // Request entity too large
	ERATELIMIT       = "RATE_LIMIT_EXCEEDED"  // Rate limit exceeded
	EUPSTREAM        = "UPSTREAM_UNAVAILABLE" // CRM, payment, email or SMS failure
	EINTERNAL        = "INTERNAL_ERROR"       // Internal server error
	ENOTIMPL         = "NOT_IMPLEMENTED"      // Not implemented
)

// Error represents an application error with structured information.
type Error struct {
	Code    string         // Machine-readable error code
	Op      string         // Operation that failed (e.g., "VerificationService.CheckChallenge")
	Message string         // Human-readable message
	Details map[string]any // Safe to show to clients (remaining attempts, trace id)
	Err     error          // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail sets a client-visible detail and returns the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorDetails returns the client-visible details of the error, if any.
func ErrorDetails(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}

// Expired creates an error for a challenge that outlived its expiry.
func Expired(op string) *Error {
	return &Error{
		Code:    EEXPIRED,
		Op:      op,
		Message: "This code has expired. Please request a new code.",
	}
}

// Mismatch creates an error for a wrong code, carrying the attempts left.
func Mismatch(op string, remaining int) *Error {
	e := &Error{
		Code:    EMISMATCH,
		Op:      op,
		Message: fmt.Sprintf("Incorrect code. %d attempt(s) remaining.", remaining),
	}
	return e.WithDetail("remainingAttempts", remaining)
}

// TooManyAttempts creates the terminal error for an exhausted challenge.
func TooManyAttempts(op string) *Error {
	return &Error{
		Code:    ETOOMANYATTEMPTS,
		Op:      op,
		Message: "Too many incorrect attempts. Please request a new code.",
	}
}

// Upstream creates an error for a failed external collaborator call.
// traceID is passed through to the client when the collaborator supplied one.
func Upstream(err error, op, collaborator, traceID string) *Error {
	e := &Error{
		Code:    EUPSTREAM,
		Op:      op,
		Message: fmt.Sprintf("The %s service is temporarily unavailable. Please try again.", collaborator),
		Err:     err,
	}
	if traceID != "" {
		e.WithDetail("traceId", traceID)
	}
	return e
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}

// AddFieldError adds a field error to an existing validation error.
// If err is not a ValidationError, returns a new one for op.
func AddFieldError(err error, op, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError(op, field, message)
}
