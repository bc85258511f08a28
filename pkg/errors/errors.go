package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeForbidden indicates the caller does not own the resource
	ErrorTypeForbidden ErrorType = "FORBIDDEN"

	// ErrorTypeRateLimited indicates an upstream throttled the caller
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeFunctionNotFound indicates the inference function does not exist
	ErrorTypeFunctionNotFound ErrorType = "FUNCTION_NOT_FOUND"

	// ErrorTypeInvalidPayload indicates the inference function rejected the payload
	ErrorTypeInvalidPayload ErrorType = "INVALID_PAYLOAD"

	// ErrorTypeBadCredentials indicates the cloud credentials were rejected
	ErrorTypeBadCredentials ErrorType = "BAD_CREDENTIALS"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Fatal reports whether retrying the operation cannot succeed without
// operator intervention.
func (e *AppError) Fatal() bool {
	switch e.Type {
	case ErrorTypeFunctionNotFound, ErrorTypeInvalidPayload, ErrorTypeBadCredentials:
		return true
	}
	return false
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeRateLimited,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewFunctionNotFoundError reports a missing inference function
func NewFunctionNotFoundError(functionName string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeFunctionNotFound,
		Message: fmt.Sprintf("function '%s' not found, check AWS_REGION and LAMBDA_PREDICTION_FUNCTION_NAME", functionName),
		Err:     err,
	}
}

// NewInvalidPayloadError reports a payload the inference function refused
func NewInvalidPayloadError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidPayload,
		Message: "invalid payload sent to the prediction function, check the request fields",
		Err:     err,
	}
}

// NewBadCredentialsError reports rejected cloud credentials
func NewBadCredentialsError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeBadCredentials,
		Message: "invalid AWS credentials, check AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY",
		Err:     err,
	}
}

// MessageOf returns the client-facing message of err: the Message of its
// AppError, or err.Error() when there is none.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
