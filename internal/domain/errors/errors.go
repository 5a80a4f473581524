package errors

import (
	"net/http"

	"tenantauth/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types. Error codes are stable, machine readable sub-reasons clients can branch on.
var (
	// Request authentication chain
	ErrMissingToken = NewBaseError(
		http.StatusUnauthorized,
		"missing_token",
		"Authentication required",
		"",
	)

	ErrInvalidToken = NewBaseError(
		http.StatusUnauthorized,
		"invalid_token",
		"Invalid or expired token",
		"",
	)

	ErrInvalidTokenType = NewBaseError(
		http.StatusUnauthorized,
		"invalid_token_type",
		"Invalid token type",
		"",
	)

	ErrTokenRevoked = NewBaseError(
		http.StatusUnauthorized,
		"token_revoked",
		"Token has been revoked",
		"",
	)

	ErrUserNotFound = NewBaseError(
		http.StatusUnauthorized,
		"user_not_found",
		"User not found",
		"",
	)

	ErrUserInactive = NewBaseError(
		http.StatusForbidden,
		"user_inactive",
		"User account is inactive",
		"",
	)

	// Authorization gates
	ErrAuthRequired = NewBaseError(
		http.StatusForbidden,
		"auth_required",
		"Authentication required",
		"",
	)

	ErrNotSuperuser = NewBaseError(
		http.StatusForbidden,
		"not_superuser",
		"Superuser privileges required",
		"",
	)

	ErrPermissionDenied = NewBaseError(
		http.StatusForbidden,
		"permission_denied",
		"Missing required permissions",
		"",
	)

	// Credential flows
	ErrRegistrationFailed = NewBaseError(
		http.StatusConflict,
		"registration_failed",
		"Registration failed. If this email is already registered, please use the login page.",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"invalid_credentials",
		"Invalid email or password",
		"",
	)

	ErrAccountInactive = NewBaseError(
		http.StatusUnauthorized,
		"account_inactive",
		"Account is inactive",
		"",
	)

	ErrInvalidRefreshToken = NewBaseError(
		http.StatusUnauthorized,
		"invalid_refresh_token",
		"Invalid refresh token",
		"",
	)

	ErrRefreshTokenExpired = NewBaseError(
		http.StatusUnauthorized,
		"token_expired",
		"Refresh token has expired",
		"",
	)

	ErrUserInvalid = NewBaseError(
		http.StatusUnauthorized,
		"user_invalid",
		"User not found or inactive",
		"",
	)

	ErrOAuthExists = NewBaseError(
		http.StatusConflict,
		"oauth_exists",
		"Account is already linked to a different identity for this provider",
		"",
	)

	ErrEmailExists = NewBaseError(
		http.StatusConflict,
		"email_exists",
		"Email is already in use",
		"",
	)

	// OAuth2 exchange flow
	ErrOAuthProviderError = NewBaseError(
		http.StatusBadRequest,
		"oauth_error",
		"OAuth provider returned an error",
		"",
	)

	ErrOAuthMissingCode = NewBaseError(
		http.StatusBadRequest,
		"missing_code",
		"Authorization code is required",
		"",
	)

	ErrOAuthInvalidState = NewBaseError(
		http.StatusBadRequest,
		"invalid_state",
		"Invalid or expired OAuth state",
		"",
	)

	ErrOAuthStateMismatch = NewBaseError(
		http.StatusBadRequest,
		"state_mismatch",
		"OAuth state was issued for a different provider",
		"",
	)

	ErrOAuthFailed = NewBaseError(
		http.StatusBadRequest,
		"oauth_failed",
		"Failed to authenticate with OAuth provider",
		"",
	)

	ErrOAuthAccountInactive = NewBaseError(
		http.StatusBadRequest,
		"account_inactive",
		"Account is inactive",
		"",
	)

	ErrOAuthProviderNotFound = NewBaseError(
		http.StatusNotFound,
		"oauth_provider_not_found",
		"OAuth provider not found or not configured",
		"",
	)

	// Validation-related errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"validation_failed",
		"Input validation failed",
		"",
	)

	ErrPasswordStrength = NewBaseError(
		http.StatusBadRequest,
		"weak_password",
		"Password does not meet the strength requirements",
		"",
	)

	ErrPasswordForbiddenWords = NewBaseError(
		http.StatusBadRequest,
		"weak_password",
		"Password contains forbidden words or patterns",
		"",
	)

	ErrRateLimitExceeded = NewBaseError(
		http.StatusTooManyRequests,
		"rate_limit_exceeded",
		"Too many requests, please retry later",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"internal_error",
		"Internal server error",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"not_found",
		"Resource not found",
		"",
	)
)

// NewPermissionDenied builds a permission_denied error with a caller specific message.
// Details carry the required permissions and are only surfaced in logs.
func NewPermissionDenied(message, details string) *BaseError {
	return NewBaseError(http.StatusForbidden, ErrPermissionDenied.ErrorCode(), message, details)
}

// WithMessage returns a copy of the error carrying a different user facing message.
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   message,
		details:   e.details,
	}
}

// Is matches any BaseError with the same error code, so copies produced by
// WithDetails or WithMessage still satisfy errors.Is against the predefined value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.httpCode == t.httpCode && e.errorCode == t.errorCode
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "database_execute_failed"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database operation failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
