package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	// Validation errors
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate limiting
	ErrCodeTooManyAttempts ErrorCode = "TOO_MANY_ATTEMPTS"

	// Upload errors
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"

	// Server errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeEmailFailed   ErrorCode = "EMAIL_FAILED"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeInvalidToken, ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case ErrCodeBadRequest, ErrCodeMissingParameter:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTooManyAttempts:
		return http.StatusTooManyRequests
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeInternal, ErrCodeDatabaseError, ErrCodeEmailFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError sends a standardized error response
func RespondError(c echo.Context, err *APIError) error {
	return c.JSON(err.HTTPStatus(), map[string]interface{}{
		"success": false,
		"error":   err.Message,
		"code":    err.Code,
	})
}

// Common error constructors for convenience

// ErrUnauthorized returns an unauthorized error
func ErrUnauthorized(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAPIError(ErrCodeUnauthorized, message)
}

// ErrNotFound returns a not found error
func ErrNotFound(resource string) *APIError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAPIError(ErrCodeNotFound, message)
}

// ErrBadRequest returns a bad request error
func ErrBadRequest(message string) *APIError {
	if message == "" {
		message = "Invalid request"
	}
	return NewAPIError(ErrCodeBadRequest, message)
}

// ErrMissingParameter returns a missing parameter error
func ErrMissingParameter(param string) *APIError {
	return NewAPIError(ErrCodeMissingParameter, fmt.Sprintf("Missing required parameter: %s", param))
}

// ErrTooManyAttempts returns a rate limit error
func ErrTooManyAttempts() *APIError {
	return NewAPIError(ErrCodeTooManyAttempts, "Too many login attempts. Please try again later.")
}

// ErrFileTooLarge returns an upload size error
func ErrFileTooLarge(limit int64) *APIError {
	return NewAPIError(ErrCodeFileTooLarge, fmt.Sprintf("File exceeds the maximum upload size of %d bytes", limit))
}

// ErrInternal returns an internal server error
func ErrInternal(message string) *APIError {
	if message == "" {
		message = "Internal server error"
	}
	return NewAPIError(ErrCodeInternal, message)
}

// GetClaims extracts JWT claims from the context
// Returns nil if no claims are present
func GetClaims(c echo.Context) *JWTClaims {
	claims, ok := c.Get("user").(*JWTClaims)
	if !ok || claims == nil {
		return nil
	}
	return claims
}

// RequireClaims extracts JWT claims and returns an error if not authenticated
func RequireClaims(c echo.Context) (*JWTClaims, error) {
	claims := GetClaims(c)
	if claims == nil {
		return nil, RespondError(c, ErrUnauthorized(""))
	}
	return claims, nil
}
