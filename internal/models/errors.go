package models

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrorCodeMalformedJSON ErrorCode = "MALFORMED_JSON"
	ErrorCodeEmptyMessage  ErrorCode = "EMPTY_MESSAGE"
	ErrorCodeInvalidWallet ErrorCode = "INVALID_WALLET_ADDRESS"

	// Rate limiting errors
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Payment errors
	ErrorCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// Configuration errors (missing credentials for AI or ledger)
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Internal errors
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusCode returns the appropriate HTTP status code for each error type
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMalformedJSON, ErrorCodeEmptyMessage, ErrorCodeInvalidWallet:
		return http.StatusBadRequest
	case ErrorCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ErrorResponse represents the standardized error response format.
// WaitTime is populated for wallet-cooldown denials only, in seconds.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
	WaitTime  *float64    `json:"waitTime,omitempty"`
}

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	Cause      error
	StatusCode int
	// WaitSeconds carries the remaining cooldown for rate-limit errors
	WaitSeconds *float64
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithWaitTime attaches a cooldown wait time in seconds
func (e *AppError) WithWaitTime(seconds float64) *AppError {
	e.WaitSeconds = &seconds
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: code.HTTPStatusCode(),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: code.HTTPStatusCode(),
	}
}

// HandleError classifies err into an AppError if needed, logs it, and sends
// the standardized JSON error response. Raw causes never reach the client.
func HandleError(c *gin.Context, err error, log *zap.Logger) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Failed to process request", err)
	}

	if log != nil {
		fields := []zap.Field{
			zap.String("error_code", string(appErr.Code)),
			zap.String("error_message", appErr.Message),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.Error(appErr.Cause))
		}

		if appErr.StatusCode >= 500 {
			log.Error("Application error", fields...)
		} else {
			log.Warn("Client error", fields...)
		}
	}

	c.JSON(appErr.StatusCode, &ErrorResponse{
		Error: ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Timestamp: time.Now().UTC(),
		WaitTime:  appErr.WaitSeconds,
	})
}
