package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error with a caller-supplied message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_003", "Administrator privileges required", http.StatusForbidden)
}

func ErrEmailExists() *AppError {
	return New("AUTH_004", "Email already registered", http.StatusConflict)
}

// ---- Ledger Business Logic (LED) ----

func ErrInsufficientFunds() *AppError {
	return New("LED_001", "Insufficient available balance", http.StatusUnprocessableEntity)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyProcessed() *AppError {
	return New("LED_003", "Request has already been processed", http.StatusConflict)
}

func ErrInvalidAction() *AppError {
	return New("LED_004", "Action must be APPROVE or REJECT", http.StatusBadRequest)
}

func ErrUnitPriceTooHigh(max string) *AppError {
	return New("LED_005", fmt.Sprintf("Unit price cannot exceed %s", max), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("LED_006", "Amount must be positive", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}
