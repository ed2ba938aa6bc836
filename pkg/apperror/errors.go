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

// Validation returns a 400 validation error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidStatus(status string) *AppError {
	return New("VAL_002", fmt.Sprintf("Invalid status %q", status), http.StatusBadRequest)
}

func ErrInvalidScanType(scanType string) *AppError {
	return New("VAL_003", fmt.Sprintf("Invalid scan_type %q", scanType), http.StatusBadRequest)
}

func ErrInvalidAddress() *AppError {
	return New("VAL_004", "Invalid Stellar address", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_005", "Invalid amount", http.StatusBadRequest)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrUnauthenticated() *AppError {
	return New("AUTH_001", "Missing or invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrNotTokenAdmin() *AppError {
	return New("AUTH_003", "You must control the token admin wallet to perform this action", http.StatusForbidden)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrStatusConflict(expected, actual string) *AppError {
	return New("RES_002", fmt.Sprintf("Previous status mismatch: expected %q, current is %q", expected, actual), http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded(action string, limit int, window string) *AppError {
	return New("RATE_001", fmt.Sprintf("Rate limit exceeded: %d %s actions per %s", limit, action, window), http.StatusTooManyRequests)
}

func ErrEndpointRateLimited() *AppError {
	return New("RATE_002", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Ledger (LEDGER) ----

// ErrLedgerRejected indicates the network deterministically rejected the
// transaction; resubmitting the same envelope would fail again.
func ErrLedgerRejected(err error) *AppError {
	return Wrap("LEDGER_001", "Ledger rejected the transaction", http.StatusBadGateway, err)
}

// ErrLedgerUnconfirmed indicates the transaction was submitted but finality
// was not observed within the timeout. The outcome is unknown: the caller must
// not assume the operation did not happen.
func ErrLedgerUnconfirmed(err error) *AppError {
	return Wrap("LEDGER_002", "Ledger confirmation not observed within timeout", http.StatusGatewayTimeout, err)
}

func ErrLedgerUnavailable(err error) *AppError {
	return Wrap("LEDGER_003", "Ledger network unreachable", http.StatusBadGateway, err)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrWalletCorrupted is raised when an existing wallet secret fails to
// decrypt. This is a security event and must never be treated as "no wallet".
func ErrWalletCorrupted(err error) *AppError {
	return Wrap("SYS_002", "Wallet secret could not be decrypted", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
