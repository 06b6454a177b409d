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

// ---- Access Control (ACL) ----

func ErrUnauthorizedRole(role string) *AppError {
	return New("ACL_001", fmt.Sprintf("Caller does not hold the %s role", role), http.StatusForbidden)
}

func ErrInvalidRole(role string) *AppError {
	return New("ACL_002", fmt.Sprintf("Invalid role: %s does not exist", role), http.StatusBadRequest)
}

func ErrLastMember() *AppError {
	return New("ACL_003", "Cannot renounce the last member of the role", http.StatusConflict)
}

func ErrNoRole() *AppError {
	return New("ACL_004", "This member has no such role assigned", http.StatusNotFound)
}

// ---- Token Validation (TOK) ----

func ErrTokenNotWhitelisted() *AppError {
	return New("TOK_001", "Token is not whitelisted", http.StatusForbidden)
}

func ErrNonFungibleToken() *AppError {
	return New("TOK_002", "Token must be fungible (non-zero decimals)", http.StatusBadRequest)
}

func ErrInvalidTokenPrecision() *AppError {
	return New("TOK_003", "Backend precision exceeds on-chain token decimals", http.StatusBadRequest)
}

func ErrTokenAlreadyWhitelisted() *AppError {
	return New("TOK_004", "Token is already whitelisted", http.StatusConflict)
}

// ---- Fundlock (FND) ----

func ErrAmountZero() *AppError {
	return New("FND_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("FND_002", "Insufficient funds", http.StatusPaymentRequired)
}

func ErrWithdrawalLimitReached() *AppError {
	return New("FND_003", "Withdrawal queue is at capacity", http.StatusUnprocessableEntity)
}

func ErrInvalidIndex() *AppError {
	return New("FND_004", "No withdrawal exists at the given index", http.StatusNotFound)
}

func ErrReleaseLockActive() *AppError {
	return New("FND_005", "Release lock has not elapsed yet", http.StatusConflict)
}

func ErrInsufficientFundsInVault() *AppError {
	return New("FND_006", "Custody vault cannot cover the withdrawal", http.StatusConflict)
}

func ErrAccountOrderViolated() *AppError {
	return New("FND_007", "Supplied account does not match the movement leg", http.StatusBadRequest)
}

func ErrFundlockExists() *AppError {
	return New("FND_008", "Fundlock configuration already initialized", http.StatusConflict)
}

func ErrFundlockNotInitialized() *AppError {
	return New("FND_009", "Fundlock configuration not initialized", http.StatusConflict)
}

// ---- Ledger / Settlement batches (LDG) ----

func ErrEmptyFundMovements() *AppError {
	return New("LDG_001", "Fund movement batch is empty", http.StatusBadRequest)
}

func ErrEmptyAmounts() *AppError {
	return New("LDG_002", "Fund movement carries no non-zero amount", http.StatusBadRequest)
}

func ErrInvalidAccountsAmount() *AppError {
	return New("LDG_003", "Account list does not match the movement legs", http.StatusBadRequest)
}

func ErrEmptyPositions() *AppError {
	return New("LDG_004", "Position batch is empty", http.StatusBadRequest)
}

func ErrLedgerExists() *AppError {
	return New("LDG_005", "Ledger already initialized for this token pair", http.StatusConflict)
}

func ErrLedgerNotFound() *AppError {
	return New("LDG_006", "No ledger initialized for this token pair", http.StatusNotFound)
}

func ErrAmountOverflow() *AppError {
	return New("LDG_007", "Scaled movement amount exceeds 64-bit chain units", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrClientSuspended() *AppError {
	return New("AUTH_003", "Client account is suspended", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrRateLimitExceeded() *AppError {
	return New("SYS_002", "Rate limit exceeded", http.StatusTooManyRequests)
}

// Validation returns a generic request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// NotFound returns a generic missing-entity error.
func NotFound(entity string) *AppError {
	return New("VAL_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}
