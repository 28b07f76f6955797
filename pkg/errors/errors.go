package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation              = errors.New("validation failed")
	ErrMemberNotFound          = errors.New("member not found")
	ErrLoanNotFound            = errors.New("loan not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidStatusTransition = errors.New("invalid loan status transition")
	ErrLoanAlreadyClosed       = errors.New("loan is already closed")
	ErrNoOutstandingBalance    = errors.New("no outstanding balance")
	ErrConfirmationRequired    = errors.New("confirmation phrase does not match")
	ErrClearInProgress         = errors.New("year-end clear already in progress")
	ErrStore                   = errors.New("store operation failed")
	ErrTransactionFailure      = errors.New("transaction failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeMemberNotFound          = "MEMBER_NOT_FOUND"
	ErrCodeLoanNotFound            = "LOAN_NOT_FOUND"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeLoanAlreadyClosed       = "LOAN_ALREADY_CLOSED"
	ErrCodeNoOutstandingBalance    = "NO_OUTSTANDING_BALANCE"
	ErrCodeConfirmationRequired    = "CONFIRMATION_REQUIRED"
	ErrCodeClearInProgress         = "CLEAR_IN_PROGRESS"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeTransactionFailure      = "TRANSACTION_FAILURE"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(field, message string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("%s: %s", field, message),
		ErrValidation,
	)
}

// WrapInvalidAmount reports a missing, zero or negative amount.
func WrapInvalidAmount(field string, amount fmt.Stringer) *BusinessError {
	msg := fmt.Sprintf("%s is required and must be greater than zero", field)
	if amount != nil {
		msg = fmt.Sprintf("%s must be greater than zero, got %s", field, amount)
	}
	return NewBusinessError(
		ErrCodeValidation,
		msg,
		fmt.Errorf("%w: %w", ErrValidation, ErrInvalidAmount),
	)
}

func WrapMemberNotFound(memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberNotFound,
		fmt.Sprintf("Member with ID %s not found", memberID),
		ErrMemberNotFound,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidStatusTransition(loanID, from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStatusTransition,
		fmt.Sprintf("Loan %s cannot move from %s to %s", loanID, from, to),
		ErrInvalidStatusTransition,
	)
}

func WrapLoanAlreadyClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapNoOutstandingBalance(loanID, what string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoOutstandingBalance,
		fmt.Sprintf("Loan with ID %s has no outstanding %s", loanID, what),
		ErrNoOutstandingBalance,
	)
}

func WrapConfirmationRequired() *BusinessError {
	return NewBusinessError(
		ErrCodeConfirmationRequired,
		"year-end clear requires the confirmation phrase",
		ErrConfirmationRequired,
	)
}

func WrapClearInProgress() *BusinessError {
	return NewBusinessError(
		ErrCodeClearInProgress,
		"another year-end clear is running",
		ErrClearInProgress,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrStore, err),
	)
}

// WrapTransactionFailure marks a multi-statement write that did not commit.
// Callers must treat it as fatal: recorded rows and aggregates may disagree
// if the store did not roll back.
func WrapTransactionFailure(operation string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeTransactionFailure,
		fmt.Sprintf("%s did not complete", operation),
		fmt.Errorf("%w: %w", ErrTransactionFailure, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// Code extracts the business error code from err, or "" if err is not a
// BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
