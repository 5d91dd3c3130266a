package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine-readable identifier returned to clients
type ErrorCode string

const (
	CodeInternalError      ErrorCode = "internal_error"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeNotFound           ErrorCode = "not_found"
	CodeTooManyRequests    ErrorCode = "too_many_requests"
	CodeUnauthenticated    ErrorCode = "authentication_required"
	CodeInvalidToken       ErrorCode = "invalid_token"
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeUserExists         ErrorCode = "user_exists"
	CodeResetTokenInvalid  ErrorCode = "invalid_or_expired_token"

	CodeSubscriptionRequired ErrorCode = "subscription_required"
	CodeSubscriptionExpired  ErrorCode = "subscription_expired"

	CodePlanAmountRequired  ErrorCode = "plan_amount_required"
	CodeInvalidPlan         ErrorCode = "invalid_plan"
	CodeAmountMismatch      ErrorCode = "amount_mismatch"
	CodeOrderNotFound       ErrorCode = "order_not_found"
	CodeGatewayUnavailable  ErrorCode = "gateway_unavailable"
	CodeInitiationFailed    ErrorCode = "payment_initiation_failed"
	CodeIllegalTransition   ErrorCode = "illegal_order_transition"
	CodeWebhookUnauthorized ErrorCode = "unauthorized_webhook"
	CodeMissingTransaction  ErrorCode = "missing_transaction_id"

	CodeInvalidQuizType ErrorCode = "invalid_quiz_type"
)

// PaymentRetryMessage is the only payment failure text shown to end users
const PaymentRetryMessage = "Payment could not be processed, please retry"

// AppError carries a client-facing code and message plus the wrapped cause
type AppError struct {
	Code      ErrorCode
	Message   string
	HTTPCode  int
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code so sentinel values can be compared after wrapping
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an AppError
func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{Code: code, Message: message, HTTPCode: httpCode}
}

// Wrap attaches a cause to a copy of the given error
func Wrap(base *AppError, err error) *AppError {
	wrapped := *base
	wrapped.Err = err
	return &wrapped
}

// Internal wraps an unexpected failure
func Internal(err error) *AppError {
	return &AppError{Code: CodeInternalError, Message: "Internal server error", HTTPCode: http.StatusInternalServerError, Err: err}
}

// Validation creates a 400 error with the given code
func Validation(code ErrorCode, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

// As extracts an AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether the caller may safely retry the same request
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Retryable
}
