// internal/common/errors/errors.go

// Package errors provides the standardized error taxonomy for the shift
// marketplace backend.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"

	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"

	ErrCodeInvalidPriceKey ErrorCode = "INVALID_PRICE_KEY"
	ErrCodeInvalidPlanKey  ErrorCode = "INVALID_PLAN_KEY"

	ErrCodeCardDeclined       ErrorCode = "CARD_DECLINED"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"

	ErrCodeSignatureVerificationFailed ErrorCode = "SIGNATURE_VERIFICATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, unwrapping as needed.
// Unrecognized errors map to INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable bad-input error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionFailedError creates a non-retryable state-machine guard error.
func NewPreconditionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreconditionFailed,
		Message:   "Operation not allowed in current state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing-resource error.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(applicantID, shiftID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists for this shift",
		Details:   fmt.Sprintf("applicantId: %s, shiftId: %s", applicantID, shiftID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPriceKeyError creates a non-retryable unknown price key error.
// Security relevant: logged at elevated severity by the HTTP responder.
func NewInvalidPriceKeyError(priceKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPriceKey,
		Message:   "Unknown price key",
		Details:   fmt.Sprintf("priceKey: %s", priceKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPlanKeyError creates a non-retryable unknown plan key error.
func NewInvalidPlanKeyError(planKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPlanKey,
		Message:   "Unknown plan key",
		Details:   fmt.Sprintf("planKey: %s", planKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCardDeclinedError creates a user-correctable card decline error.
func NewCardDeclinedError(declineCode string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCardDeclined,
		Message:   "Your card was declined",
		Details:   fmt.Sprintf("declineCode: %s", declineCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a retryable rate limit error.
func NewRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests, please retry shortly",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewayUnavailableError creates a retryable transient gateway error.
func NewGatewayUnavailableError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeGatewayUnavailable,
		Message:   "Payment processor is temporarily unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignatureVerificationFailedError creates a non-retryable webhook
// signature error. The event is rejected, never applied.
func NewSignatureVerificationFailedError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeSignatureVerificationFailed,
		Message:   "Webhook signature verification failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure. Details are logged, never
// surfaced to callers.
func NewInternalError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether the caller may safely retry the operation that
// produced err, assuming the operation itself is idempotent.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the coarse category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation, ErrCodePreconditionFailed, ErrCodeNotFound, ErrCodeDuplicateApplication:
		return "DOMAIN"
	case ErrCodeInvalidPriceKey, ErrCodeInvalidPlanKey:
		return "CATALOG"
	case ErrCodeCardDeclined, ErrCodeRateLimited, ErrCodeGatewayUnavailable:
		return "GATEWAY"
	case ErrCodeSignatureVerificationFailed:
		return "WEBHOOK"
	default:
		return "OTHER"
	}
}
