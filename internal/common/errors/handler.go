// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPHandler translates typed errors into transport responses. Internal
// detail stays in the logs, keyed by a correlation id that is also returned
// to the caller.
type HTTPHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewHTTPHandler(logger Logger) *HTTPHandler {
	return &HTTPHandler{logger: logger}
}

// ErrorResponse is the wire shape of every error returned by the API.
type ErrorResponse struct {
	Code          ErrorCode `json:"code"`
	Message       string    `json:"message"`
	Retryable     bool      `json:"retryable"`
	CorrelationID string    `json:"correlationId"`
}

// HTTPStatusMapping maps internal error codes to HTTP statuses.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeValidation:                  http.StatusBadRequest,
	ErrCodePreconditionFailed:          http.StatusConflict,
	ErrCodeNotFound:                    http.StatusNotFound,
	ErrCodeDuplicateApplication:        http.StatusConflict,
	ErrCodeInvalidPriceKey:             http.StatusBadRequest,
	ErrCodeInvalidPlanKey:              http.StatusBadRequest,
	ErrCodeCardDeclined:                http.StatusPaymentRequired,
	ErrCodeRateLimited:                 http.StatusTooManyRequests,
	ErrCodeGatewayUnavailable:          http.StatusBadGateway,
	ErrCodeSignatureVerificationFailed: http.StatusBadRequest,
	ErrCodeInternal:                    http.StatusInternalServerError,
}

// WriteError renders err as JSON and logs the full detail server-side.
func (h *HTTPHandler) WriteError(w http.ResponseWriter, err error) {
	stdErr := h.normalizeError(err)
	correlationID := uuid.New().String()

	status, ok := HTTPStatusMapping[stdErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"category":      GetErrorCategory(stdErr.Code),
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"correlationId": correlationID,
	}
	// Catalog violations and internal errors get elevated severity. Catalog
	// misses in particular can indicate a tampering attempt.
	switch stdErr.Code {
	case ErrCodeInvalidPriceKey, ErrCodeInvalidPlanKey, ErrCodeInternal:
		h.logger.Error("request failed", fields)
	default:
		h.logger.Warn("request failed", fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:          stdErr.Code,
		Message:       stdErr.Message,
		Retryable:     stdErr.Retryable,
		CorrelationID: correlationID,
	})
}

// normalizeError ensures we always have a StandardError. Unexpected errors
// collapse to a generic message; the original detail is preserved for logging.
func (h *HTTPHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
