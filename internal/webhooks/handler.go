// internal/webhooks/handler.go
package webhooks

import (
	"io"
	"net/http"

	"shiftwork-backend/internal/common/errors"
)

// maxPayloadBytes bounds webhook bodies; processor events are small.
const maxPayloadBytes = 1 << 16

// Handler is the HTTP entry point for processor callbacks. It reads the raw
// body untouched so the signature check covers exactly the bytes sent.
type Handler struct {
	processor *Processor
	errs      *errors.HTTPHandler
}

func NewHandler(processor *Processor, errs *errors.HTTPHandler) *Handler {
	return &Handler{processor: processor, errs: errs}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.errs.WriteError(w, errors.NewValidationError("unreadable request body"))
		return
	}

	if _, err := h.processor.Process(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.errs.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
