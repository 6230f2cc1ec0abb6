// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftwork-backend/internal/applications"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/models"
	"shiftwork-backend/internal/payments"
	"shiftwork-backend/internal/shifts"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	shifts       *shifts.Service
	applications *applications.Service
	gateway      *payments.Gateway
	errs         *errors.HTTPHandler
	health       []HealthChecker
}

func NewHandlers(shiftSvc *shifts.Service, appSvc *applications.Service,
	gateway *payments.Gateway, errs *errors.HTTPHandler, health ...HealthChecker) *Handlers {
	return &Handlers{
		shifts:       shiftSvc,
		applications: appSvc,
		gateway:      gateway,
		errs:         errs,
		health:       health,
	}
}

// ==========================================
// Shift Handlers
// ==========================================

func (h *Handlers) CreateShift(w http.ResponseWriter, r *http.Request) {
	var input shifts.CreateShiftInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.errs.WriteError(w, errors.NewValidationError("malformed request body"))
		return
	}

	shift, err := h.shifts.Create(r.Context(), PrincipalFrom(r.Context()), input)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shift)
}

func (h *Handlers) PublishShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.shifts.Publish)
}

func (h *Handlers) CompleteShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.shifts.Complete)
}

func (h *Handlers) CancelShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.shifts.Cancel)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, *models.Principal, string) (*models.Shift, error)) {
	shift, err := fn(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (h *Handlers) GetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.shifts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (h *Handlers) ListShifts(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}

	results, err := h.shifts.List(r.Context(), filters)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"shifts": results})
}

// ==========================================
// Application Handlers
// ==========================================

func (h *Handlers) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var input applications.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.errs.WriteError(w, errors.NewValidationError("malformed request body"))
		return
	}
	input.ShiftID = chi.URLParam(r, "id")

	app, err := h.applications.Submit(r.Context(), PrincipalFrom(r.Context()), input)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *Handlers) ListShiftApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.ListForShift(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (h *Handlers) DecideApplication(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.errs.WriteError(w, errors.NewValidationError("malformed request body"))
		return
	}

	err := h.applications.Decide(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"), input.Action)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "decided"})
}

func (h *Handlers) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	err := h.applications.Withdraw(r.Context(), PrincipalFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *Handlers) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.ListMine(r.Context(), PrincipalFrom(r.Context()))
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

// ==========================================
// Payment Handlers
// ==========================================

// CreatePaymentIntent only accepts a price key. The amount the caller will be
// charged is resolved server-side.
func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PriceKey       string `json:"priceKey"`
		IdempotencyKey string `json:"idempotencyKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.errs.WriteError(w, errors.NewValidationError("malformed request body"))
		return
	}

	result, err := h.gateway.CreatePaymentIntent(r.Context(), input.PriceKey,
		PrincipalFrom(r.Context()).Email, input.IdempotencyKey)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PlanKey        string `json:"planKey"`
		IdempotencyKey string `json:"idempotencyKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.errs.WriteError(w, errors.NewValidationError("malformed request body"))
		return
	}

	result, err := h.gateway.CreateSubscription(r.Context(), input.PlanKey,
		PrincipalFrom(r.Context()).Email, input.IdempotencyKey)
	if err != nil {
		h.errs.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ==========================================
// Health
// ==========================================

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, dep := range h.health {
		if err := dep.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func filtersFromQuery(r *http.Request) (models.ShiftFilters, error) {
	q := r.URL.Query()
	f := models.ShiftFilters{
		VenueID:  q.Get("venueId"),
		Status:   models.ShiftStatus(q.Get("status")),
		Location: q.Get("location"),
		Skill:    q.Get("skill"),
	}

	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(name); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return f, errors.NewValidationError(name + " must be RFC3339")
			}
			*dst = ts
		}
	}

	f.Limit = intQuery(q.Get("limit"))
	f.Offset = intQuery(q.Get("offset"))
	return f, nil
}

func intQuery(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
