// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/webhooks"
)

// NewRouter wires all routes. The API surface requires identity headers or a
// live session token; the webhook endpoint authenticates by signature instead.
func NewRouter(h *Handlers, webhookHandler *webhooks.Handler, errs *errors.HTTPHandler,
	sessions *cache.SessionStore) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequirePrincipal(errs, sessions))

		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.CreateShift)
			r.Get("/", h.ListShifts)
			r.Get("/{id}", h.GetShift)
			r.Post("/{id}/publish", h.PublishShift)
			r.Post("/{id}/complete", h.CompleteShift)
			r.Post("/{id}/cancel", h.CancelShift)
			r.Post("/{id}/applications", h.SubmitApplication)
			r.Get("/{id}/applications", h.ListShiftApplications)
		})

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", h.ListMyApplications)
			r.Post("/{id}/decision", h.DecideApplication)
			r.Post("/{id}/withdraw", h.WithdrawApplication)
		})

		r.Post("/payments/intent", h.CreatePaymentIntent)
		r.Post("/subscriptions", h.CreateSubscription)
	})

	r.Post("/webhooks/stripe", webhookHandler.ServeHTTP)

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
