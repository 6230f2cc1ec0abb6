// internal/webhooks/events.go

// Package webhooks receives processor callbacks, verifies their signatures
// over the raw body, and applies the resulting state changes exactly once.
package webhooks

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
)

// Event types we act on. Everything else is acknowledged and ignored so the
// processor does not retry deliveries we will never handle.
const (
	EventPaymentSucceeded    = "payment_intent.succeeded"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// stateChange is the normalized outcome of one recognized event: which mirror
// row to touch and what status it moves to.
type stateChange struct {
	ProviderID string
	Status     string
}

// changeFor maps a verified event to its state change. ok is false for event
// types we ignore.
func changeFor(event stripe.Event) (stateChange, bool, error) {
	switch string(event.Type) {
	case EventPaymentSucceeded, EventPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return stateChange{}, false, err
		}
		status := "succeeded"
		if string(event.Type) == EventPaymentFailed {
			status = "failed"
		}
		return stateChange{ProviderID: intent.ID, Status: status}, true, nil

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return stateChange{}, false, err
		}
		return stateChange{ProviderID: sub.ID, Status: string(sub.Status)}, true, nil

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return stateChange{}, false, err
		}
		return stateChange{ProviderID: sub.ID, Status: "canceled"}, true, nil
	}

	return stateChange{}, false, nil
}
