// internal/models/payment.go
package models

import "time"

// PaymentRecordKind distinguishes one-off payment intents from subscriptions.
type PaymentRecordKind string

const (
	PaymentKindIntent       PaymentRecordKind = "payment_intent"
	PaymentKindSubscription PaymentRecordKind = "subscription"
)

// PaymentRecord mirrors the external processor's lifecycle for an intent or
// subscription created from the price catalog. Status mutations happen only
// through the webhook processor.
type PaymentRecord struct {
	ID             string            `json:"id" db:"id"`
	Kind           PaymentRecordKind `json:"kind" db:"kind"`
	ProviderID     string            `json:"providerId" db:"provider_id"` // payment intent or subscription id
	PriceKey       string            `json:"priceKey" db:"price_key"`
	RequesterEmail string            `json:"requesterEmail" db:"requester_email"`
	Amount         int64             `json:"amount" db:"amount"` // minor currency units
	Currency       string            `json:"currency" db:"currency"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty" db:"idempotency_key"`
	Status         string            `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}
