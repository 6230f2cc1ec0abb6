// internal/webhooks/processor.go
package webhooks

import (
	"context"
	"database/sql"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/common/metrics"
	"shiftwork-backend/internal/payments"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Outcome says what the processor did with a delivery. Duplicate and Ignored
// are both acknowledged to the sender; only a failed outcome asks for a retry.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Processor verifies and applies webhook deliveries. The event ledger insert
// and the state change share one transaction, so a redelivered event either
// sees its ledger row and does nothing, or applies everything.
type Processor struct {
	db            *database.PostgresClient
	cache         *cache.Cache
	records       *payments.Records
	webhookSecret string
	logger        logger.Logger
}

func NewProcessor(db *database.PostgresClient, c *cache.Cache, records *payments.Records,
	webhookSecret string, log logger.Logger) *Processor {
	return &Processor{
		db:            db,
		cache:         c,
		records:       records,
		webhookSecret: webhookSecret,
		logger:        log.WithFields(map[string]interface{}{"component": "webhook-processor"}),
	}
}

// Process verifies the signature over the raw payload before any parsing,
// then applies the event at most once.
func (p *Processor) Process(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "signature_failed").Inc()
		return "", errors.NewSignatureVerificationFailedError(err)
	}

	eventType := string(event.Type)

	change, recognized, err := changeFor(event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
		return "", errors.NewInternalError(err)
	}

	outcome, err := p.apply(ctx, event, change, recognized)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
		return "", err
	}
	metrics.WebhookEvents.WithLabelValues(eventType, string(outcome)).Inc()

	p.logger.Info("webhook delivery handled", map[string]interface{}{
		"eventId":   event.ID,
		"eventType": eventType,
		"outcome":   string(outcome),
	})

	return outcome, nil
}

func (p *Processor) apply(ctx context.Context, event stripe.Event, change stateChange, recognized bool) (Outcome, error) {
	var (
		outcome       = OutcomeIgnored
		touchedEmails []string
	)

	err := p.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		inserted, err := insertLedgerRow(tx, event)
		if err != nil {
			return err
		}
		if !inserted {
			outcome = OutcomeDuplicate
			return nil
		}

		if !recognized {
			return nil
		}

		emails, err := p.records.UpdateStatusTx(tx, change.ProviderID, change.Status)
		if err != nil {
			return err
		}
		touchedEmails = emails
		outcome = OutcomeProcessed
		return nil
	})
	if err != nil {
		return "", errors.NewInternalError(err)
	}

	// Invalidation happens after commit so readers never cache state the
	// transaction is about to overwrite.
	if outcome == OutcomeProcessed {
		keys := make([]string, 0, len(touchedEmails))
		for _, email := range touchedEmails {
			keys = append(keys, cache.SubscriptionKey(email))
		}
		if len(keys) > 0 {
			p.cache.Delete(ctx, keys...)
		}
	}

	return outcome, nil
}

// insertLedgerRow claims the event id. A conflict means the delivery was
// already applied.
func insertLedgerRow(tx *sql.Tx, event stripe.Event) (bool, error) {
	res, err := tx.Exec(`
		INSERT INTO webhook_events (event_id, event_type, payload, processed_at, created_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (event_id) DO NOTHING`,
		event.ID, string(event.Type), []byte(event.Data.Raw))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
