// internal/webhooks/processor_test.go
package webhooks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/database"
	apperrors "shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/payments"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte) string {
	t.Helper()
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig)
}

func newTestProcessor(t *testing.T) (*Processor, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	pg := database.NewPostgresWithDB(db, time.Second, 100)
	p := NewProcessor(pg, cache.New(rdb, log), payments.NewRecords(pg), testWebhookSecret, log)
	return p, mock, mr
}

func intentEventPayload(eventID, eventType, intentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": %q,
		"data": {"object": {"id": %q, "object": "payment_intent"}}
	}`, eventID, eventType, intentID))
}

func subscriptionEventPayload(eventID, eventType, subID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": %q,
		"data": {"object": {"id": %q, "object": "subscription", "status": %q}}
	}`, eventID, eventType, subID, status))
}

// ==========================================
// Signature Verification Tests
// ==========================================

func TestProcessor_RejectsBadSignature(t *testing.T) {
	p, mock, _ := newTestProcessor(t)

	payload := intentEventPayload("evt_1", EventPaymentSucceeded, "pi_1")

	_, err := p.Process(context.Background(), payload, "t=1,v1=deadbeef")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeSignatureVerificationFailed))
	assert.NoError(t, mock.ExpectationsWereMet(), "no database work before verification")
}

func TestProcessor_RejectsTamperedPayload(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	payload := intentEventPayload("evt_1", EventPaymentSucceeded, "pi_1")
	header := signedHeader(t, payload)
	tampered := intentEventPayload("evt_1", EventPaymentSucceeded, "pi_attacker")

	_, err := p.Process(context.Background(), tampered, header)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeSignatureVerificationFailed))
}

// ==========================================
// Idempotency Tests
// ==========================================

func TestProcessor_AppliesPaymentSucceededOnce(t *testing.T) {
	p, mock, _ := newTestProcessor(t)

	payload := intentEventPayload("evt_dup", EventPaymentSucceeded, "pi_42")
	header := signedHeader(t, payload)

	// First delivery claims the ledger row and applies the update.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt_dup", EventPaymentSucceeded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE payment_records").
		WithArgs("pi_42", "succeeded").
		WillReturnRows(sqlmock.NewRows([]string{"requester_email"}).AddRow("venue@example.com"))
	mock.ExpectCommit()

	outcome, err := p.Process(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	// Redelivery hits the ledger conflict and changes nothing.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt_dup", EventPaymentSucceeded, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	outcome, err = p.Process(context.Background(), payload, signedHeader(t, payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessor_UnknownEventTypeAcknowledged(t *testing.T) {
	p, mock, _ := newTestProcessor(t)

	payload := intentEventPayload("evt_odd", "invoice.finalized", "in_1")
	header := signedHeader(t, payload)

	// Ledger row still recorded so a redelivery is a clean duplicate.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt_odd", "invoice.finalized", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := p.Process(context.Background(), payload, header)

	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessor_FailedApplyRollsBackLedger(t *testing.T) {
	p, mock, _ := newTestProcessor(t)

	payload := intentEventPayload("evt_fail", EventPaymentFailed, "pi_9")
	header := signedHeader(t, payload)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE payment_records").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	_, err := p.Process(context.Background(), payload, header)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(),
		"ledger insert must roll back with the state change so the retry can succeed")
}

// ==========================================
// Cache Invalidation Tests
// ==========================================

func TestProcessor_SubscriptionUpdateInvalidatesCache(t *testing.T) {
	p, mock, mr := newTestProcessor(t)

	email := "venue@example.com"
	require.NoError(t, mr.Set(cache.SubscriptionKey(email), `{"status":"active"}`))

	payload := subscriptionEventPayload("evt_sub", EventSubscriptionUpdated, "sub_7", "past_due")
	header := signedHeader(t, payload)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE payment_records").
		WithArgs("sub_7", "past_due").
		WillReturnRows(sqlmock.NewRows([]string{"requester_email"}).AddRow(email))
	mock.ExpectCommit()

	outcome, err := p.Process(context.Background(), payload, header)

	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.False(t, mr.Exists(cache.SubscriptionKey(email)), "stale subscription entry must be dropped")
}

func TestProcessor_SubscriptionDeletedMarksCanceled(t *testing.T) {
	p, mock, _ := newTestProcessor(t)

	payload := subscriptionEventPayload("evt_del", EventSubscriptionDeleted, "sub_7", "canceled")
	header := signedHeader(t, payload)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE payment_records").
		WithArgs("sub_7", "canceled").
		WillReturnRows(sqlmock.NewRows([]string{"requester_email"}))
	mock.ExpectCommit()

	outcome, err := p.Process(context.Background(), payload, header)

	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
