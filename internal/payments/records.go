// internal/payments/records.go
package payments

import (
	"context"
	"database/sql"
	"time"

	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/models"
)

// Records is the local mirror of processor objects. The gateway inserts rows;
// status transitions come only from the webhook processor, through
// UpdateStatusTx.
type Records struct {
	db *database.PostgresClient
}

func NewRecords(db *database.PostgresClient) *Records {
	return &Records{db: db}
}

func (r *Records) Insert(ctx context.Context, rec *models.PaymentRecord) error {
	defer r.db.TrackQuery("payment_records.insert", time.Now())

	query := `
		INSERT INTO payment_records (id, kind, provider_id, price_key, requester_email,
		                             amount, currency, idempotency_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.Kind, rec.ProviderID, rec.PriceKey, rec.RequesterEmail,
		rec.Amount, rec.Currency, rec.IdempotencyKey, rec.Status)
	if err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// UpdateStatusTx moves a record's status within an existing transaction and
// returns the requester emails of the rows it touched, so the caller can bust
// their cached subscription state after commit. Zero rows is not an error:
// webhooks can arrive for objects created before this service existed.
func (r *Records) UpdateStatusTx(tx *sql.Tx, providerID, status string) ([]string, error) {
	rows, err := tx.Query(`
		UPDATE payment_records
		SET status = $2, updated_at = NOW()
		WHERE provider_id = $1
		RETURNING requester_email`,
		providerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
