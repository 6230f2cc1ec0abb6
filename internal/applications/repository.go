// internal/applications/repository.go

// Package applications implements the application side of the marketplace:
// professionals apply to open shifts, withdraw while pending, and venues
// decline explicitly. Accepting lives with the shift fill since it resolves
// the whole shift.
package applications

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/models"
)

const applicationColumns = `id, shift_id, applicant_id, cover_letter, status, system_decided,
	applied_at, decided_at`

type Repository struct {
	db *database.PostgresClient
}

func NewRepository(db *database.PostgresClient) *Repository {
	return &Repository{db: db}
}

// InsertTx inserts the application and bumps the shift's application counter.
// The partial unique index on (shift_id, applicant_id) WHERE status <>
// 'WITHDRAWN' turns a duplicate into a constraint violation, which the caller
// maps to the duplicate error. A withdrawn row stays in place but does not
// occupy the slot, so the professional can apply again.
func (r *Repository) InsertTx(tx *sql.Tx, a *models.Application) error {
	_, err := tx.Exec(`
		INSERT INTO applications (id, shift_id, applicant_id, cover_letter, status, applied_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		a.ID, a.ShiftID, a.ApplicantID, a.CoverLetter, a.Status)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE shifts SET application_count = application_count + 1, updated_at = NOW()
		WHERE id = $1`,
		a.ShiftID)
	return err
}

// IsUniqueViolation reports whether err is the duplicate-key error from the
// applications uniqueness constraint.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	defer r.db.TrackQuery("applications.get_by_id", time.Now())

	row := r.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return scanApplication(row)
}

// ListForShift returns every application on a shift, newest first.
func (r *Repository) ListForShift(ctx context.Context, shiftID string) ([]*models.Application, error) {
	defer r.db.TrackQuery("applications.list_for_shift", time.Now())

	rows, err := r.db.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE shift_id = $1 ORDER BY applied_at DESC`,
		shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

// ListForApplicant returns a professional's applications, newest first.
func (r *Repository) ListForApplicant(ctx context.Context, applicantID string) ([]*models.Application, error) {
	defer r.db.TrackQuery("applications.list_for_applicant", time.Now())

	rows, err := r.db.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE applicant_id = $1 ORDER BY applied_at DESC`,
		applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

// Decline moves a pending application to DECLINED as an explicit venue
// decision. Returns false when the application was not pending on that shift.
func (r *Repository) Decline(ctx context.Context, applicationID, shiftID string) (string, bool, error) {
	defer r.db.TrackQuery("applications.decline", time.Now())

	var applicantID string
	err := r.db.QueryRow(ctx, `
		UPDATE applications
		SET status = $3, system_decided = FALSE, decided_at = NOW()
		WHERE id = $1 AND shift_id = $2 AND status = $4
		RETURNING applicant_id`,
		applicationID, shiftID, models.ApplicationStatusDeclined, models.ApplicationStatusPending).
		Scan(&applicantID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return applicantID, true, nil
}

// Withdraw lets the applicant pull a pending application. The applicant guard
// keeps professionals from withdrawing each other's applications.
func (r *Repository) Withdraw(ctx context.Context, applicationID, applicantID string) (bool, error) {
	defer r.db.TrackQuery("applications.withdraw", time.Now())

	res, err := r.db.Exec(ctx, `
		UPDATE applications
		SET status = $3, decided_at = NOW()
		WHERE id = $1 AND applicant_id = $2 AND status = $4`,
		applicationID, applicantID, models.ApplicationStatusWithdrawn, models.ApplicationStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.ShiftID, &a.ApplicantID, &a.CoverLetter, &a.Status,
		&a.SystemDecided, &a.AppliedAt, &a.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectApplications(rows *sql.Rows) ([]*models.Application, error) {
	var apps []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
