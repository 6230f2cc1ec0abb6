// internal/shifts/repository.go

// Package shifts implements the shift posting lifecycle: draft, publish,
// fill, complete, cancel. Filling is the concurrency hot spot; every status
// transition is a guarded single-row update so racing writers lose cleanly.
package shifts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/models"
)

const shiftColumns = `id, venue_id, title, description, skills_required, pay_rate, pay_unit,
	start_time, end_time, location, status, assigned_professional_id, application_count,
	created_at, updated_at`

type Repository struct {
	db *database.PostgresClient
}

func NewRepository(db *database.PostgresClient) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, s *models.Shift) error {
	defer r.db.TrackQuery("shifts.insert", time.Now())

	_, err := r.db.Exec(ctx, `
		INSERT INTO shifts (id, venue_id, title, description, skills_required, pay_rate, pay_unit,
		                    start_time, end_time, location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`,
		s.ID, s.VenueID, s.Title, s.Description, pq.Array(s.SkillsRequired),
		s.PayRate, s.PayUnit, s.StartTime, s.EndTime, s.Location, s.Status)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Shift, error) {
	defer r.db.TrackQuery("shifts.get_by_id", time.Now())

	row := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1`, shiftColumns), id)
	return scanShift(row)
}

// List applies the filter set in a fixed column order. Filters compose with
// AND; the zero filter returns everything within the limit window.
func (r *Repository) List(ctx context.Context, f models.ShiftFilters) ([]*models.Shift, error) {
	defer r.db.TrackQuery("shifts.list", time.Now())

	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.VenueID != "" {
		conditions = append(conditions, "venue_id = "+arg(f.VenueID))
	}
	if f.Status != "" {
		conditions = append(conditions, "status = "+arg(f.Status))
	}
	if f.Location != "" {
		conditions = append(conditions, "location = "+arg(f.Location))
	}
	if f.Skill != "" {
		conditions = append(conditions, arg(f.Skill)+" = ANY(skills_required)")
	}
	if !f.From.IsZero() {
		conditions = append(conditions, "start_time >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conditions = append(conditions, "start_time <= "+arg(f.To))
	}

	query := fmt.Sprintf(`SELECT %s FROM shifts`, shiftColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	query += " LIMIT " + arg(f.Limit)
	query += " OFFSET " + arg(f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// UpdateStatus performs the guarded transition from one status to another.
// Returns false when the row was not in the expected status, which is how
// concurrent writers and stale clients are detected.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to models.ShiftStatus) (bool, error) {
	defer r.db.TrackQuery("shifts.update_status", time.Now())

	res, err := r.db.Exec(ctx, `
		UPDATE shifts SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// FillTx moves an OPEN shift to FILLED and pins the assigned professional.
// The status guard makes the first committer win; everyone else sees zero
// rows.
func (r *Repository) FillTx(tx *sql.Tx, shiftID, professionalID string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE shifts
		SET status = $2, assigned_professional_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		shiftID, models.ShiftStatusFilled, professionalID, models.ShiftStatusOpen)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// CancelTx cancels a shift unless it already reached a terminal status.
func (r *Repository) CancelTx(tx *sql.Tx, shiftID string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE shifts SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)`,
		shiftID, models.ShiftStatusCancelled, models.ShiftStatusCompleted, models.ShiftStatusCancelled)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// PendingApplicantTx reads the applicant of a pending application without
// taking a row lock. ok is false when the application is missing, belongs to
// another shift, or is no longer pending.
func (r *Repository) PendingApplicantTx(tx *sql.Tx, applicationID, shiftID string) (string, bool, error) {
	var applicantID string
	err := tx.QueryRow(`
		SELECT applicant_id FROM applications
		WHERE id = $1 AND shift_id = $2 AND status = $3`,
		applicationID, shiftID, models.ApplicationStatusPending).
		Scan(&applicantID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return applicantID, true, nil
}

// AcceptApplicationTx accepts one pending application on the shift. ok is
// false when the row is no longer pending. Callers must hold the shift row
// lock before touching any application row.
func (r *Repository) AcceptApplicationTx(tx *sql.Tx, applicationID, shiftID string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE applications
		SET status = $3, decided_at = NOW()
		WHERE id = $1 AND shift_id = $2 AND status = $4`,
		applicationID, shiftID, models.ApplicationStatusAccepted, models.ApplicationStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// DeclinePendingTx declines every pending application on the shift except the
// one named by exceptID (pass empty to decline all). The declines are marked
// system-decided and the affected applicants are returned for notification.
func (r *Repository) DeclinePendingTx(tx *sql.Tx, shiftID, exceptID string) ([]string, error) {
	rows, err := tx.Query(`
		UPDATE applications
		SET status = $3, system_decided = TRUE, decided_at = NOW()
		WHERE shift_id = $1 AND id <> $2 AND status = $4
		RETURNING applicant_id`,
		shiftID, exceptID, models.ApplicationStatusDeclined, models.ApplicationStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applicants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applicants = append(applicants, id)
	}
	return applicants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShift(row rowScanner) (*models.Shift, error) {
	var (
		s        models.Shift
		skills   pq.StringArray
		assigned sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.VenueID, &s.Title, &s.Description, &skills, &s.PayRate, &s.PayUnit,
		&s.StartTime, &s.EndTime, &s.Location, &s.Status, &assigned, &s.ApplicationCount,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.SkillsRequired = skills
	s.AssignedProfessionalID = assigned.String
	return &s, nil
}
