// internal/models/application.go
package models

import "time"

// ApplicationStatus is the lifecycle state of a shift application.
type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusAccepted  ApplicationStatus = "ACCEPTED"
	ApplicationStatusDeclined  ApplicationStatus = "DECLINED"
	ApplicationStatusWithdrawn ApplicationStatus = "WITHDRAWN"
)

// Application represents a professional's request to work a specific shift.
type Application struct {
	ID          string            `json:"id" db:"id"`
	ShiftID     string            `json:"shiftId" db:"shift_id"`
	ApplicantID string            `json:"applicantId" db:"applicant_id"`
	CoverLetter string            `json:"coverLetter,omitempty" db:"cover_letter"`
	Status      ApplicationStatus `json:"status" db:"status"`
	// SystemDecided marks declines issued as a side effect of filling or
	// cancelling a shift, as opposed to an explicit venue decision.
	SystemDecided bool       `json:"systemDecided" db:"system_decided"`
	AppliedAt     time.Time  `json:"appliedAt" db:"applied_at"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty" db:"decided_at"`
}
