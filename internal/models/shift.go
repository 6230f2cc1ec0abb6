// internal/models/shift.go
package models

import "time"

// ShiftStatus is the lifecycle state of a shift posting.
type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "DRAFT"
	ShiftStatusOpen      ShiftStatus = "OPEN"
	ShiftStatusFilled    ShiftStatus = "FILLED"
	ShiftStatusCompleted ShiftStatus = "COMPLETED"
	ShiftStatusCancelled ShiftStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s ShiftStatus) IsTerminal() bool {
	return s == ShiftStatusCompleted || s == ShiftStatusCancelled
}

// Shift represents a single schedulable work opportunity posted by a venue.
type Shift struct {
	ID                     string      `json:"id" db:"id"`
	VenueID                string      `json:"venueId" db:"venue_id"`
	Title                  string      `json:"title" db:"title"`
	Description            string      `json:"description,omitempty" db:"description"`
	SkillsRequired         []string    `json:"skillsRequired,omitempty" db:"skills_required"`
	PayRate                int64       `json:"payRate" db:"pay_rate"` // minor currency units
	PayUnit                string      `json:"payUnit" db:"pay_unit"` // "hour" or "shift"
	StartTime              time.Time   `json:"startTime" db:"start_time"`
	EndTime                time.Time   `json:"endTime" db:"end_time"`
	Location               string      `json:"location,omitempty" db:"location"`
	Status                 ShiftStatus `json:"status" db:"status"`
	AssignedProfessionalID string      `json:"assignedProfessionalId,omitempty" db:"assigned_professional_id"`
	ApplicationCount       int         `json:"applicationCount" db:"application_count"`
	CreatedAt              time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time   `json:"updatedAt" db:"updated_at"`
}

// ShiftFilters is the canonical filter set for shift listings. The zero value
// matches everything.
type ShiftFilters struct {
	VenueID  string      `json:"venueId,omitempty"`
	Status   ShiftStatus `json:"status,omitempty"`
	Location string      `json:"location,omitempty"`
	Skill    string      `json:"skill,omitempty"`
	From     time.Time   `json:"from,omitempty"`
	To       time.Time   `json:"to,omitempty"`
	Limit    int         `json:"limit,omitempty"`
	Offset   int         `json:"offset,omitempty"`
}
