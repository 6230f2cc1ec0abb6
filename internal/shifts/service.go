// internal/shifts/service.go
package shifts

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Notifier delivers best-effort notifications after a state change commits.
// Failures are logged by the implementation and never affect the transaction.
type Notifier interface {
	ShiftFilled(ctx context.Context, shift *models.Shift, acceptedApplicantID string)
	ApplicationDeclined(ctx context.Context, applicantID string, shift *models.Shift)
	ShiftCancelled(ctx context.Context, shift *models.Shift, pendingApplicantIDs []string)
}

// CreateShiftInput carries the venue-supplied fields for a new draft shift.
type CreateShiftInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SkillsRequired []string  `json:"skillsRequired"`
	PayRate        int64     `json:"payRate"`
	PayUnit        string    `json:"payUnit"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	Location       string    `json:"location"`
}

// Service owns the shift lifecycle. Reads go cache-aside; every write
// invalidates the single-shift key and the listing namespace.
type Service struct {
	db       *database.PostgresClient
	repo     *Repository
	cache    *cache.Cache
	notifier Notifier
	logger   logger.Logger
	shiftTTL time.Duration
	listTTL  time.Duration
}

func NewService(db *database.PostgresClient, repo *Repository, c *cache.Cache, notifier Notifier,
	log logger.Logger, shiftTTL, listTTL time.Duration) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		cache:    c,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "shift-service"}),
		shiftTTL: shiftTTL,
		listTTL:  listTTL,
	}
}

func (s *Service) Create(ctx context.Context, principal *models.Principal, input CreateShiftInput) (*models.Shift, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	shift := &models.Shift{
		ID:             uuid.New().String(),
		VenueID:        principal.ID,
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		SkillsRequired: input.SkillsRequired,
		PayRate:        input.PayRate,
		PayUnit:        input.PayUnit,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		Location:       input.Location,
		Status:         models.ShiftStatusDraft,
	}

	if err := s.repo.Insert(ctx, shift); err != nil {
		return nil, errors.NewInternalError(err)
	}

	s.invalidateListings(ctx)
	s.logger.Info("shift created", map[string]interface{}{
		"shiftId": shift.ID,
		"venueId": shift.VenueID,
	})
	return shift, nil
}

// Publish moves a draft shift to OPEN so professionals can apply.
func (s *Service) Publish(ctx context.Context, principal *models.Principal, shiftID string) (*models.Shift, error) {
	shift, err := s.ownedShift(ctx, principal, shiftID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, shiftID, models.ShiftStatusDraft, models.ShiftStatusOpen)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !ok {
		return nil, errors.NewPreconditionFailedError("shift is not in DRAFT")
	}

	shift.Status = models.ShiftStatusOpen
	s.invalidate(ctx, shiftID)
	return shift, nil
}

// Fill accepts one application and resolves the rest of the shift in a single
// transaction: the shift moves OPEN to FILLED, the chosen application becomes
// ACCEPTED, and every other pending application is declined. A concurrent
// fill loses on the shift status guard and gets a precondition failure.
func (s *Service) Fill(ctx context.Context, principal *models.Principal, shiftID, applicationID string) (*models.Shift, error) {
	shift, err := s.ownedShift(ctx, principal, shiftID)
	if err != nil {
		return nil, err
	}

	var (
		acceptedApplicant string
		declined          []string
	)

	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		applicantID, ok, err := s.repo.PendingApplicantTx(tx, applicationID, shiftID)
		if err != nil {
			return errors.NewInternalError(err)
		}
		if !ok {
			return errors.NewPreconditionFailedError("application is not pending on this shift")
		}

		// The shift row lock is always taken before any application row
		// lock, so concurrent fills serialize on the status guard.
		filled, err := s.repo.FillTx(tx, shiftID, applicantID)
		if err != nil {
			return errors.NewInternalError(err)
		}
		if !filled {
			return errors.NewPreconditionFailedError("shift is not OPEN")
		}

		accepted, err := s.repo.AcceptApplicationTx(tx, applicationID, shiftID)
		if err != nil {
			return errors.NewInternalError(err)
		}
		if !accepted {
			return errors.NewPreconditionFailedError("application is not pending on this shift")
		}
		acceptedApplicant = applicantID

		declined, err = s.repo.DeclinePendingTx(tx, shiftID, applicationID)
		if err != nil {
			return errors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, shiftID)

	shift.Status = models.ShiftStatusFilled
	shift.AssignedProfessionalID = acceptedApplicant

	s.logger.Info("shift filled", map[string]interface{}{
		"shiftId":       shiftID,
		"applicationId": applicationID,
		"declinedCount": len(declined),
	})

	if s.notifier != nil {
		s.notifier.ShiftFilled(ctx, shift, acceptedApplicant)
		for _, applicantID := range declined {
			s.notifier.ApplicationDeclined(ctx, applicantID, shift)
		}
	}

	return shift, nil
}

// Complete closes out a filled shift after the work happened.
func (s *Service) Complete(ctx context.Context, principal *models.Principal, shiftID string) (*models.Shift, error) {
	shift, err := s.ownedShift(ctx, principal, shiftID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, shiftID, models.ShiftStatusFilled, models.ShiftStatusCompleted)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if !ok {
		return nil, errors.NewPreconditionFailedError("shift is not FILLED")
	}

	shift.Status = models.ShiftStatusCompleted
	s.invalidate(ctx, shiftID)
	return shift, nil
}

// Cancel takes a shift out of circulation from any non-terminal status and
// declines whatever applications were still pending, in one transaction.
func (s *Service) Cancel(ctx context.Context, principal *models.Principal, shiftID string) (*models.Shift, error) {
	shift, err := s.ownedShift(ctx, principal, shiftID)
	if err != nil {
		return nil, err
	}

	var declined []string
	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		ok, err := s.repo.CancelTx(tx, shiftID)
		if err != nil {
			return errors.NewInternalError(err)
		}
		if !ok {
			return errors.NewPreconditionFailedError("shift already reached a terminal status")
		}

		declined, err = s.repo.DeclinePendingTx(tx, shiftID, "")
		if err != nil {
			return errors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, shiftID)

	shift.Status = models.ShiftStatusCancelled
	s.logger.Info("shift cancelled", map[string]interface{}{
		"shiftId":       shiftID,
		"declinedCount": len(declined),
	})

	if s.notifier != nil {
		s.notifier.ShiftCancelled(ctx, shift, declined)
	}

	return shift, nil
}

// GetByID reads through the cache.
func (s *Service) GetByID(ctx context.Context, shiftID string) (*models.Shift, error) {
	key := cache.ShiftKey(shiftID)
	if data, ok := s.cache.Get(ctx, key); ok {
		var shift models.Shift
		if err := json.Unmarshal(data, &shift); err == nil {
			return &shift, nil
		}
		s.cache.Delete(ctx, key)
	}

	shift, err := s.repo.GetByID(ctx, shiftID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("shift", shiftID)
	}
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	if data, err := json.Marshal(shift); err == nil {
		s.cache.Set(ctx, key, data, s.shiftTTL)
	}
	return shift, nil
}

// List reads through the cache keyed by the canonical filter hash, so two
// requests with identical filters share one database round trip.
func (s *Service) List(ctx context.Context, filters models.ShiftFilters) ([]*models.Shift, error) {
	filters = normalizeFilters(filters)

	key := cache.ShiftListKey(filters)
	if data, ok := s.cache.Get(ctx, key); ok {
		var shifts []*models.Shift
		if err := json.Unmarshal(data, &shifts); err == nil {
			return shifts, nil
		}
		s.cache.Delete(ctx, key)
	}

	shifts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if shifts == nil {
		shifts = []*models.Shift{}
	}

	if data, err := json.Marshal(shifts); err == nil {
		s.cache.Set(ctx, key, data, s.listTTL)
	}
	return shifts, nil
}

// SlowQueries exposes the pool's slow operation snapshot for diagnostics.
func (s *Service) SlowQueries() []database.SlowQuery {
	return s.db.SlowQueries()
}

// ownedShift loads the shift and enforces venue ownership. Shifts owned by
// another venue read as not found.
func (s *Service) ownedShift(ctx context.Context, principal *models.Principal, shiftID string) (*models.Shift, error) {
	shift, err := s.repo.GetByID(ctx, shiftID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("shift", shiftID)
	}
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if shift.VenueID != principal.ID {
		return nil, errors.NewNotFoundError("shift", shiftID)
	}
	return shift, nil
}

func (s *Service) invalidate(ctx context.Context, shiftID string) {
	s.cache.Delete(ctx, cache.ShiftKey(shiftID))
	s.cache.InvalidatePattern(ctx, cache.ShiftListPattern())
}

func (s *Service) invalidateListings(ctx context.Context) {
	s.cache.InvalidatePattern(ctx, cache.ShiftListPattern())
}

func validateCreateInput(input CreateShiftInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return errors.NewValidationError("title is required")
	}
	if input.PayRate <= 0 {
		return errors.NewValidationError("pay rate must be positive")
	}
	if input.PayUnit != "hour" && input.PayUnit != "shift" {
		return errors.NewValidationError("pay unit must be hour or shift")
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return errors.NewValidationError("start and end times are required")
	}
	if !input.EndTime.After(input.StartTime) {
		return errors.NewValidationError("end time must be after start time")
	}
	return nil
}

func normalizeFilters(f models.ShiftFilters) models.ShiftFilters {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
