// internal/applications/service.go
package applications

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/models"
)

// ShiftReader is the slice of the shift service the application side needs.
type ShiftReader interface {
	GetByID(ctx context.Context, shiftID string) (*models.Shift, error)
}

// ShiftFiller accepts one application and resolves the shift atomically.
type ShiftFiller interface {
	Fill(ctx context.Context, principal *models.Principal, shiftID, applicationID string) (*models.Shift, error)
}

// Notifier delivers best-effort notifications; failures never change state.
type Notifier interface {
	ApplicationReceived(ctx context.Context, app *models.Application, shift *models.Shift)
	ApplicationDeclined(ctx context.Context, applicantID string, shift *models.Shift)
}

// SubmitInput carries the applicant-supplied fields.
type SubmitInput struct {
	ShiftID     string `json:"shiftId"`
	CoverLetter string `json:"coverLetter"`
}

type Service struct {
	db       *database.PostgresClient
	repo     *Repository
	shifts   ShiftReader
	filler   ShiftFiller
	cache    *cache.Cache
	notifier Notifier
	logger   logger.Logger
}

func NewService(db *database.PostgresClient, repo *Repository, shifts ShiftReader,
	filler ShiftFiller, c *cache.Cache, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		shifts:   shifts,
		filler:   filler,
		cache:    c,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "application-service"}),
	}
}

// Submit files an application against an OPEN shift. One live application per
// professional per shift; a second submit is rejected as a duplicate, but a
// withdrawn application does not block a fresh one.
func (s *Service) Submit(ctx context.Context, principal *models.Principal, input SubmitInput) (*models.Application, error) {
	if strings.TrimSpace(input.ShiftID) == "" {
		return nil, errors.NewValidationError("shift id is required")
	}

	shift, err := s.shifts.GetByID(ctx, input.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != models.ShiftStatusOpen {
		return nil, errors.NewPreconditionFailedError("shift is not accepting applications")
	}

	app := &models.Application{
		ID:          uuid.New().String(),
		ShiftID:     shift.ID,
		ApplicantID: principal.ID,
		CoverLetter: input.CoverLetter,
		Status:      models.ApplicationStatusPending,
	}

	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return s.repo.InsertTx(tx, app)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, errors.NewDuplicateApplicationError(principal.ID, shift.ID)
		}
		return nil, errors.NewInternalError(err)
	}

	// The counter on the shift changed, so its cached copy is stale.
	s.cache.Delete(ctx, cache.ShiftKey(shift.ID))
	s.cache.InvalidatePattern(ctx, cache.ShiftListPattern())

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"shiftId":       shift.ID,
	})

	if s.notifier != nil {
		s.notifier.ApplicationReceived(ctx, app, shift)
	}
	return app, nil
}

// Decide routes the venue's decision on an application. Accepting delegates
// to the shift fill so the whole shift resolves in one transaction; declining
// touches just the one application.
func (s *Service) Decide(ctx context.Context, principal *models.Principal, applicationID, action string) error {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError("application", applicationID)
	}
	if err != nil {
		return errors.NewInternalError(err)
	}

	switch action {
	case "accept":
		_, err := s.filler.Fill(ctx, principal, app.ShiftID, applicationID)
		return err
	case "decline":
		return s.Decline(ctx, principal, app.ShiftID, applicationID)
	default:
		return errors.NewValidationError("action must be accept or decline")
	}
}

// Decline is the venue's explicit rejection of a pending application.
func (s *Service) Decline(ctx context.Context, principal *models.Principal, shiftID, applicationID string) error {
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return err
	}
	if shift.VenueID != principal.ID {
		return errors.NewNotFoundError("shift", shiftID)
	}

	applicantID, ok, err := s.repo.Decline(ctx, applicationID, shiftID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !ok {
		return errors.NewPreconditionFailedError("application is not pending on this shift")
	}

	if s.notifier != nil {
		s.notifier.ApplicationDeclined(ctx, applicantID, shift)
	}
	return nil
}

// Withdraw pulls the caller's own pending application.
func (s *Service) Withdraw(ctx context.Context, principal *models.Principal, applicationID string) error {
	ok, err := s.repo.Withdraw(ctx, applicationID, principal.ID)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !ok {
		return errors.NewPreconditionFailedError("application is not pending or not yours")
	}

	s.logger.Info("application withdrawn", map[string]interface{}{
		"applicationId": applicationID,
	})
	return nil
}

// ListForShift returns the applications on a shift to its owning venue.
func (s *Service) ListForShift(ctx context.Context, principal *models.Principal, shiftID string) ([]*models.Application, error) {
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.VenueID != principal.ID {
		return nil, errors.NewNotFoundError("shift", shiftID)
	}

	apps, err := s.repo.ListForShift(ctx, shiftID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return apps, nil
}

// ListMine returns the caller's own applications.
func (s *Service) ListMine(ctx context.Context, principal *models.Principal) ([]*models.Application, error) {
	apps, err := s.repo.ListForApplicant(ctx, principal.ID)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return apps, nil
}
