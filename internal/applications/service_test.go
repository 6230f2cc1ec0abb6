// internal/applications/service_test.go
package applications

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/database"
	apperrors "shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/models"
)

// ==========================================
// Test Fixtures
// ==========================================

type mockShiftReader struct {
	GetByIDFunc func(ctx context.Context, shiftID string) (*models.Shift, error)
}

func (m *mockShiftReader) GetByID(ctx context.Context, shiftID string) (*models.Shift, error) {
	return m.GetByIDFunc(ctx, shiftID)
}

type mockNotifier struct {
	ReceivedCalls []string
	DeclinedCalls []string
}

func (m *mockNotifier) ApplicationReceived(ctx context.Context, app *models.Application, shift *models.Shift) {
	m.ReceivedCalls = append(m.ReceivedCalls, app.ID)
}

func (m *mockNotifier) ApplicationDeclined(ctx context.Context, applicantID string, shift *models.Shift) {
	m.DeclinedCalls = append(m.DeclinedCalls, applicantID)
}

type mockFiller struct {
	FillFunc  func(ctx context.Context, principal *models.Principal, shiftID, applicationID string) (*models.Shift, error)
	FillCalls int
}

func (m *mockFiller) Fill(ctx context.Context, principal *models.Principal, shiftID, applicationID string) (*models.Shift, error) {
	m.FillCalls++
	if m.FillFunc != nil {
		return m.FillFunc(ctx, principal, shiftID, applicationID)
	}
	return &models.Shift{ID: shiftID, Status: models.ShiftStatusFilled}, nil
}

func openShift(id, venueID string) *models.Shift {
	return &models.Shift{ID: id, VenueID: venueID, Status: models.ShiftStatusOpen}
}

func newTestService(t *testing.T, shifts ShiftReader) (*Service, sqlmock.Sqlmock, *mockNotifier) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	pg := database.NewPostgresWithDB(db, time.Second, 100)
	notifier := &mockNotifier{}

	svc := NewService(pg, NewRepository(pg), shifts, &mockFiller{}, cache.New(rdb, log), notifier, log)
	return svc, mock, notifier
}

func professional(id string) *models.Principal {
	return &models.Principal{ID: id, Email: id + "@example.com", Role: "professional"}
}

// ==========================================
// Submit Tests
// ==========================================

func TestService_Submit_InsertsPendingAndBumpsCounter(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-1"), nil
	}}
	svc, mock, notifier := newTestService(t, shifts)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shifts SET application_count").
		WithArgs("shift-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app, err := svc.Submit(context.Background(), professional("pro-1"), SubmitInput{ShiftID: "shift-1"})

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "pro-1", app.ApplicantID)
	assert.Equal(t, []string{app.ID}, notifier.ReceivedCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Submit_RejectsDuplicate(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-1"), nil
	}}
	svc, mock, notifier := newTestService(t, shifts)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "applications_shift_applicant_key"})
	mock.ExpectRollback()

	_, err := svc.Submit(context.Background(), professional("pro-1"), SubmitInput{ShiftID: "shift-1"})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDuplicateApplication))
	assert.Empty(t, notifier.ReceivedCalls)
}

func TestService_Submit_ReapplyAfterWithdraw(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-1"), nil
	}}
	svc, mock, _ := newTestService(t, shifts)

	mock.ExpectExec("UPDATE applications").
		WithArgs("app-1", "pro-1", models.ApplicationStatusWithdrawn, models.ApplicationStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Withdraw(context.Background(), professional("pro-1"), "app-1"))

	// The withdrawn row stays behind but is outside the partial uniqueness
	// constraint, so the fresh insert goes through without any pre-check.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shifts SET application_count").
		WithArgs("shift-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app, err := svc.Submit(context.Background(), professional("pro-1"), SubmitInput{ShiftID: "shift-1"})

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Submit_RejectsNonOpenShift(t *testing.T) {
	tests := []struct {
		name   string
		status models.ShiftStatus
	}{
		{"draft shift", models.ShiftStatusDraft},
		{"filled shift", models.ShiftStatusFilled},
		{"cancelled shift", models.ShiftStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
				s := openShift(shiftID, "venue-1")
				s.Status = tt.status
				return s, nil
			}}
			svc, mock, _ := newTestService(t, shifts)

			_, err := svc.Submit(context.Background(), professional("pro-1"), SubmitInput{ShiftID: "shift-1"})

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodePreconditionFailed))
			assert.NoError(t, mock.ExpectationsWereMet(), "no insert against a closed shift")
		})
	}
}

func TestService_Submit_MissingShift(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return nil, apperrors.NewNotFoundError("shift", shiftID)
	}}
	svc, _, _ := newTestService(t, shifts)

	_, err := svc.Submit(context.Background(), professional("pro-1"), SubmitInput{ShiftID: "nope"})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

// ==========================================
// Decline / Withdraw Tests
// ==========================================

func TestService_Decline_OnlyPendingApplications(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-1"), nil
	}}
	svc, mock, notifier := newTestService(t, shifts)

	mock.ExpectQuery("UPDATE applications").
		WithArgs("app-1", "shift-1", models.ApplicationStatusDeclined, models.ApplicationStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"applicant_id"}).AddRow("pro-1"))

	venue := &models.Principal{ID: "venue-1", Role: "venue"}
	err := svc.Decline(context.Background(), venue, "shift-1", "app-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"pro-1"}, notifier.DeclinedCalls)
}

func TestService_Decline_OtherVenueReadsAsNotFound(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-other"), nil
	}}
	svc, _, _ := newTestService(t, shifts)

	venue := &models.Principal{ID: "venue-1", Role: "venue"}
	err := svc.Decline(context.Background(), venue, "shift-1", "app-1")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
}

func TestService_Decide_RoutesAcceptToFill(t *testing.T) {
	shifts := &mockShiftReader{GetByIDFunc: func(ctx context.Context, shiftID string) (*models.Shift, error) {
		return openShift(shiftID, "venue-1"), nil
	}}
	svc, mock, _ := newTestService(t, shifts)
	filler := &mockFiller{}
	svc.filler = filler

	appCols := []string{"id", "shift_id", "applicant_id", "cover_letter", "status",
		"system_decided", "applied_at", "decided_at"}
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows(appCols).
			AddRow("app-1", "shift-1", "pro-1", "", models.ApplicationStatusPending, false, time.Now(), nil))

	venue := &models.Principal{ID: "venue-1", Role: "venue"}
	err := svc.Decide(context.Background(), venue, "app-1", "accept")

	require.NoError(t, err)
	assert.Equal(t, 1, filler.FillCalls)
}

func TestService_Decide_RejectsUnknownAction(t *testing.T) {
	svc, mock, _ := newTestService(t, &mockShiftReader{})

	appCols := []string{"id", "shift_id", "applicant_id", "cover_letter", "status",
		"system_decided", "applied_at", "decided_at"}
	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id").
		WillReturnRows(sqlmock.NewRows(appCols).
			AddRow("app-1", "shift-1", "pro-1", "", models.ApplicationStatusPending, false, time.Now(), nil))

	venue := &models.Principal{ID: "venue-1", Role: "venue"}
	err := svc.Decide(context.Background(), venue, "app-1", "maybe")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
}

func TestService_Withdraw_GuardsApplicantAndStatus(t *testing.T) {
	svc, mock, _ := newTestService(t, &mockShiftReader{})

	mock.ExpectExec("UPDATE applications").
		WithArgs("app-1", "pro-1", models.ApplicationStatusWithdrawn, models.ApplicationStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Withdraw(context.Background(), professional("pro-1"), "app-1")
	require.NoError(t, err)

	// Someone else's application, or one already decided, matches zero rows.
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = svc.Withdraw(context.Background(), professional("pro-2"), "app-1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodePreconditionFailed))
}
