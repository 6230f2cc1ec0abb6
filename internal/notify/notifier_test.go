// internal/notify/notifier_test.go
package notify

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/models"
)

// ==========================================
// Mock Services
// ==========================================

type mockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Sent          []*ses.SendEmailInput
}

func (m *mockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Sent = append(m.Sent, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Published   []*sns.PublishInput
}

func (m *mockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.Published = append(m.Published, params)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

func newTestNotifier(t *testing.T) (*Notifier, sqlmock.Sqlmock, *mockSESService, *mockSNSService) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sesMock := &mockSESService{}
	snsMock := &mockSNSService{}

	cfg := config.NotificationConfig{}
	cfg.Email.Enabled = true
	cfg.Email.FromEmail = "noreply@shiftwork.example.com"
	cfg.SMS.Enabled = true

	n := &Notifier{
		config:      cfg,
		db:          database.NewPostgresWithDB(db, time.Second, 100),
		logger:      logger.NewTestLogger(t),
		sesClient:   sesMock,
		snsClient:   snsMock,
		templateMap: loadTemplates(),
	}
	return n, mock, sesMock, snsMock
}

func expectContact(mock sqlmock.Sqlmock, email, phone string) {
	mock.ExpectQuery("SELECT email, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

func testShift() *models.Shift {
	return &models.Shift{
		ID:        "shift-1",
		VenueID:   "venue-1",
		Title:     "Friday close",
		StartTime: time.Date(2026, 9, 4, 17, 0, 0, 0, time.UTC),
		Location:  "Sydney",
	}
}

// ==========================================
// Delivery Tests
// ==========================================

func TestNotifier_ShiftFilled_SendsEmailAndSMS(t *testing.T) {
	n, mock, sesMock, snsMock := newTestNotifier(t)

	expectContact(mock, "pro@example.com", "+61400000000")

	n.ShiftFilled(context.Background(), testShift(), "pro-1")

	require.Len(t, sesMock.Sent, 1)
	assert.Equal(t, "pro@example.com", sesMock.Sent[0].Destination.ToAddresses[0])
	assert.Contains(t, *sesMock.Sent[0].Message.Subject.Data, "Friday close")

	require.Len(t, snsMock.Published, 1)
	assert.Equal(t, "+61400000000", *snsMock.Published[0].PhoneNumber)
}

func TestNotifier_ApplicationDeclined_EmailOnly(t *testing.T) {
	n, mock, sesMock, snsMock := newTestNotifier(t)

	expectContact(mock, "pro@example.com", "+61400000000")

	n.ApplicationDeclined(context.Background(), "pro-1", testShift())

	assert.Len(t, sesMock.Sent, 1)
	assert.Empty(t, snsMock.Published, "declines are not SMS-worthy")
}

func TestNotifier_MissingRecipientSkipsSend(t *testing.T) {
	n, mock, sesMock, snsMock := newTestNotifier(t)

	mock.ExpectQuery("SELECT email, COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}))

	n.ShiftFilled(context.Background(), testShift(), "ghost")

	assert.Empty(t, sesMock.Sent)
	assert.Empty(t, snsMock.Published)
}

func TestNotifier_EmailDisabled(t *testing.T) {
	n, mock, sesMock, _ := newTestNotifier(t)
	n.config.Email.Enabled = false
	n.config.SMS.Enabled = false

	expectContact(mock, "pro@example.com", "")

	n.ApplicationDeclined(context.Background(), "pro-1", testShift())

	assert.Empty(t, sesMock.Sent)
}

func TestNotifier_ShiftCancelled_IncludesAssignedProfessional(t *testing.T) {
	n, mock, sesMock, _ := newTestNotifier(t)
	n.config.SMS.Enabled = false

	shift := testShift()
	shift.AssignedProfessionalID = "pro-9"

	expectContact(mock, "pro1@example.com", "")
	expectContact(mock, "pro9@example.com", "")

	n.ShiftCancelled(context.Background(), shift, []string{"pro-1"})

	assert.Len(t, sesMock.Sent, 2)
}

// ==========================================
// Template Rendering Tests
// ==========================================

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "replaces placeholders",
			template: "Shift {{shiftTitle}} at {{location}}",
			data:     map[string]interface{}{"shiftTitle": "Close", "location": "Sydney"},
			expected: "Shift Close at Sydney",
		},
		{
			name:     "removes missing placeholders",
			template: "Shift {{shiftTitle}} ref {{missing}}",
			data:     map[string]interface{}{"shiftTitle": "Close"},
			expected: "Shift Close ref ",
		},
		{
			name:     "non-string values",
			template: "Count: {{count}}",
			data:     map[string]interface{}{"count": 3},
			expected: "Count: 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderTemplate(tt.template, tt.data))
		})
	}
}
