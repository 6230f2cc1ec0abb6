// internal/notify/notifier.go

// Package notify delivers email and SMS updates for marketplace events.
// Delivery is best effort: a send failure is logged and counted, never
// surfaced to the state change that triggered it.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/database"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/common/metrics"
	"shiftwork-backend/internal/models"
)

// Notification types, also the template registry keys.
const (
	TypeShiftFilled         = "shift_filled"
	TypeShiftCancelled      = "shift_cancelled"
	TypeApplicationReceived = "application_received"
	TypeApplicationDeclined = "application_declined"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	config      config.NotificationConfig
	db          *database.PostgresClient
	logger      logger.Logger
	sesClient   SESService
	snsClient   SNSService
	templateMap map[string]map[string]string
}

func New(cfg config.NotificationConfig, db *database.PostgresClient, log logger.Logger) (*Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Notifier{
		config:      cfg,
		db:          db,
		logger:      log.WithFields(map[string]interface{}{"component": "notifier"}),
		sesClient:   ses.NewFromConfig(awsCfg),
		snsClient:   sns.NewFromConfig(awsCfg),
		templateMap: loadTemplates(),
	}, nil
}

// ShiftFilled tells the accepted professional they got the shift. High
// priority, so SMS goes out too when a phone number is on file.
func (n *Notifier) ShiftFilled(ctx context.Context, shift *models.Shift, acceptedApplicantID string) {
	n.send(ctx, acceptedApplicantID, TypeShiftFilled, true, map[string]interface{}{
		"shiftTitle": shift.Title,
		"startTime":  shift.StartTime.Format("Mon 2 Jan 15:04"),
		"location":   shift.Location,
	})
}

// ApplicationDeclined tells a professional their application did not make it.
func (n *Notifier) ApplicationDeclined(ctx context.Context, applicantID string, shift *models.Shift) {
	n.send(ctx, applicantID, TypeApplicationDeclined, false, map[string]interface{}{
		"shiftTitle": shift.Title,
	})
}

// ShiftCancelled tells everyone still pending that the shift is gone.
func (n *Notifier) ShiftCancelled(ctx context.Context, shift *models.Shift, pendingApplicantIDs []string) {
	recipients := pendingApplicantIDs
	if shift.AssignedProfessionalID != "" {
		recipients = append(recipients, shift.AssignedProfessionalID)
	}
	for _, id := range recipients {
		n.send(ctx, id, TypeShiftCancelled, true, map[string]interface{}{
			"shiftTitle": shift.Title,
			"startTime":  shift.StartTime.Format("Mon 2 Jan 15:04"),
		})
	}
}

// ApplicationReceived tells the venue a new application came in.
func (n *Notifier) ApplicationReceived(ctx context.Context, app *models.Application, shift *models.Shift) {
	n.send(ctx, shift.VenueID, TypeApplicationReceived, false, map[string]interface{}{
		"shiftTitle":    shift.Title,
		"applicationId": app.ID,
	})
}

func (n *Notifier) send(ctx context.Context, recipientID, notificationType string, highPriority bool, data map[string]interface{}) {
	email, phone, err := n.getRecipientContact(ctx, recipientID)
	if err != nil {
		n.logger.Warn("recipient not found", map[string]interface{}{
			"recipientId": recipientID,
			"type":        notificationType,
		})
		return
	}

	template, exists := n.templateMap[notificationType]
	if !exists {
		n.logger.Error("template not found", map[string]interface{}{
			"type": notificationType,
		})
		return
	}

	subject := renderTemplate(template["subject"], data)
	body := renderTemplate(template["body"], data)

	if n.config.Email.Enabled && email != "" {
		if err := n.sendEmail(ctx, email, subject, body); err != nil {
			n.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"type":  notificationType,
			})
			metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
		} else {
			metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
		}
	}

	if n.config.SMS.Enabled && phone != "" && highPriority {
		if err := n.sendSMS(ctx, phone, body); err != nil {
			n.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"type":  notificationType,
			})
			metrics.NotificationsSent.WithLabelValues("sms", "failed").Inc()
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", "sent").Inc()
		}
	}
}

func (n *Notifier) getRecipientContact(ctx context.Context, recipientID string) (string, string, error) {
	var email, phone string
	err := n.db.QueryRow(ctx,
		`SELECT email, COALESCE(phone, '') FROM users WHERE id = $1`, recipientID).
		Scan(&email, &phone)
	return email, phone, err
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func loadTemplates() map[string]map[string]string {
	return map[string]map[string]string{
		TypeShiftFilled: {
			"subject": "You're confirmed for {{shiftTitle}}",
			"body":    "Good news! You've been accepted for {{shiftTitle}} starting {{startTime}} at {{location}}.",
		},
		TypeShiftCancelled: {
			"subject": "Shift cancelled: {{shiftTitle}}",
			"body":    "Unfortunately {{shiftTitle}} scheduled for {{startTime}} has been cancelled.",
		},
		TypeApplicationReceived: {
			"subject": "New application for {{shiftTitle}}",
			"body":    "You have a new application ({{applicationId}}) for {{shiftTitle}}.",
		},
		TypeApplicationDeclined: {
			"subject": "Update on {{shiftTitle}}",
			"body":    "Your application for {{shiftTitle}} was not selected this time.",
		},
	}
}
