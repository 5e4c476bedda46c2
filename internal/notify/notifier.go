// Package notify implements the notification gateway: it delivers the
// NotificationRequested events the workflow core emits. Delivery failures
// never feed back into the core.
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	wferrors "admissions-workflow/internal/common/errors"
	"admissions-workflow/internal/common/logger"
	"admissions-workflow/internal/common/metrics"
	"admissions-workflow/internal/models"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
}

// Gateway sends applicant-facing email via SES and, for final decisions,
// SMS via SNS when a phone number is on file.
type Gateway struct {
	config    Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewGateway(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Gateway {
	return &Gateway{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notification-gateway"}),
	}
}

// Deliver sends one NotificationRequested event. The event is expected to be
// well-formed; a missing recipient is logged and skipped, not an error.
func (g *Gateway) Deliver(ctx context.Context, event models.WorkflowEvent) error {
	payload := event.Notification
	if payload == nil {
		g.logger.Warn("event has no notification payload", map[string]interface{}{
			"eventId": event.ID,
			"kind":    event.Kind,
		})
		return nil
	}
	if payload.To == "" {
		g.logger.Warn("notification has no recipient", map[string]interface{}{
			"applicationId": event.ApplicationID,
		})
		return nil
	}

	if g.config.EmailEnabled {
		if err := g.sendEmail(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
			g.logger.Error("email send failed", map[string]interface{}{
				"applicationId": event.ApplicationID,
				"error":         err,
			})
			return wferrors.NewNotificationSendFailedError("email", err)
		}
		metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
	}

	if g.config.SMSEnabled && payload.Phone != "" {
		if err := g.sendSMS(ctx, payload.Phone, payload.Subject); err != nil {
			metrics.NotificationsSent.WithLabelValues("sms", "failed").Inc()
			g.logger.Error("SMS send failed", map[string]interface{}{
				"applicationId": event.ApplicationID,
				"error":         err,
			})
			return wferrors.NewNotificationSendFailedError("sms", err)
		}
		metrics.NotificationsSent.WithLabelValues("sms", "sent").Inc()
	}

	return nil
}

func (g *Gateway) sendEmail(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(g.config.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}
	_, err := g.sesClient.SendEmail(ctx, input)
	return err
}

func (g *Gateway) sendSMS(ctx context.Context, phone, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	_, err := g.snsClient.Publish(ctx, input)
	return err
}
