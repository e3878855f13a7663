package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

// SESAPI is the subset of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends outreach variants to leads through SES.
type Mailer struct {
	api    SESAPI
	from   string
	logger logger.Logger
}

func NewMailer(api SESAPI, from string, log logger.Logger) *Mailer {
	return &Mailer{
		api:    api,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"component": "ses-mailer"}),
	}
}

func NewSESMailer(ctx context.Context, region, from string, log logger.Logger) (*Mailer, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewMailer(ses.NewFromConfig(cfg), from, log), nil
}

// SendVariant emails v to the given address and returns the SES message id.
func (m *Mailer) SendVariant(ctx context.Context, to string, v models.MessageVariant) (string, error) {
	if to == "" {
		return "", apperrors.NewInvalidInputError("recipient address is empty")
	}
	input := &ses.SendEmailInput{
		Source:      awssdk.String(m.from),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(v.Subject), Charset: awssdk.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(v.Body), Charset: awssdk.String("UTF-8")},
			},
		},
	}

	out, err := m.api.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("Failed to send email", map[string]interface{}{"to": to, "error": err.Error()})
		return "", apperrors.NewNotificationFailedError("ses", err)
	}

	id := awssdk.ToString(out.MessageId)
	m.logger.Info("Email sent", map[string]interface{}{"to": to, "messageId": id})
	return id, nil
}

func loadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, apperrors.NewConfigurationError(fmt.Sprintf("load aws config: %v", err))
	}
	return cfg, nil
}
