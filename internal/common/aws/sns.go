package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes lead alerts to an SNS topic.
type Notifier struct {
	api      SNSAPI
	topicARN string
	logger   logger.Logger
}

func NewNotifier(api SNSAPI, topicARN string, log logger.Logger) *Notifier {
	return &Notifier{
		api:      api,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "sns-notifier"}),
	}
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*Notifier, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewNotifier(sns.NewFromConfig(cfg), topicARN, log), nil
}

type leadAlert struct {
	LeadID             int64                `json:"lead_id"`
	Name               string               `json:"name"`
	Email              string               `json:"email"`
	Company            string               `json:"company,omitempty"`
	Score              int                  `json:"score"`
	PriorityLevel      models.PriorityLevel `json:"priority_level"`
	Reasoning          string               `json:"reasoning"`
	RecommendedActions []string             `json:"recommended_actions"`
}

// HighPriorityLead announces a freshly qualified lead. The priority is also
// set as a message attribute so subscribers can filter on it.
func (n *Notifier) HighPriorityLead(ctx context.Context, lead models.Lead, result models.QualificationResult) error {
	body, err := json.Marshal(leadAlert{
		LeadID:             lead.ID,
		Name:               lead.Name,
		Email:              lead.Email,
		Company:            models.StringValue(lead.Company),
		Score:              result.Score,
		PriorityLevel:      result.PriorityLevel,
		Reasoning:          result.Reasoning,
		RecommendedActions: result.RecommendedActions,
	})
	if err != nil {
		return apperrors.NewNotificationFailedError("sns", err)
	}

	out, err := n.api.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String(fmt.Sprintf("High-priority lead: %s", lead.Name)),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"priority": {DataType: awssdk.String("String"), StringValue: awssdk.String(string(result.PriorityLevel))},
		},
	})
	if err != nil {
		n.logger.Error("Failed to publish lead alert", map[string]interface{}{"leadId": lead.ID, "error": err.Error()})
		return apperrors.NewNotificationFailedError("sns", err)
	}

	n.logger.Info("Lead alert published", map[string]interface{}{
		"leadId":    lead.ID,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}
