// Package personalization generates outreach message variants through the model client.
package personalization

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/validation"
	"lead-orchestrator/internal/grok"
	"lead-orchestrator/internal/models"
	"lead-orchestrator/internal/prompts"
)

var tracer = otel.GetTracerProvider().Tracer("lead-orchestrator/personalization")

type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, shape validation.Shape, out grok.Result) error
}

type PromptRenderer interface {
	SystemPrompt(service prompts.ServiceType, values prompts.Values) (string, error)
	UserPrompt(service prompts.ServiceType, values prompts.Values) (string, error)
}

// Service personalizes messages. Guidelines follow the same single-writer
// rule as qualification criteria: do not reassign them during a call.
type Service struct {
	invoker    Invoker
	prompts    PromptRenderer
	guidelines []string
	logger     logger.Logger
}

func NewService(invoker Invoker, renderer PromptRenderer, log logger.Logger, guidelines ...string) *Service {
	return &Service{
		invoker:    invoker,
		prompts:    renderer,
		guidelines: guidelines,
		logger:     log.WithFields(map[string]interface{}{"component": "message-personalization"}),
	}
}

func (s *Service) WithMessageGuidelines(guidelines []string) *Service {
	cp := *s
	cp.guidelines = append([]string(nil), guidelines...)
	return &cp
}

func (s *Service) SetMessageGuidelines(guidelines []string) {
	s.guidelines = guidelines
}

func (s *Service) MessageGuidelines() []string {
	return s.guidelines
}

// PersonalizeMessage returns between one and three validated variants for req.
// pctx may be nil.
func (s *Service) PersonalizeMessage(ctx context.Context, req *models.PersonalizationRequest, pctx *models.PersonalizationContext) (*models.PersonalizationResult, error) {
	ctx, span := tracer.Start(ctx, "personalization.personalize_message")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.type", req.CampaignType))

	log := s.logger.WithFields(map[string]interface{}{
		"leadName":     req.LeadName,
		"campaignType": req.CampaignType,
	})
	log.Info("Personalizing message", nil)

	if pctx == nil {
		pctx = &models.PersonalizationContext{}
	}

	systemPrompt, err := s.prompts.SystemPrompt(prompts.MessagePersonalization, prompts.Values{
		"MessageGuidelines": s.guidelines,
		"CompanyMessaging":  pctx.CompanyMessaging,
		"IndustryTemplates": pctx.IndustryTemplates,
	})
	if err != nil {
		log.Error("Failed to render system prompt", map[string]interface{}{"error": err})
		return nil, err
	}

	userPrompt, err := s.prompts.UserPrompt(prompts.MessagePersonalization, prompts.Values{
		"LeadName":             req.LeadName,
		"LeadEmail":            req.LeadEmail,
		"Company":              req.Company,
		"JobTitle":             req.JobTitle,
		"Industry":             req.Industry,
		"LeadSource":           req.LeadSource,
		"PreviousInteractions": req.PreviousInteractions,
		"CampaignType":         req.CampaignType,
		"MessageTone":          req.Tone(),
		"CampaignContext":      pctx.CampaignContext,
		"CompanyResearch":      pctx.CompanyResearch,
		"PainPoints":           pctx.PainPoints,
		"ValuePropositions":    pctx.ValuePropositions,
		"VariantCount":         pctx.VariantCount,
	})
	if err != nil {
		log.Error("Failed to render user prompt", map[string]interface{}{"error": err})
		return nil, err
	}

	var result models.PersonalizationResult
	if err := s.invoker.Invoke(ctx, systemPrompt, userPrompt, validation.PersonalizationShape, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "personalization failed")
		log.Error("Message personalization failed", map[string]interface{}{"error": err})
		return nil, err
	}

	span.SetAttributes(attribute.Int("message.variants", len(result.Variants)))
	log.Info("Message personalized", map[string]interface{}{"variants": len(result.Variants)})
	return &result, nil
}
