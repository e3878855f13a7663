// Package qualification scores leads through the model client.
package qualification

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

var tracer = otel.GetTracerProvider().Tracer("lead-orchestrator/qualification")

type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, shape validation.Shape, out grok.Result) error
}

type PromptRenderer interface {
	SystemPrompt(service prompts.ServiceType, values prompts.Values) (string, error)
	UserPrompt(service prompts.ServiceType, values prompts.Values) (string, error)
}

// Service qualifies leads against an optional set of scoring criteria.
//
// The criteria are read on every call and are not synchronized: callers must
// not call SetScoringCriteria while a QualifyLead on the same instance is in
// flight. Use WithScoringCriteria for a per-call variant instead.
type Service struct {
	invoker  Invoker
	prompts  PromptRenderer
	criteria []models.ScoringCriterion
	logger   logger.Logger
}

func NewService(invoker Invoker, renderer PromptRenderer, log logger.Logger, criteria ...models.ScoringCriterion) *Service {
	return &Service{
		invoker:  invoker,
		prompts:  renderer,
		criteria: criteria,
		logger:   log.WithFields(map[string]interface{}{"component": "lead-qualification"}),
	}
}

// WithScoringCriteria returns a copy of s that uses criteria. s is unchanged.
func (s *Service) WithScoringCriteria(criteria []models.ScoringCriterion) *Service {
	cp := *s
	cp.criteria = append([]models.ScoringCriterion(nil), criteria...)
	return &cp
}

func (s *Service) SetScoringCriteria(criteria []models.ScoringCriterion) {
	s.criteria = criteria
}

func (s *Service) ScoringCriteria() []models.ScoringCriterion {
	return s.criteria
}

// QualifyLead renders the qualification prompts for req and returns the
// validated result. qctx may be nil. Client errors are returned unchanged.
func (s *Service) QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error) {
	ctx, span := tracer.Start(ctx, "qualification.qualify_lead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.company", req.Company))

	log := s.logger.WithFields(map[string]interface{}{
		"leadName": req.Name,
		"company":  req.Company,
	})
	log.Info("Qualifying lead", nil)

	if qctx == nil {
		qctx = &models.QualificationContext{}
	}

	systemPrompt, err := s.prompts.SystemPrompt(prompts.LeadQualification, prompts.Values{
		"ScoringCriteria":  s.criteria,
		"CompanyContext":   qctx.CompanyContext,
		"IndustryInsights": qctx.IndustryInsights,
	})
	if err != nil {
		log.Error("Failed to render system prompt", map[string]interface{}{"error": err})
		return nil, err
	}

	userPrompt, err := s.prompts.UserPrompt(prompts.LeadQualification, prompts.Values{
		"Name":                 req.Name,
		"Email":                req.Email,
		"Company":              req.Company,
		"JobTitle":             req.JobTitle,
		"Industry":             req.Industry,
		"CompanySize":          req.CompanySize,
		"Website":              req.Website,
		"AdditionalContext":    req.AdditionalContext,
		"PreviousInteractions": qctx.PreviousInteractions,
		"LeadSourceContext":    qctx.LeadSourceContext,
	})
	if err != nil {
		log.Error("Failed to render user prompt", map[string]interface{}{"error": err})
		return nil, err
	}

	var result models.QualificationResult
	if err := s.invoker.Invoke(ctx, systemPrompt, userPrompt, validation.QualificationShape, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "qualification failed")
		log.Error("Lead qualification failed", map[string]interface{}{"error": err})
		return nil, err
	}

	span.SetAttributes(attribute.Int("lead.score", result.Score))
	log.Info("Lead qualified", map[string]interface{}{
		"score":         result.Score,
		"priorityLevel": result.PriorityLevel,
	})
	return &result, nil
}
