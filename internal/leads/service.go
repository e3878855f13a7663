// Package leads composes lead storage, search and the AI services into the
// operations exposed over HTTP and as job workers.
package leads

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
	"lead-orchestrator/internal/services/qualification"
)

const (
	DefaultCampaignType = "cold_outreach"
	DefaultMessageTone  = "professional"

	interactionContextSize = 3
	meetingSlots           = 5
	meetingLinkBase        = "https://calendly.com/your-company/"
)

type Repository interface {
	ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error)
	GetLead(ctx context.Context, id int64) (*models.Lead, error)
	GetLeadWithInteractions(ctx context.Context, id int64) (*models.LeadWithInteractions, error)
	CreateLead(ctx context.Context, in models.LeadCreate) (*models.Lead, error)
	UpdateLead(ctx context.Context, id int64, in models.LeadUpdate) (*models.Lead, error)
	SetScoreAndNotes(ctx context.Context, id int64, score int, notes string) error
	AddInteraction(ctx context.Context, in models.InteractionCreate) (*models.Interaction, error)
	ListInteractions(ctx context.Context, leadID int64) ([]models.Interaction, error)

	ActiveCriteria(ctx context.Context) ([]models.ScoringCriteria, error)
	CreateCriterion(ctx context.Context, in models.ScoringCriteriaCreate) (*models.ScoringCriteria, error)
	UpdateCriterion(ctx context.Context, id int64, in models.ScoringCriteriaUpdate) (*models.ScoringCriteria, error)

	ActiveStages(ctx context.Context) ([]models.PipelineStage, error)
	CurrentStage(ctx context.Context, leadID int64) (*models.PipelineStage, error)
	MoveLeadToStage(ctx context.Context, leadID, stageID int64, notes *string) (*models.LeadPipelineHistory, error)
	PipelineHistory(ctx context.Context, leadID int64) ([]models.LeadPipelineHistory, error)

	SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error)
	SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error)
}

// Searcher is the full-text index. When it is nil the repository's SQL
// search is used and nothing is indexed.
type Searcher interface {
	IndexLead(ctx context.Context, lead models.Lead) error
	IndexInteraction(ctx context.Context, it models.Interaction, lead models.Lead) error
	SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error)
	SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error)
}

type Qualifier interface {
	QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error)
}

type Personalizer interface {
	PersonalizeMessage(ctx context.Context, req *models.PersonalizationRequest, pctx *models.PersonalizationContext) (*models.PersonalizationResult, error)
}

// CriteriaScope returns a qualifier bound to criteria. It must not change the
// shared qualifier.
type CriteriaScope func(criteria []models.ScoringCriterion) Qualifier

// ScopeQualification adapts the qualification service's copy-on-scope method.
func ScopeQualification(svc *qualification.Service) CriteriaScope {
	return func(criteria []models.ScoringCriterion) Qualifier {
		return svc.WithScoringCriteria(criteria)
	}
}

type Mailer interface {
	SendVariant(ctx context.Context, to string, v models.MessageVariant) (string, error)
}

type Notifier interface {
	HighPriorityLead(ctx context.Context, lead models.Lead, result models.QualificationResult) error
}

type Dependencies struct {
	Repo         Repository
	Qualifier    Qualifier
	Scope        CriteriaScope
	Personalizer Personalizer
	Search       Searcher
	Mailer       Mailer
	Notifier     Notifier
	Now          func() time.Time
}

type Service struct {
	deps   Dependencies
	now    func() time.Time
	logger logger.Logger
}

func NewService(deps Dependencies, log logger.Logger) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		deps:   deps,
		now:    now,
		logger: log.WithFields(map[string]interface{}{"component": "lead-service"}),
	}
}

// ==========================
// Lead records
// ==========================

func (s *Service) ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	return s.deps.Repo.ListLeads(ctx, limit, offset)
}

func (s *Service) GetLead(ctx context.Context, id int64) (*models.LeadWithInteractions, error) {
	return s.deps.Repo.GetLeadWithInteractions(ctx, id)
}

func (s *Service) CreateLead(ctx context.Context, in models.LeadCreate) (*models.Lead, error) {
	lead, err := s.deps.Repo.CreateLead(ctx, in)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, *lead)
	s.logger.Info("Lead created", map[string]interface{}{"leadId": lead.ID, "name": lead.Name})
	return lead, nil
}

func (s *Service) UpdateLead(ctx context.Context, id int64, in models.LeadUpdate) (*models.Lead, error) {
	lead, err := s.deps.Repo.UpdateLead(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, *lead)
	return lead, nil
}

func (s *Service) AddInteraction(ctx context.Context, in models.InteractionCreate) (*models.Interaction, error) {
	lead, err := s.deps.Repo.GetLead(ctx, in.LeadID)
	if err != nil {
		return nil, err
	}
	it, err := s.deps.Repo.AddInteraction(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.deps.Search != nil {
		if err := s.deps.Search.IndexInteraction(ctx, *it, *lead); err != nil {
			s.logger.Warn("Failed to index interaction", map[string]interface{}{"interactionId": it.ID, "error": err.Error()})
		}
	}
	return it, nil
}

func (s *Service) reindex(ctx context.Context, lead models.Lead) {
	if s.deps.Search == nil {
		return
	}
	if err := s.deps.Search.IndexLead(ctx, lead); err != nil {
		s.logger.Warn("Failed to index lead", map[string]interface{}{"leadId": lead.ID, "error": err.Error()})
	}
}

// ==========================
// Qualification
// ==========================

type QualificationOutcome struct {
	LeadID             int64                       `json:"lead_id"`
	PreviousScore      int                         `json:"previous_score"`
	NewScore           int                         `json:"new_score"`
	CustomCriteriaUsed *int                        `json:"custom_criteria_used,omitempty"`
	Qualification      *models.QualificationResult `json:"qualification"`
}

// QualifyExisting scores a stored lead, persists the score and appends the
// reasoning to the lead's notes.
func (s *Service) QualifyExisting(ctx context.Context, id int64) (*QualificationOutcome, error) {
	return s.qualifyStored(ctx, id, s.deps.Qualifier, "AI Qualification", nil)
}

// Rescore qualifies a stored lead against the currently active scoring
// criteria.
func (s *Service) Rescore(ctx context.Context, id int64) (*QualificationOutcome, error) {
	if s.deps.Scope == nil {
		return nil, apperrors.NewConfigurationError("criteria-scoped qualification is not configured")
	}
	stored, err := s.deps.Repo.ActiveCriteria(ctx)
	if err != nil {
		return nil, err
	}
	criteria := make([]models.ScoringCriterion, len(stored))
	for i, c := range stored {
		criteria[i] = c.Criterion()
	}
	used := len(criteria)
	return s.qualifyStored(ctx, id, s.deps.Scope(criteria), "Custom Re-scoring", &used)
}

func (s *Service) qualifyStored(ctx context.Context, id int64, q Qualifier, label string, criteriaUsed *int) (*QualificationOutcome, error) {
	lead, err := s.deps.Repo.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	req := &models.QualificationRequest{
		Name:              lead.Name,
		Email:             lead.Email,
		Company:           models.StringValue(lead.Company),
		JobTitle:          models.StringValue(lead.JobTitle),
		AdditionalContext: models.StringValue(lead.Notes),
	}
	result, err := q.QualifyLead(ctx, req, nil)
	if err != nil {
		s.logger.Error("Lead qualification failed", map[string]interface{}{"leadId": id, "error": err.Error()})
		return nil, err
	}

	notes := fmt.Sprintf("%s\n\n%s: %s", models.StringValue(lead.Notes), label, result.Reasoning)
	if err := s.deps.Repo.SetScoreAndNotes(ctx, id, result.Score, notes); err != nil {
		return nil, err
	}

	previous := lead.Score
	lead.Score = result.Score
	lead.Notes = &notes
	s.reindex(ctx, *lead)

	if result.PriorityLevel == models.PriorityHigh && s.deps.Notifier != nil {
		if err := s.deps.Notifier.HighPriorityLead(ctx, *lead, *result); err != nil {
			s.logger.Warn("Failed to publish high-priority alert", map[string]interface{}{"leadId": id, "error": err.Error()})
		}
	}

	s.logger.Info("Stored lead qualified", map[string]interface{}{
		"leadId":        id,
		"previousScore": previous,
		"newScore":      result.Score,
		"priority":      string(result.PriorityLevel),
	})

	return &QualificationOutcome{
		LeadID:             id,
		PreviousScore:      previous,
		NewScore:           result.Score,
		CustomCriteriaUsed: criteriaUsed,
		Qualification:      result,
	}, nil
}

// ==========================
// Personalization
// ==========================

type PersonalizeOptions struct {
	CampaignType string
	MessageTone  string
	Send         bool
}

type PersonalizationOutcome struct {
	LeadID          int64                         `json:"lead_id"`
	CampaignType    string                        `json:"campaign_type"`
	Personalization *models.PersonalizationResult `json:"personalization"`
	SentMessageID   string                        `json:"sent_message_id,omitempty"`
}

// PersonalizeForLead drafts outreach for a stored lead using its most recent
// interactions as context. With Send set and a mailer configured, the most
// effective variant is emailed and recorded as an email interaction.
func (s *Service) PersonalizeForLead(ctx context.Context, id int64, opts PersonalizeOptions) (*PersonalizationOutcome, error) {
	if opts.CampaignType == "" {
		opts.CampaignType = DefaultCampaignType
	}
	if opts.MessageTone == "" {
		opts.MessageTone = DefaultMessageTone
	}

	lead, err := s.deps.Repo.GetLeadWithInteractions(ctx, id)
	if err != nil {
		return nil, err
	}

	req := &models.PersonalizationRequest{
		LeadName:             lead.Name,
		LeadEmail:            lead.Email,
		Company:              models.StringValue(lead.Company),
		JobTitle:             models.StringValue(lead.JobTitle),
		LeadSource:           string(lead.LeadSource),
		PreviousInteractions: recentContents(lead.Interactions, interactionContextSize),
		CampaignType:         opts.CampaignType,
		MessageTone:          opts.MessageTone,
	}
	result, err := s.deps.Personalizer.PersonalizeMessage(ctx, req, nil)
	if err != nil {
		s.logger.Error("Lead personalization failed", map[string]interface{}{"leadId": id, "error": err.Error()})
		return nil, err
	}

	out := &PersonalizationOutcome{LeadID: id, CampaignType: opts.CampaignType, Personalization: result}
	if !opts.Send {
		return out, nil
	}
	if s.deps.Mailer == nil {
		s.logger.Warn("Send requested but no mailer is configured", map[string]interface{}{"leadId": id})
		return out, nil
	}

	best, _ := result.BestVariant()
	msgID, err := s.deps.Mailer.SendVariant(ctx, lead.Email, best)
	if err != nil {
		return nil, err
	}
	out.SentMessageID = msgID

	content := fmt.Sprintf("Sent: %s", best.Subject)
	if _, err := s.deps.Repo.AddInteraction(ctx, models.InteractionCreate{
		LeadID: id, InteractionType: models.InteractionEmail, Content: &content,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// recentContents returns up to n non-empty contents from a newest-first
// interaction list, oldest first.
func recentContents(interactions []models.Interaction, n int) []string {
	var out []string
	for _, it := range interactions {
		if len(out) == n {
			break
		}
		if c := strings.TrimSpace(models.StringValue(it.Content)); c != "" {
			out = append(out, c)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ==========================
// Scoring criteria and pipeline
// ==========================

func (s *Service) ActiveCriteria(ctx context.Context) ([]models.ScoringCriteria, error) {
	return s.deps.Repo.ActiveCriteria(ctx)
}

func (s *Service) CreateCriterion(ctx context.Context, in models.ScoringCriteriaCreate) (*models.ScoringCriteria, error) {
	return s.deps.Repo.CreateCriterion(ctx, in)
}

func (s *Service) UpdateCriterion(ctx context.Context, id int64, in models.ScoringCriteriaUpdate) (*models.ScoringCriteria, error) {
	return s.deps.Repo.UpdateCriterion(ctx, id, in)
}

func (s *Service) Stages(ctx context.Context) ([]models.PipelineStage, error) {
	return s.deps.Repo.ActiveStages(ctx)
}

func (s *Service) MoveToStage(ctx context.Context, leadID, stageID int64, notes *string) (*models.LeadPipelineHistory, error) {
	if _, err := s.deps.Repo.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	return s.deps.Repo.MoveLeadToStage(ctx, leadID, stageID, notes)
}

func (s *Service) LeadPipeline(ctx context.Context, id int64) (*models.LeadWithPipeline, error) {
	lead, err := s.deps.Repo.GetLeadWithInteractions(ctx, id)
	if err != nil {
		return nil, err
	}
	stage, err := s.deps.Repo.CurrentStage(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.deps.Repo.PipelineHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.LeadWithPipeline{
		Lead:            lead.Lead,
		CurrentStage:    stage,
		PipelineHistory: history,
		Interactions:    lead.Interactions,
	}, nil
}

// ==========================
// Search
// ==========================

func (s *Service) SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error) {
	if s.deps.Search != nil {
		return s.deps.Search.SearchLeads(ctx, req)
	}
	return s.deps.Repo.SearchLeads(ctx, req)
}

func (s *Service) SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error) {
	if s.deps.Search != nil {
		return s.deps.Search.SearchInteractions(ctx, req)
	}
	return s.deps.Repo.SearchInteractions(ctx, req)
}
