package leads

import (
	"context"
	"sync"
	"time"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/models"
)

// memRepo is an in-memory Repository. Interactions are kept newest first.
type memRepo struct {
	mu           sync.Mutex
	leads        map[int64]*models.Lead
	interactions map[int64][]models.Interaction
	criteria     []models.ScoringCriteria
	stages       map[int64]models.PipelineStage
	history      map[int64][]models.LeadPipelineHistory
	nextID       int64
	searched     int
}

func newMemRepo(leads ...models.Lead) *memRepo {
	r := &memRepo{
		leads:        map[int64]*models.Lead{},
		interactions: map[int64][]models.Interaction{},
		stages:       map[int64]models.PipelineStage{},
		history:      map[int64][]models.LeadPipelineHistory{},
		nextID:       100,
	}
	for i := range leads {
		l := leads[i]
		r.leads[l.ID] = &l
	}
	return r
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) ListLeads(_ context.Context, limit, offset int) ([]models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Lead
	for _, l := range r.leads {
		out = append(out, *l)
	}
	return out, nil
}

func (r *memRepo) GetLead(_ context.Context, id int64) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Lead", id)
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) GetLeadWithInteractions(ctx context.Context, id int64) (*models.LeadWithInteractions, error) {
	l, err := r.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return &models.LeadWithInteractions{Lead: *l, Interactions: append([]models.Interaction{}, r.interactions[id]...)}, nil
}

func (r *memRepo) CreateLead(_ context.Context, in models.LeadCreate) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := &models.Lead{ID: r.id(), Name: in.Name, Email: in.Email, Company: in.Company, Status: models.LeadStatusNew}
	r.leads[l.ID] = l
	cp := *l
	return &cp, nil
}

func (r *memRepo) UpdateLead(ctx context.Context, id int64, in models.LeadUpdate) (*models.Lead, error) {
	r.mu.Lock()
	l, ok := r.leads[id]
	if ok && in.Name != nil {
		l.Name = *in.Name
	}
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.NewResourceNotFoundError("Lead", id)
	}
	return r.GetLead(ctx, id)
}

func (r *memRepo) SetScoreAndNotes(_ context.Context, id int64, score int, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return apperrors.NewResourceNotFoundError("Lead", id)
	}
	l.Score = score
	l.Notes = &notes
	return nil
}

func (r *memRepo) AddInteraction(_ context.Context, in models.InteractionCreate) (*models.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := models.Interaction{ID: r.id(), LeadID: in.LeadID, InteractionType: in.InteractionType, Content: in.Content, CreatedAt: time.Now()}
	r.interactions[in.LeadID] = append([]models.Interaction{it}, r.interactions[in.LeadID]...)
	return &it, nil
}

func (r *memRepo) ListInteractions(_ context.Context, leadID int64) ([]models.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Interaction{}, r.interactions[leadID]...), nil
}

func (r *memRepo) ActiveCriteria(context.Context) ([]models.ScoringCriteria, error) {
	return r.criteria, nil
}

func (r *memRepo) CreateCriterion(_ context.Context, in models.ScoringCriteriaCreate) (*models.ScoringCriteria, error) {
	c := models.ScoringCriteria{ID: r.id(), Name: in.Name, Description: in.Description, Weight: in.Weight, IsActive: true}
	r.criteria = append(r.criteria, c)
	return &c, nil
}

func (r *memRepo) UpdateCriterion(_ context.Context, id int64, in models.ScoringCriteriaUpdate) (*models.ScoringCriteria, error) {
	for i := range r.criteria {
		if r.criteria[i].ID == id {
			if in.Weight != nil {
				r.criteria[i].Weight = *in.Weight
			}
			c := r.criteria[i]
			return &c, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("Scoring criteria", id)
}

func (r *memRepo) ActiveStages(context.Context) ([]models.PipelineStage, error) {
	var out []models.PipelineStage
	for _, st := range r.stages {
		out = append(out, st)
	}
	return out, nil
}

func (r *memRepo) CurrentStage(_ context.Context, leadID int64) (*models.PipelineStage, error) {
	h := r.history[leadID]
	if len(h) == 0 {
		return nil, nil
	}
	st := r.stages[h[0].StageID]
	return &st, nil
}

func (r *memRepo) MoveLeadToStage(_ context.Context, leadID, stageID int64, notes *string) (*models.LeadPipelineHistory, error) {
	if _, ok := r.stages[stageID]; !ok {
		return nil, apperrors.NewResourceNotFoundError("Pipeline stage", stageID)
	}
	var prev *int64
	if h := r.history[leadID]; len(h) > 0 {
		p := h[0].StageID
		prev = &p
	}
	entry := models.LeadPipelineHistory{ID: r.id(), LeadID: leadID, StageID: stageID, PreviousStageID: prev, EnteredAt: time.Now(), Notes: notes}
	r.history[leadID] = append([]models.LeadPipelineHistory{entry}, r.history[leadID]...)
	return &entry, nil
}

func (r *memRepo) PipelineHistory(_ context.Context, leadID int64) ([]models.LeadPipelineHistory, error) {
	return r.history[leadID], nil
}

func (r *memRepo) SearchLeads(context.Context, models.SearchRequest) ([]models.Lead, error) {
	r.searched++
	return []models.Lead{{ID: 1, Name: "from sql"}}, nil
}

func (r *memRepo) SearchInteractions(context.Context, models.SearchRequest) ([]models.InteractionHit, error) {
	r.searched++
	return []models.InteractionHit{{InteractionID: 1}}, nil
}

type fakeQualifier struct {
	result   *models.QualificationResult
	err      error
	requests []*models.QualificationRequest
	criteria []models.ScoringCriterion
}

func (f *fakeQualifier) QualifyLead(_ context.Context, req *models.QualificationRequest, _ *models.QualificationContext) (*models.QualificationResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

type fakePersonalizer struct {
	result   *models.PersonalizationResult
	err      error
	requests []*models.PersonalizationRequest
}

func (f *fakePersonalizer) PersonalizeMessage(_ context.Context, req *models.PersonalizationRequest, _ *models.PersonalizationContext) (*models.PersonalizationResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSearch struct {
	indexedLeads        []models.Lead
	indexedInteractions []models.Interaction
	indexErr            error
	searched            int
}

func (f *fakeSearch) IndexLead(_ context.Context, lead models.Lead) error {
	f.indexedLeads = append(f.indexedLeads, lead)
	return f.indexErr
}

func (f *fakeSearch) IndexInteraction(_ context.Context, it models.Interaction, _ models.Lead) error {
	f.indexedInteractions = append(f.indexedInteractions, it)
	return f.indexErr
}

func (f *fakeSearch) SearchLeads(context.Context, models.SearchRequest) ([]models.Lead, error) {
	f.searched++
	return []models.Lead{{ID: 2, Name: "from es"}}, nil
}

func (f *fakeSearch) SearchInteractions(context.Context, models.SearchRequest) ([]models.InteractionHit, error) {
	f.searched++
	return nil, nil
}

type fakeMailer struct {
	to      string
	variant models.MessageVariant
	err     error
}

func (f *fakeMailer) SendVariant(_ context.Context, to string, v models.MessageVariant) (string, error) {
	f.to, f.variant = to, v
	if f.err != nil {
		return "", f.err
	}
	return "ses-1", nil
}

type fakeNotifier struct {
	alerts []models.Lead
}

func (f *fakeNotifier) HighPriorityLead(_ context.Context, lead models.Lead, _ models.QualificationResult) error {
	f.alerts = append(f.alerts, lead)
	return nil
}

func sampleLead() models.Lead {
	return models.Lead{
		ID: 1, Name: "John Smith", Email: "john.smith@techcorp.com",
		Company: models.StringPtr("TechCorp"), JobTitle: models.StringPtr("CTO"),
		LeadSource: models.LeadSourceLinkedIn, Status: models.LeadStatusNew, Score: 40,
		Notes: models.StringPtr("Met at summit"),
	}
}

func qualificationResult(score int, p models.PriorityLevel) *models.QualificationResult {
	return &models.QualificationResult{
		Score: score, Reasoning: "Senior buyer at a growing company", PriorityLevel: p,
		KeyFactors: []string{"seniority"}, RecommendedActions: []string{"call"},
	}
}
