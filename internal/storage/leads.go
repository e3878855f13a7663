package storage

import (
	"context"
	"fmt"
	"strings"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/models"
)

const leadColumns = `id, name, email, company, job_title, phone, lead_source, status, score, notes, created_at, updated_at`

const interactionColumns = `id, lead_id, interaction_type, content, created_at`

// ListLeads returns leads most recently updated first.
func (s *Store) ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	leads := []models.Lead{}
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY updated_at DESC LIMIT $1 OFFSET $2`
	if err := s.selectAll(ctx, &leads, "list leads", query, limit, offset); err != nil {
		return nil, err
	}
	return leads, nil
}

func (s *Store) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	var lead models.Lead
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	if err := s.get(ctx, s.db, &lead, "Lead", id, query, id); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *Store) GetLeadWithInteractions(ctx context.Context, id int64) (*models.LeadWithInteractions, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	interactions, err := s.ListInteractions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.LeadWithInteractions{Lead: *lead, Interactions: interactions}, nil
}

func (s *Store) CreateLead(ctx context.Context, in models.LeadCreate) (*models.Lead, error) {
	if in.LeadSource == "" {
		in.LeadSource = models.LeadSourceOther
	}
	if in.Status == "" {
		in.Status = models.LeadStatusNew
	}

	var lead models.Lead
	query := `INSERT INTO leads (name, email, company, job_title, phone, lead_source, status, score, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING ` + leadColumns
	err := s.db.QueryRowxContext(ctx, query,
		in.Name, in.Email, in.Company, in.JobTitle, in.Phone, in.LeadSource, in.Status, in.Score, in.Notes,
	).StructScan(&lead)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("create lead", err)
	}

	s.logger.Info("Lead created", map[string]interface{}{"leadId": lead.ID})
	return &lead, nil
}

// UpdateLead applies the non-nil fields of in and bumps updated_at. An empty
// update returns the current row unchanged.
func (s *Store) UpdateLead(ctx context.Context, id int64, in models.LeadUpdate) (*models.Lead, error) {
	if in.IsEmpty() {
		return s.GetLead(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.Company != nil {
		add("company", *in.Company)
	}
	if in.JobTitle != nil {
		add("job_title", *in.JobTitle)
	}
	if in.Phone != nil {
		add("phone", *in.Phone)
	}
	if in.LeadSource != nil {
		add("lead_source", *in.LeadSource)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.Score != nil {
		add("score", *in.Score)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE leads SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), leadColumns)

	var lead models.Lead
	if err := s.get(ctx, s.db, &lead, "Lead", id, query, args...); err != nil {
		return nil, err
	}
	return &lead, nil
}

// SetScoreAndNotes stores a qualification outcome on the lead.
func (s *Store) SetScoreAndNotes(ctx context.Context, id int64, score int, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET score = $1, notes = $2, updated_at = NOW() WHERE id = $3`, score, notes, id)
	if err != nil {
		return apperrors.NewQueryFailedError("update lead score", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewResourceNotFoundError("Lead", id)
	}
	return nil
}

func (s *Store) AddInteraction(ctx context.Context, in models.InteractionCreate) (*models.Interaction, error) {
	var it models.Interaction
	query := `INSERT INTO interactions (lead_id, interaction_type, content)
	          VALUES ($1, $2, $3) RETURNING ` + interactionColumns
	if err := s.db.QueryRowxContext(ctx, query, in.LeadID, in.InteractionType, in.Content).StructScan(&it); err != nil {
		return nil, apperrors.NewQueryFailedError("add interaction", err)
	}
	return &it, nil
}

// ListInteractions returns a lead's interactions newest first.
func (s *Store) ListInteractions(ctx context.Context, leadID int64) ([]models.Interaction, error) {
	out := []models.Interaction{}
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE lead_id = $1 ORDER BY created_at DESC`
	if err := s.selectAll(ctx, &out, "list interactions", query, leadID); err != nil {
		return nil, err
	}
	return out, nil
}
