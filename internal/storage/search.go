package storage

import (
	"context"
	"fmt"
	"strings"

	"lead-orchestrator/internal/models"
)

// SearchLeads matches query case-insensitively against name, email, company,
// job title and notes, then applies the optional filters.
func (s *Store) SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error) {
	args := []interface{}{"%" + strings.ToLower(req.Query) + "%"}
	where := []string{`(LOWER(name) LIKE $1 OR LOWER(email) LIKE $1 OR LOWER(COALESCE(company, '')) LIKE $1
	                   OR LOWER(COALESCE(job_title, '')) LIKE $1 OR LOWER(COALESCE(notes, '')) LIKE $1)`}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f := req.Filters; f != nil {
		if f.Status != "" {
			add("status = $%d", f.Status)
		}
		if f.LeadSource != "" {
			add("lead_source = $%d", f.LeadSource)
		}
		if f.MinScore != nil {
			add("score >= $%d", *f.MinScore)
		}
		if f.MaxScore != nil {
			add("score <= $%d", *f.MaxScore)
		}
	}
	args = append(args, req.Limit, req.Offset)

	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	out := []models.Lead{}
	if err := s.selectAll(ctx, &out, "search leads", query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchInteractions matches query against interaction content and joins each
// hit with its lead.
func (s *Store) SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error) {
	query := `SELECT i.id AS interaction_id, i.lead_id, i.interaction_type, i.content, i.created_at,
	                 l.name AS lead_name, l.email AS lead_email, l.company AS lead_company
	          FROM interactions i
	          JOIN leads l ON l.id = i.lead_id
	          WHERE LOWER(COALESCE(i.content, '')) LIKE $1
	          ORDER BY i.created_at DESC
	          LIMIT $2 OFFSET $3`

	out := []models.InteractionHit{}
	if err := s.selectAll(ctx, &out, "search interactions", query,
		"%"+strings.ToLower(req.Query)+"%", req.Limit, req.Offset); err != nil {
		return nil, err
	}
	return out, nil
}
