package storage

import (
	"context"
	"fmt"
	"strings"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/models"
)

const criteriaColumns = `id, name, description, weight, is_active, created_at, updated_at`

// ActiveCriteria returns active scoring criteria, heaviest first.
func (s *Store) ActiveCriteria(ctx context.Context) ([]models.ScoringCriteria, error) {
	out := []models.ScoringCriteria{}
	query := `SELECT ` + criteriaColumns + ` FROM scoring_criteria WHERE is_active = TRUE ORDER BY weight DESC`
	if err := s.selectAll(ctx, &out, "list scoring criteria", query); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateCriterion(ctx context.Context, in models.ScoringCriteriaCreate) (*models.ScoringCriteria, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	var c models.ScoringCriteria
	query := `INSERT INTO scoring_criteria (name, description, weight, is_active)
	          VALUES ($1, $2, $3, $4) RETURNING ` + criteriaColumns
	if err := s.db.QueryRowxContext(ctx, query, in.Name, in.Description, in.Weight, active).StructScan(&c); err != nil {
		return nil, apperrors.NewQueryFailedError("create scoring criterion", err)
	}
	return &c, nil
}

// UpdateCriterion applies the non-nil fields and bumps updated_at.
func (s *Store) UpdateCriterion(ctx context.Context, id int64, in models.ScoringCriteriaUpdate) (*models.ScoringCriteria, error) {
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
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Weight != nil {
		add("weight", *in.Weight)
	}
	if in.IsActive != nil {
		add("is_active", *in.IsActive)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE scoring_criteria SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), criteriaColumns)

	var c models.ScoringCriteria
	if err := s.get(ctx, s.db, &c, "Scoring criteria", id, query, args...); err != nil {
		return nil, err
	}
	return &c, nil
}
