package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/models"
)

const stageColumns = `id, name, description, stage_order, is_active, auto_progression_rules, created_at, updated_at`

const historyColumns = `id, lead_id, stage_id, previous_stage_id, entered_at, exited_at, notes`

func (s *Store) ActiveStages(ctx context.Context) ([]models.PipelineStage, error) {
	out := []models.PipelineStage{}
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE is_active = TRUE ORDER BY stage_order`
	if err := s.selectAll(ctx, &out, "list pipeline stages", query); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetStage(ctx context.Context, id int64) (*models.PipelineStage, error) {
	var st models.PipelineStage
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE id = $1`
	if err := s.get(ctx, s.db, &st, "Pipeline stage", id, query, id); err != nil {
		return nil, err
	}
	return &st, nil
}

// CurrentStage returns the stage of the lead's open history row with the
// latest entered_at, or nil when the lead has never entered the pipeline.
func (s *Store) CurrentStage(ctx context.Context, leadID int64) (*models.PipelineStage, error) {
	var st models.PipelineStage
	query := `SELECT ps.id, ps.name, ps.description, ps.stage_order, ps.is_active, ps.auto_progression_rules, ps.created_at, ps.updated_at
	          FROM lead_pipeline_history h
	          JOIN pipeline_stages ps ON ps.id = h.stage_id
	          WHERE h.lead_id = $1 AND h.exited_at IS NULL
	          ORDER BY h.entered_at DESC
	          LIMIT 1`
	err := s.db.GetContext(ctx, &st, query, leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewQueryFailedError("get current stage", err)
	}
	return &st, nil
}

// MoveLeadToStage closes the open history row, opens a new one pointing back
// at the previous stage and sets the lead status from the stage name, all in
// one transaction.
func (s *Store) MoveLeadToStage(ctx context.Context, leadID, stageID int64, notes *string) (*models.LeadPipelineHistory, error) {
	var entry models.LeadPipelineHistory
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var stage models.PipelineStage
		if err := s.get(ctx, tx, &stage, "Pipeline stage", stageID,
			`SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1`, stageID); err != nil {
			return err
		}

		var previous *int64
		var prev int64
		err := tx.GetContext(ctx, &prev,
			`SELECT stage_id FROM lead_pipeline_history
			 WHERE lead_id = $1 AND exited_at IS NULL
			 ORDER BY entered_at DESC LIMIT 1`, leadID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return apperrors.NewQueryFailedError("get open pipeline entry", err)
		default:
			previous = &prev
		}

		if previous != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE lead_pipeline_history SET exited_at = NOW() WHERE lead_id = $1 AND exited_at IS NULL`, leadID); err != nil {
				return apperrors.NewQueryFailedError("close pipeline entry", err)
			}
		}

		if err := tx.QueryRowxContext(ctx,
			`INSERT INTO lead_pipeline_history (lead_id, stage_id, previous_stage_id, notes)
			 VALUES ($1, $2, $3, $4) RETURNING `+historyColumns,
			leadID, stageID, previous, notes).StructScan(&entry); err != nil {
			return apperrors.NewQueryFailedError("insert pipeline entry", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2`, stage.StatusName(), leadID)
		if err != nil {
			return apperrors.NewQueryFailedError("update lead status", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return apperrors.NewResourceNotFoundError("Lead", leadID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lead moved to pipeline stage", map[string]interface{}{"leadId": leadID, "stageId": stageID})
	return &entry, nil
}

// PipelineHistory returns the lead's pipeline entries newest first.
func (s *Store) PipelineHistory(ctx context.Context, leadID int64) ([]models.LeadPipelineHistory, error) {
	out := []models.LeadPipelineHistory{}
	query := `SELECT ` + historyColumns + ` FROM lead_pipeline_history WHERE lead_id = $1 ORDER BY entered_at DESC`
	if err := s.selectAll(ctx, &out, "list pipeline history", query, leadID); err != nil {
		return nil, err
	}
	return out, nil
}
