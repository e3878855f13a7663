package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	apperrors "lead-orchestrator/internal/common/errors"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		company VARCHAR(255),
		job_title VARCHAR(255),
		phone VARCHAR(50),
		lead_source VARCHAR(50) NOT NULL DEFAULT 'other',
		status VARCHAR(50) NOT NULL DEFAULT 'new',
		score INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN 0 AND 100),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		id BIGSERIAL PRIMARY KEY,
		lead_id BIGINT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		interaction_type VARCHAR(50) NOT NULL,
		content TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS scoring_criteria (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		weight INTEGER NOT NULL CHECK (weight BETWEEN 1 AND 100),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_stages (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		stage_order INTEGER NOT NULL CHECK (stage_order >= 1),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		auto_progression_rules TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS lead_pipeline_history (
		id BIGSERIAL PRIMARY KEY,
		lead_id BIGINT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
		stage_id BIGINT NOT NULL REFERENCES pipeline_stages(id),
		previous_stage_id BIGINT REFERENCES pipeline_stages(id),
		entered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		exited_at TIMESTAMPTZ,
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_lead ON interactions(lead_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_history_lead ON lead_pipeline_history(lead_id, entered_at DESC)`,
}

type seedLead struct {
	name, email, company, jobTitle, source string
}

var seedLeads = []seedLead{
	{"John Smith", "john.smith@techcorp.com", "TechCorp", "CTO", "linkedin"},
	{"Sarah Johnson", "sarah.johnson@innovate.com", "Innovate Solutions", "VP of Sales", "website"},
	{"Mike Chen", "mike.chen@startupxyz.com", "StartupXYZ", "Founder", "conference"},
}

var seedStages = []struct {
	name, description string
}{
	{"New", "Newly added lead"},
	{"Contacted", "Initial outreach sent"},
	{"Qualified", "Lead meets qualification criteria"},
	{"Proposal", "Proposal sent"},
	{"Negotiation", "Terms under discussion"},
	{"Closed Won", "Deal won"},
	{"Closed Lost", "Deal lost"},
}

var seedCriteria = []struct {
	name, description string
	weight            int
}{
	{"Company Size", "Larger organizations have bigger budgets", 25},
	{"Decision Authority", "Contact can approve or strongly influence purchases", 20},
	{"Budget Fit", "Signals of available budget", 20},
	{"Industry Fit", "Industry matches our target market", 15},
	{"Engagement Level", "Depth of prior interactions", 10},
	{"Timing", "Active buying window", 10},
}

// EnsureSchema creates missing tables and seeds an empty database with sample
// leads, the default pipeline stages and the default scoring criteria.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return apperrors.NewQueryFailedError("create schema", err)
			}
		}

		var leads int
		if err := tx.GetContext(ctx, &leads, `SELECT COUNT(*) FROM leads`); err != nil {
			return apperrors.NewQueryFailedError("count leads", err)
		}
		if leads > 0 {
			return nil
		}

		for _, l := range seedLeads {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO leads (name, email, company, job_title, lead_source) VALUES ($1, $2, $3, $4, $5)`,
				l.name, l.email, l.company, l.jobTitle, l.source); err != nil {
				return apperrors.NewQueryFailedError("seed leads", err)
			}
		}
		for i, st := range seedStages {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pipeline_stages (name, description, stage_order) VALUES ($1, $2, $3)`,
				st.name, st.description, i+1); err != nil {
				return apperrors.NewQueryFailedError("seed pipeline stages", err)
			}
		}
		for _, c := range seedCriteria {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO scoring_criteria (name, description, weight) VALUES ($1, $2, $3)`,
				c.name, c.description, c.weight); err != nil {
				return apperrors.NewQueryFailedError("seed scoring criteria", err)
			}
		}

		s.logger.Info("Seeded empty database", map[string]interface{}{
			"leads":    len(seedLeads),
			"stages":   len(seedStages),
			"criteria": len(seedCriteria),
		})
		return nil
	})
}
