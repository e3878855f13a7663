package models

import (
	"strings"
	"time"
)

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusProposal    LeadStatus = "proposal"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusClosedWon   LeadStatus = "closed_won"
	LeadStatusClosedLost  LeadStatus = "closed_lost"
)

type LeadSource string

const (
	LeadSourceWebsite      LeadSource = "website"
	LeadSourceLinkedIn     LeadSource = "linkedin"
	LeadSourceConference   LeadSource = "conference"
	LeadSourceReferral     LeadSource = "referral"
	LeadSourceEmail        LeadSource = "email"
	LeadSourceColdOutreach LeadSource = "cold_outreach"
	LeadSourceOther        LeadSource = "other"
)

type InteractionType string

const (
	InteractionEmail           InteractionType = "email"
	InteractionPhone           InteractionType = "phone"
	InteractionMeeting         InteractionType = "meeting"
	InteractionLinkedInMessage InteractionType = "linkedin_message"
	InteractionNote            InteractionType = "note"
)

// Lead is a sales prospect row.
type Lead struct {
	ID         int64      `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Company    *string    `json:"company" db:"company"`
	JobTitle   *string    `json:"job_title" db:"job_title"`
	Phone      *string    `json:"phone" db:"phone"`
	LeadSource LeadSource `json:"lead_source" db:"lead_source"`
	Status     LeadStatus `json:"status" db:"status"`
	Score      int        `json:"score" db:"score"`
	Notes      *string    `json:"notes" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// LeadCreate is the payload for a new lead. Unset source and status fall back to other/new.
type LeadCreate struct {
	Name       string     `json:"name" validate:"required,min=1,max=255"`
	Email      string     `json:"email" validate:"required,email"`
	Company    *string    `json:"company,omitempty" validate:"omitempty,max=255"`
	JobTitle   *string    `json:"job_title,omitempty" validate:"omitempty,max=255"`
	Phone      *string    `json:"phone,omitempty" validate:"omitempty,max=50"`
	LeadSource LeadSource `json:"lead_source,omitempty" validate:"omitempty,oneof=website linkedin conference referral email cold_outreach other"`
	Status     LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified proposal negotiation closed_won closed_lost"`
	Score      int        `json:"score" validate:"min=0,max=100"`
	Notes      *string    `json:"notes,omitempty"`
}

// LeadUpdate carries a partial update; nil fields are left untouched.
type LeadUpdate struct {
	Name       *string     `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email      *string     `json:"email,omitempty" validate:"omitempty,email"`
	Company    *string     `json:"company,omitempty" validate:"omitempty,max=255"`
	JobTitle   *string     `json:"job_title,omitempty" validate:"omitempty,max=255"`
	Phone      *string     `json:"phone,omitempty" validate:"omitempty,max=50"`
	LeadSource *LeadSource `json:"lead_source,omitempty" validate:"omitempty,oneof=website linkedin conference referral email cold_outreach other"`
	Status     *LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified proposal negotiation closed_won closed_lost"`
	Score      *int        `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Notes      *string     `json:"notes,omitempty"`
}

func (u LeadUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Company == nil && u.JobTitle == nil &&
		u.Phone == nil && u.LeadSource == nil && u.Status == nil && u.Score == nil && u.Notes == nil
}

type Interaction struct {
	ID              int64           `json:"id" db:"id"`
	LeadID          int64           `json:"lead_id" db:"lead_id"`
	InteractionType InteractionType `json:"interaction_type" db:"interaction_type"`
	Content         *string         `json:"content" db:"content"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type InteractionCreate struct {
	LeadID          int64           `json:"lead_id"`
	InteractionType InteractionType `json:"interaction_type" validate:"required,oneof=email phone meeting linkedin_message note"`
	Content         *string         `json:"content,omitempty"`
}

type LeadWithInteractions struct {
	Lead
	Interactions []Interaction `json:"interactions"`
}

// ScoringCriteria is the stored form of a scoring criterion.
type ScoringCriteria struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	Weight      int       `json:"weight" db:"weight"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Criterion returns the model-facing view of the stored criterion.
func (s ScoringCriteria) Criterion() ScoringCriterion {
	c := ScoringCriterion{Name: s.Name, Weight: s.Weight}
	if s.Description != nil {
		c.Description = *s.Description
	}
	return c
}

type ScoringCriteriaCreate struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Weight      int     `json:"weight" validate:"required,min=1,max=100"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type ScoringCriteriaUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Weight      *int    `json:"weight,omitempty" validate:"omitempty,min=1,max=100"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type PipelineStage struct {
	ID                   int64     `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Description          *string   `json:"description" db:"description"`
	StageOrder           int       `json:"stage_order" db:"stage_order"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	AutoProgressionRules *string   `json:"auto_progression_rules" db:"auto_progression_rules"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// StatusName is the lead status a lead takes on when it enters the stage.
func (p PipelineStage) StatusName() LeadStatus {
	return LeadStatus(strings.ReplaceAll(strings.ToLower(p.Name), " ", "_"))
}

type LeadPipelineHistory struct {
	ID              int64      `json:"id" db:"id"`
	LeadID          int64      `json:"lead_id" db:"lead_id"`
	StageID         int64      `json:"stage_id" db:"stage_id"`
	PreviousStageID *int64     `json:"previous_stage_id" db:"previous_stage_id"`
	EnteredAt       time.Time  `json:"entered_at" db:"entered_at"`
	ExitedAt        *time.Time `json:"exited_at" db:"exited_at"`
	Notes           *string    `json:"notes" db:"notes"`
}

type LeadWithPipeline struct {
	Lead
	CurrentStage    *PipelineStage        `json:"current_stage"`
	PipelineHistory []LeadPipelineHistory `json:"pipeline_history"`
	Interactions    []Interaction         `json:"interactions"`
}

type SearchFilters struct {
	Status     LeadStatus `json:"status,omitempty"`
	LeadSource LeadSource `json:"lead_source,omitempty"`
	MinScore   *int       `json:"min_score,omitempty"`
	MaxScore   *int       `json:"max_score,omitempty"`
}

type SearchRequest struct {
	Query   string         `json:"query" validate:"required,min=1"`
	Filters *SearchFilters `json:"filters,omitempty"`
	Limit   int            `json:"limit" validate:"min=1,max=100"`
	Offset  int            `json:"offset" validate:"min=0"`
}

// InteractionHit is one interaction search match joined with its lead.
type InteractionHit struct {
	InteractionID   int64           `json:"interaction_id" db:"interaction_id"`
	LeadID          int64           `json:"lead_id" db:"lead_id"`
	InteractionType InteractionType `json:"interaction_type" db:"interaction_type"`
	Content         *string         `json:"content" db:"content"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	LeadName        string          `json:"lead_name" db:"lead_name"`
	LeadEmail       string          `json:"lead_email" db:"lead_email"`
	LeadCompany     *string         `json:"lead_company" db:"lead_company"`
}

// StringValue dereferences an optional column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StringPtr(s string) *string {
	return &s
}
