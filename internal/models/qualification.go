package models

import (
	"fmt"
	"strings"
)

type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

func (p PriorityLevel) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

const (
	MinScore           = 0
	MaxScore           = 100
	MinReasoningLength = 10
)

// QualificationRequest describes a lead to score. Only name and email carry
// meaning for the caller; every other field may be empty or arbitrarily long.
type QualificationRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Company           string `json:"company,omitempty"`
	JobTitle          string `json:"job_title,omitempty"`
	Industry          string `json:"industry,omitempty"`
	CompanySize       string `json:"company_size,omitempty"`
	Website           string `json:"website,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// ScoringCriterion is one weighted factor handed to the model.
type ScoringCriterion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// QualificationContext carries optional situational background for one call.
type QualificationContext struct {
	PreviousInteractions []string `json:"previous_interactions,omitempty"`
	LeadSourceContext    string   `json:"lead_source_context,omitempty"`
	CompanyContext       string   `json:"company_context,omitempty"`
	IndustryInsights     string   `json:"industry_insights,omitempty"`
}

type QualificationResult struct {
	Score              int           `json:"score"`
	Reasoning          string        `json:"reasoning"`
	KeyFactors         []string      `json:"key_factors"`
	RecommendedActions []string      `json:"recommended_actions"`
	PriorityLevel      PriorityLevel `json:"priority_level"`
}

// Validate rejects results that break the range, enumeration or content invariants.
func (r *QualificationResult) Validate() error {
	if r.Score < MinScore || r.Score > MaxScore {
		return fmt.Errorf("score %d outside [%d, %d]", r.Score, MinScore, MaxScore)
	}
	if !r.PriorityLevel.Valid() {
		return fmt.Errorf("priority_level %q not in {high, medium, low}", r.PriorityLevel)
	}
	if len(strings.TrimSpace(r.Reasoning)) < MinReasoningLength {
		return fmt.Errorf("reasoning shorter than %d characters", MinReasoningLength)
	}
	if len(r.KeyFactors) == 0 {
		return fmt.Errorf("key_factors is empty")
	}
	if len(r.RecommendedActions) == 0 {
		return fmt.Errorf("recommended_actions is empty")
	}
	return nil
}
