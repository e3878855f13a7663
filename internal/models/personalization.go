package models

import (
	"fmt"
	"strings"
)

const (
	MinVariants = 1
	MaxVariants = 3
)

type PersonalizationRequest struct {
	LeadName             string   `json:"lead_name"`
	LeadEmail            string   `json:"lead_email"`
	Company              string   `json:"company,omitempty"`
	JobTitle             string   `json:"job_title,omitempty"`
	Industry             string   `json:"industry,omitempty"`
	LeadSource           string   `json:"lead_source,omitempty"`
	PreviousInteractions []string `json:"previous_interactions,omitempty"`
	CampaignType         string   `json:"campaign_type"`
	MessageTone          string   `json:"message_tone,omitempty"`
}

// Tone returns the requested tone, defaulting to professional.
func (r *PersonalizationRequest) Tone() string {
	if r.MessageTone == "" {
		return "professional"
	}
	return r.MessageTone
}

// PersonalizationContext carries optional campaign background for one call.
type PersonalizationContext struct {
	CampaignContext   string   `json:"campaign_context,omitempty"`
	CompanyResearch   string   `json:"company_research,omitempty"`
	PainPoints        []string `json:"pain_points,omitempty"`
	ValuePropositions []string `json:"value_propositions,omitempty"`
	VariantCount      int      `json:"variant_count,omitempty"`
	CompanyMessaging  string   `json:"company_messaging,omitempty"`
	IndustryTemplates string   `json:"industry_templates,omitempty"`
}

type MessageVariant struct {
	Subject                string `json:"subject"`
	Body                   string `json:"body"`
	Channel                string `json:"channel"`
	EstimatedEffectiveness int    `json:"estimated_effectiveness"`
}

type PersonalizationResult struct {
	Variants               []MessageVariant `json:"variants"`
	PersonalizationFactors []string         `json:"personalization_factors"`
	BestSendTime           *string          `json:"best_send_time,omitempty"`
	FollowUpStrategy       string           `json:"follow_up_strategy"`
}

// Validate enforces the 1..3 variant bound and the per-variant content rules.
func (r *PersonalizationResult) Validate() error {
	if n := len(r.Variants); n < MinVariants || n > MaxVariants {
		return fmt.Errorf("expected %d to %d variants, got %d", MinVariants, MaxVariants, n)
	}
	for i := range r.Variants {
		v := &r.Variants[i]
		if strings.TrimSpace(v.Subject) == "" || strings.TrimSpace(v.Body) == "" {
			return fmt.Errorf("variant %d has an empty subject or body", i)
		}
		if v.EstimatedEffectiveness < MinScore || v.EstimatedEffectiveness > MaxScore {
			return fmt.Errorf("variant %d estimated_effectiveness %d outside [0, 100]", i, v.EstimatedEffectiveness)
		}
		if v.Channel == "" {
			v.Channel = "email"
		}
	}
	if len(r.PersonalizationFactors) == 0 {
		return fmt.Errorf("personalization_factors is empty")
	}
	if strings.TrimSpace(r.FollowUpStrategy) == "" {
		return fmt.Errorf("follow_up_strategy is empty")
	}
	return nil
}

// BestVariant returns the variant with the highest estimated effectiveness.
// Ties keep the earliest variant.
func (r *PersonalizationResult) BestVariant() (MessageVariant, bool) {
	if len(r.Variants) == 0 {
		return MessageVariant{}, false
	}
	best := r.Variants[0]
	for _, v := range r.Variants[1:] {
		if v.EstimatedEffectiveness > best.EstimatedEffectiveness {
			best = v
		}
	}
	return best, true
}
