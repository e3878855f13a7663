package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/models"
)

func TestLeadQualificationPrompts(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	system, err := m.SystemPrompt(LeadQualification, Values{
		"ScoringCriteria": []models.ScoringCriterion{
			{Name: "Revenue Potential", Description: "Deal size", Weight: 40},
		},
		"IndustryInsights": "Healthcare buyers move slowly",
	})
	require.NoError(t, err)
	assert.Contains(t, system, "Revenue Potential (40%): Deal size")
	assert.Contains(t, system, "Healthcare buyers move slowly")
	assert.NotContains(t, system, "About our company")

	user, err := m.UserPrompt(LeadQualification, Values{
		"Name":                 "Jane Doe",
		"Email":                "jane@example.com",
		"Company":              "Acme",
		"PreviousInteractions": []string{"Downloaded whitepaper"},
	})
	require.NoError(t, err)
	assert.Contains(t, user, "Name: Jane Doe")
	assert.Contains(t, user, "Company: Acme")
	assert.Contains(t, user, "- Downloaded whitepaper")
	assert.NotContains(t, user, "Job title")
	assert.NotContains(t, user, "<no value>")
}

func TestMessagePersonalizationPrompts(t *testing.T) {
	m := MustNewManager()

	user, err := m.UserPrompt(MessagePersonalization, Values{
		"LeadName":     "Mike Chen",
		"LeadEmail":    "mike@startup.io",
		"CampaignType": "follow_up",
		"MessageTone":  "friendly",
		"PainPoints":   []string{"manual data entry"},
		"VariantCount": 2,
	})
	require.NoError(t, err)
	assert.Contains(t, user, "Write a follow_up message in a friendly tone.")
	assert.Contains(t, user, "- manual data entry")
	assert.Contains(t, user, "Produce exactly 2 variant(s).")

	system, err := m.SystemPrompt(MessagePersonalization, Values{
		"MessageGuidelines": []string{"Never mention pricing"},
	})
	require.NoError(t, err)
	assert.Contains(t, system, "- Never mention pricing")
}

func TestUnknownServiceType(t *testing.T) {
	m := MustNewManager()

	_, err := m.SystemPrompt(ServiceType("churn_prediction"), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePromptRender, apperrors.CodeOf(err))
}
