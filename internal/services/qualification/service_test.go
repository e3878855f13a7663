package qualification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/validation"
	"lead-orchestrator/internal/grok"
	"lead-orchestrator/internal/models"
	"lead-orchestrator/internal/prompts"
)

type fakeInvoker struct {
	system string
	user   string
	shape  validation.Shape
	reply  string
	err    error
	calls  int
}

func (f *fakeInvoker) Invoke(_ context.Context, systemPrompt, userPrompt string, shape validation.Shape, out grok.Result) error {
	f.calls++
	f.system, f.user, f.shape = systemPrompt, userPrompt, shape
	if f.err != nil {
		return f.err
	}
	if err := json.Unmarshal([]byte(f.reply), out); err != nil {
		return err
	}
	return out.Validate()
}

const reply = `{"score": 64, "reasoning": "Mid-size company with a budget caveat", "key_factors": ["Manager title"], "recommended_actions": ["Nurture"], "priority_level": "medium"}`

func newTestService(t *testing.T, inv *fakeInvoker, criteria ...models.ScoringCriterion) *Service {
	return NewService(inv, prompts.MustNewManager(), logger.NewTestLogger(t), criteria...)
}

func TestQualifyLead_RendersPromptsAndReturnsResult(t *testing.T) {
	inv := &fakeInvoker{reply: reply}
	svc := newTestService(t, inv)

	result, err := svc.QualifyLead(context.Background(), &models.QualificationRequest{
		Name:     "Jane Smith",
		Email:    "jane@midsize.com",
		Company:  "MidSize Corp",
		JobTitle: "Marketing Manager",
	}, &models.QualificationContext{
		PreviousInteractions: []string{"Attended webinar"},
		LeadSourceContext:    "Inbound form",
		IndustryInsights:     "Retail budgets reset in Q1",
	})

	require.NoError(t, err)
	assert.Equal(t, 64, result.Score)
	assert.Equal(t, models.PriorityMedium, result.PriorityLevel)
	assert.Equal(t, validation.QualificationShape.Name, inv.shape.Name)
	assert.Contains(t, inv.user, "Name: Jane Smith")
	assert.Contains(t, inv.user, "Job title: Marketing Manager")
	assert.Contains(t, inv.user, "- Attended webinar")
	assert.Contains(t, inv.user, "Lead source context: Inbound form")
	assert.Contains(t, inv.system, "Retail budgets reset in Q1")
}

func TestQualifyLead_NilContextAndEmptyFields(t *testing.T) {
	inv := &fakeInvoker{reply: reply}
	svc := newTestService(t, inv)

	_, err := svc.QualifyLead(context.Background(), &models.QualificationRequest{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)
	assert.NotContains(t, inv.user, "<no value>")
}

func TestQualifyLead_PropagatesClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"rate limit", apperrors.NewRateLimitExceededError(3, nil), apperrors.ErrCodeRateLimited},
		{"transient", apperrors.NewTransientServiceError(3, nil), apperrors.ErrCodeTransientService},
		{"validation", apperrors.NewValidationError("bad shape", nil), apperrors.ErrCodeValidation},
		{"service", apperrors.NewServiceFailureError(nil), apperrors.ErrCodeServiceFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &fakeInvoker{err: tt.err})

			result, err := svc.QualifyLead(context.Background(), &models.QualificationRequest{Name: "A", Email: "a@b.c"}, nil)

			assert.Nil(t, result)
			assert.Same(t, tt.err, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestScoringCriteria(t *testing.T) {
	inv := &fakeInvoker{reply: reply}
	base := newTestService(t, inv, models.ScoringCriterion{Name: "Company Size", Weight: 25})

	scoped := base.WithScoringCriteria([]models.ScoringCriterion{
		{Name: "Revenue Potential", Description: "Deal size", Weight: 40},
	})
	_, err := scoped.QualifyLead(context.Background(), &models.QualificationRequest{Name: "A"}, nil)
	require.NoError(t, err)
	assert.Contains(t, inv.system, "Revenue Potential (40%): Deal size")
	assert.NotContains(t, inv.system, "Company Size")

	require.Len(t, base.ScoringCriteria(), 1)
	assert.Equal(t, "Company Size", base.ScoringCriteria()[0].Name)

	base.SetScoringCriteria(nil)
	_, err = base.QualifyLead(context.Background(), &models.QualificationRequest{Name: "A"}, nil)
	require.NoError(t, err)
	assert.Contains(t, inv.system, "decision-making authority")
}
