package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

func TestVariationEvaluator_UsesVariationCriteria(t *testing.T) {
	var seen [][]models.ScoringCriterion
	factory := func(criteria []models.ScoringCriterion) LeadQualifier {
		seen = append(seen, criteria)
		return qualifyAlways(60, models.PriorityMedium)
	}
	e := NewVariationEvaluator(factory, logger.NewTestLogger(t), instant())

	suite, err := e.RunSuite(context.Background())

	require.NoError(t, err)
	assert.Equal(t, VariationSuiteName, suite.Name)
	require.Len(t, suite.Results, 3)
	require.Len(t, seen, 3)
	for i, v := range Variations() {
		assert.Equal(t, v.Criteria, seen[i])
		assert.Equal(t, "prompt_variation_"+v.Name, suite.Results[i].TestName())
	}
}

func TestVariationEvaluator_EvaluateVariation(t *testing.T) {
	scores := map[string]int{"Enterprise CTO": 90, "Startup Founder": 60, "Mid-level Manager": 45}

	t.Run("all leads qualify", func(t *testing.T) {
		factory := func([]models.ScoringCriterion) LeadQualifier {
			return &fakeQualifier{fn: func(req *models.QualificationRequest, _ int) (*models.QualificationResult, error) {
				return qualification(scores[req.Name], models.PriorityMedium), nil
			}}
		}
		e := NewVariationEvaluator(factory, logger.NewTestLogger(t))

		r := e.EvaluateVariation(context.Background(), Variations()[0], VariationLeads())

		assert.True(t, r.Success())
		score, _ := r.Score()
		assert.Equal(t, 65.0, score)
	})

	t.Run("one lead fails", func(t *testing.T) {
		factory := func([]models.ScoringCriterion) LeadQualifier {
			return &fakeQualifier{fn: func(req *models.QualificationRequest, _ int) (*models.QualificationResult, error) {
				if req.Name == "Startup Founder" {
					return nil, errors.New("timeout")
				}
				return qualification(scores[req.Name], models.PriorityMedium), nil
			}}
		}
		e := NewVariationEvaluator(factory, logger.NewTestLogger(t))

		r := e.EvaluateVariation(context.Background(), Variations()[2], VariationLeads())

		assert.False(t, r.Success())
		score, _ := r.Score()
		assert.Equal(t, 67.5, score)
		v, _ := r.MetadataValue("failed_evaluations")
		assert.Equal(t, 1, v)
	})
}
