package evaluation

import (
	"context"
	"fmt"
	"time"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const VariationSuiteName = "Prompt Variations Testing Suite"

// Variation is a named scoring philosophy applied to the same fixed leads.
type Variation struct {
	Name     string
	Criteria []models.ScoringCriterion
}

func Variations() []Variation {
	return []Variation{
		{Name: "aggressive", Criteria: []models.ScoringCriterion{
			{Name: "Revenue Potential", Weight: 40, Description: "Immediate revenue opportunity"},
			{Name: "Decision Speed", Weight: 30, Description: "Speed of decision making"},
			{Name: "Budget Authority", Weight: 30, Description: "Direct budget control"},
		}},
		{Name: "conservative", Criteria: []models.ScoringCriterion{
			{Name: "Long-term Fit", Weight: 35, Description: "Strategic alignment for long-term partnership"},
			{Name: "Market Position", Weight: 25, Description: "Company stability and market position"},
			{Name: "Cultural Fit", Weight: 20, Description: "Cultural and value alignment"},
			{Name: "Growth Trajectory", Weight: 20, Description: "Company growth potential"},
		}},
		{Name: "balanced", Criteria: []models.ScoringCriterion{
			{Name: "Company Fit", Weight: 25, Description: "Overall company alignment"},
			{Name: "Contact Quality", Weight: 25, Description: "Quality of contact information"},
			{Name: "Intent Signals", Weight: 25, Description: "Buying intent indicators"},
			{Name: "Market Timing", Weight: 25, Description: "Market timing factors"},
		}},
	}
}

func VariationLeads() []models.QualificationRequest {
	return []models.QualificationRequest{
		{
			Name:              "Enterprise CTO",
			Email:             "cto@bigcorp.com",
			Company:           "Big Corp",
			JobTitle:          "Chief Technology Officer",
			Industry:          "Technology",
			CompanySize:       "5000+ employees",
			AdditionalContext: "Looking for AI solutions, has budget approval authority",
		},
		{
			Name:              "Startup Founder",
			Email:             "founder@startup.com",
			Company:           "Early Startup",
			JobTitle:          "Founder & CEO",
			Industry:          "Technology",
			CompanySize:       "5-10 employees",
			AdditionalContext: "Bootstrap startup, limited budget but high growth potential",
		},
		{
			Name:              "Mid-level Manager",
			Email:             "manager@company.com",
			Company:           "Mid Corp",
			JobTitle:          "IT Manager",
			Industry:          "Manufacturing",
			CompanySize:       "200-500 employees",
			AdditionalContext: "Interested in automation but needs approval from above",
		},
	}
}

type VariationEvaluator struct {
	factory QualifierFactory
	logger  logger.Logger
	options
}

func NewVariationEvaluator(factory QualifierFactory, log logger.Logger, opts ...Option) *VariationEvaluator {
	return &VariationEvaluator{
		factory: factory,
		logger:  log.WithFields(map[string]interface{}{"component": "variation-evaluator"}),
		options: newOptions(opts),
	}
}

type leadOutcome struct {
	Lead                    string `json:"lead"`
	Score                   *int   `json:"score,omitempty"`
	Priority                string `json:"priority,omitempty"`
	Reasoning               string `json:"reasoning,omitempty"`
	KeyFactorsCount         int    `json:"key_factors_count,omitempty"`
	RecommendedActionsCount int    `json:"recommended_actions_count,omitempty"`
	Error                   string `json:"error,omitempty"`
}

// EvaluateVariation qualifies every lead with v's criteria. It passes only when
// all leads qualify; the score is the average over the successful ones.
func (e *VariationEvaluator) EvaluateVariation(ctx context.Context, v Variation, leads []models.QualificationRequest) (res Result) {
	name := "prompt_variation_" + v.Name
	start := time.Now()
	defer guard(name, start, nil, &res)

	q := e.factory(v.Criteria)
	outcomes := make([]leadOutcome, 0, len(leads))
	total, ok := 0, 0
	for i := range leads {
		lead := leads[i]
		label := fmt.Sprintf("%s - %s", lead.Name, lead.Company)
		resp, err := q.QualifyLead(ctx, &lead, nil)
		if err != nil {
			outcomes = append(outcomes, leadOutcome{Lead: label, Error: err.Error()})
			continue
		}
		reasoning := resp.Reasoning
		if len([]rune(reasoning)) > 200 {
			reasoning = truncate(reasoning, 200) + "..."
		}
		outcomes = append(outcomes, leadOutcome{
			Lead:                    label,
			Score:                   &resp.Score,
			Priority:                string(resp.PriorityLevel),
			Reasoning:               reasoning,
			KeyFactorsCount:         len(resp.KeyFactors),
			RecommendedActionsCount: len(resp.RecommendedActions),
		})
		total += resp.Score
		ok++
	}

	avg := 0.0
	if ok > 0 {
		avg = float64(total) / float64(ok)
	}
	return NewResult(name, ok == len(leads),
		WithScore(avg),
		WithResponseTime(time.Since(start)),
		WithExpected(map[string]interface{}{"variation": v.Name, "criteria": v.Criteria}),
		WithActual(map[string]interface{}{"results": outcomes, "successful_evaluations": ok}),
		WithMetadata(map[string]interface{}{
			"variation_name":         v.Name,
			"total_leads":            len(leads),
			"successful_evaluations": ok,
			"failed_evaluations":     len(leads) - ok,
			"average_score":          avg,
			"scoring_criteria":       v.Criteria,
		}),
	)
}

func (e *VariationEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting prompt variation evaluation suite", nil)
	var results []Result
	leads := VariationLeads()
	for _, v := range Variations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, e.EvaluateVariation(ctx, v, leads))
	}
	return e.finish(ctx, VariationSuiteName, results, e.logger), nil
}
