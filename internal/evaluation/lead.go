package evaluation

import (
	"context"
	"fmt"
	"time"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const LeadSuiteName = "Lead Qualification Evaluation"

// LeadExpectation holds the optional checks applied to one qualification.
// A zero ScoreRange or empty Priorities skips that check.
type LeadExpectation struct {
	ScoreRange *[2]int                `json:"expected_score_range,omitempty"`
	Priorities []models.PriorityLevel `json:"expected_priority,omitempty"`
}

type LeadCase struct {
	Name     string
	Request  models.QualificationRequest
	Expected LeadExpectation
}

func scoreRange(lo, hi int) *[2]int { return &[2]int{lo, hi} }

func priorities(p ...models.PriorityLevel) []models.PriorityLevel { return p }

// LeadCases are the fixed qualification probes.
func LeadCases() []LeadCase {
	return []LeadCase{
		{
			Name: "high_value_enterprise_lead",
			Request: models.QualificationRequest{
				Name:              "Sarah Johnson",
				Email:             "sarah.johnson@enterprise-corp.com",
				Company:           "Enterprise Corp",
				JobTitle:          "Chief Technology Officer",
				Industry:          "Technology",
				CompanySize:       "1000-5000 employees",
				AdditionalContext: "CTO at Fortune 500 company, actively looking for AI solutions",
			},
			Expected: LeadExpectation{ScoreRange: scoreRange(80, 100), Priorities: priorities(models.PriorityHigh)},
		},
		{
			Name: "medium_value_startup_lead",
			Request: models.QualificationRequest{
				Name:              "Mike Chen",
				Email:             "mike@startup-xyz.com",
				Company:           "Startup XYZ",
				JobTitle:          "Founder",
				Industry:          "Technology",
				CompanySize:       "10-50 employees",
				AdditionalContext: "Early-stage startup, limited budget but high potential",
			},
			Expected: LeadExpectation{ScoreRange: scoreRange(60, 85), Priorities: priorities(models.PriorityMedium, models.PriorityHigh)},
		},
		{
			Name: "low_value_individual_lead",
			Request: models.QualificationRequest{
				Name:              "John Doe",
				Email:             "john.doe@gmail.com",
				JobTitle:          "Student",
				Industry:          "Education",
				AdditionalContext: "College student interested in learning about AI",
			},
			Expected: LeadExpectation{ScoreRange: scoreRange(0, 40), Priorities: priorities(models.PriorityLow)},
		},
		{
			Name: "incomplete_lead_data",
			Request: models.QualificationRequest{
				Name:    "Jane Smith",
				Email:   "jane@company.com",
				Company: "Unknown Company",
			},
			Expected: LeadExpectation{ScoreRange: scoreRange(20, 60), Priorities: priorities(models.PriorityLow, models.PriorityMedium)},
		},
		{
			Name: "decision_maker_healthcare",
			Request: models.QualificationRequest{
				Name:              "Dr. Robert Williams",
				Email:             "r.williams@healthsystem.org",
				Company:           "Metro Health System",
				JobTitle:          "Chief Medical Officer",
				Industry:          "Healthcare",
				CompanySize:       "500-1000 employees",
				AdditionalContext: "Leading digital transformation initiatives in healthcare",
			},
			Expected: LeadExpectation{ScoreRange: scoreRange(70, 95), Priorities: priorities(models.PriorityHigh)},
		},
	}
}

// CanonicalMediumLead is a deliberately ambiguous lead used for consistency probes.
func CanonicalMediumLead() models.QualificationRequest {
	return models.QualificationRequest{
		Name:              "Marketing Manager Jane",
		Email:             "jane@mediumcorp.com",
		Company:           "Medium Corp",
		JobTitle:          "Marketing Manager",
		Industry:          "Technology",
		CompanySize:       "100-500 employees",
		AdditionalContext: "Interested in marketing automation tools, needs approval for purchases over $10k",
	}
}

type LeadEvaluator struct {
	qualifier LeadQualifier
	logger    logger.Logger
	options
}

func NewLeadEvaluator(q LeadQualifier, log logger.Logger, opts ...Option) *LeadEvaluator {
	return &LeadEvaluator{
		qualifier: q,
		logger:    log.WithFields(map[string]interface{}{"component": "lead-evaluator"}),
		options:   newOptions(opts),
	}
}

// EvaluateCase runs one fixed case and checks every applicable expectation.
func (e *LeadEvaluator) EvaluateCase(ctx context.Context, c LeadCase) (res Result) {
	start := time.Now()
	defer guard(c.Name, start, nil, &res)

	req := c.Request
	resp, err := e.qualifier.QualifyLead(ctx, &req, nil)
	elapsed := time.Since(start)
	if err != nil {
		return failed(c.Name, start, err, nil)
	}
	if resp == nil {
		return NewResult(c.Name, false, WithResponseTime(elapsed), WithError("Invalid response type"))
	}

	if resp.Score < models.MinScore || resp.Score > models.MaxScore {
		return NewResult(c.Name, false,
			WithScore(float64(resp.Score)),
			WithResponseTime(elapsed),
			WithError(fmt.Sprintf("Score %d is outside valid range (0-100)", resp.Score)),
		)
	}

	scoreValid := true
	if r := c.Expected.ScoreRange; r != nil {
		scoreValid = resp.Score >= r[0] && resp.Score <= r[1]
	}
	priorityValid := true
	if len(c.Expected.Priorities) > 0 {
		priorityValid = containsPriority(c.Expected.Priorities, resp.PriorityLevel)
	}
	fieldsValid := len(resp.Reasoning) >= models.MinReasoningLength &&
		len(resp.KeyFactors) > 0 &&
		len(resp.RecommendedActions) > 0 &&
		resp.PriorityLevel.Valid()

	opts := []ResultOption{
		WithScore(float64(resp.Score)),
		WithResponseTime(elapsed),
		WithExpected(c.Expected),
		WithActual(resp),
		WithMetadata(map[string]interface{}{
			"score_valid":               scoreValid,
			"priority_valid":            priorityValid,
			"fields_valid":              fieldsValid,
			"reasoning_length":          len(resp.Reasoning),
			"key_factors_count":         len(resp.KeyFactors),
			"recommended_actions_count": len(resp.RecommendedActions),
		}),
	}
	switch {
	case !scoreValid:
		opts = append(opts, WithError(fmt.Sprintf("Score %d outside expected range %d-%d", resp.Score, c.Expected.ScoreRange[0], c.Expected.ScoreRange[1])))
	case !priorityValid:
		opts = append(opts, WithError(fmt.Sprintf("Priority %q not in expected %v", resp.PriorityLevel, c.Expected.Priorities)))
	case !fieldsValid:
		opts = append(opts, WithError("Reasoning, key factors or recommended actions missing"))
	}
	return NewResult(c.Name, scoreValid && priorityValid && fieldsValid, opts...)
}

// EvaluateConsistency qualifies req trials times back to back and passes when
// the score spread stays inside the consistency band.
func (e *LeadEvaluator) EvaluateConsistency(ctx context.Context, req models.QualificationRequest, trials int) (res Result) {
	name := fmt.Sprintf("consistency_test_%d_trials", trials)
	start := time.Now()
	defer guard(name, start, nil, &res)

	scores := make([]int, 0, trials)
	for i := 0; i < trials; i++ {
		resp, err := e.qualifier.QualifyLead(ctx, &req, nil)
		if err != nil {
			msg, meta := describeError(err)
			return NewResult(name, false,
				WithResponseTime(time.Since(start)),
				WithError("Consistency test failed: "+msg),
				WithMetadata(meta),
			)
		}
		scores = append(scores, resp.Score)
	}

	xs := ints(scores)
	std, spread := StdDev(xs), Range(xs)
	return NewResult(name, std < MaxScoreStdDev && spread < MaxScoreRange,
		WithScore(Mean(xs)),
		WithResponseTime(time.Since(start)),
		WithMetadata(map[string]interface{}{
			"scores":      scores,
			"score_std":   std,
			"score_range": spread,
			"trials":      trials,
		}),
	)
}

// RunSuite runs the fixed cases in order, then a three-trial consistency probe.
func (e *LeadEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting lead qualification evaluation suite", nil)
	var results []Result
	for _, c := range LeadCases() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := e.EvaluateCase(ctx, c)
		results = append(results, r)
		e.logger.Info("Evaluation case finished", map[string]interface{}{"test": c.Name, "passed": r.Success()})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results = append(results, e.EvaluateConsistency(ctx, CanonicalMediumLead(), 3))
	return e.finish(ctx, LeadSuiteName, results, e.logger), nil
}

func containsPriority(set []models.PriorityLevel, p models.PriorityLevel) bool {
	for _, s := range set {
		if s == p {
			return true
		}
	}
	return false
}
