package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const MessageSuiteName = "Message Personalization Evaluation"

// PersonalizationPassScore is the minimum personalization score for a pass.
const PersonalizationPassScore = 75

type MessageExpectation struct {
	MinVariants             int      `json:"min_variants"`
	RequiredElements        []string `json:"required_elements"`
	MaxBodyLength           int      `json:"max_body_length,omitempty"`
	PersonalizationRequired bool     `json:"personalization_required,omitempty"`
	IndustrySpecific        bool     `json:"industry_specific,omitempty"`
}

type MessageCase struct {
	Name     string
	Request  models.PersonalizationRequest
	Expected MessageExpectation
}

var requiredElements = []string{"subject", "body"}

func MessageCases() []MessageCase {
	return []MessageCase{
		{
			Name: "cold_outreach_enterprise_cto",
			Request: models.PersonalizationRequest{
				LeadName:     "Sarah Johnson",
				LeadEmail:    "sarah.johnson@enterprise-corp.com",
				Company:      "Enterprise Corp",
				JobTitle:     "Chief Technology Officer",
				Industry:     "Technology",
				LeadSource:   "linkedin",
				CampaignType: "cold_outreach",
				MessageTone:  "professional",
			},
			Expected: MessageExpectation{MinVariants: 1, RequiredElements: requiredElements, MaxBodyLength: 500},
		},
		{
			Name: "follow_up_startup_founder",
			Request: models.PersonalizationRequest{
				LeadName:             "Mike Chen",
				LeadEmail:            "mike@startup-xyz.com",
				Company:              "Startup XYZ",
				JobTitle:             "Founder",
				Industry:             "Technology",
				LeadSource:           "conference",
				PreviousInteractions: []string{"Met at AI conference", "Showed interest in demo"},
				CampaignType:         "follow_up",
				MessageTone:          "friendly",
			},
			Expected: MessageExpectation{MinVariants: 1, RequiredElements: requiredElements, PersonalizationRequired: true},
		},
		{
			Name: "demo_request_healthcare_cmo",
			Request: models.PersonalizationRequest{
				LeadName:     "Dr. Robert Williams",
				LeadEmail:    "r.williams@healthsystem.org",
				Company:      "Metro Health System",
				JobTitle:     "Chief Medical Officer",
				Industry:     "Healthcare",
				LeadSource:   "website",
				CampaignType: "demo_request",
				MessageTone:  "formal",
			},
			Expected: MessageExpectation{MinVariants: 1, RequiredElements: requiredElements, IndustrySpecific: true},
		},
	}
}

type MessageEvaluator struct {
	personalizer MessagePersonalizer
	logger       logger.Logger
	options
}

func NewMessageEvaluator(p MessagePersonalizer, log logger.Logger, opts ...Option) *MessageEvaluator {
	return &MessageEvaluator{
		personalizer: p,
		logger:       log.WithFields(map[string]interface{}{"component": "message-evaluator"}),
		options:      newOptions(opts),
	}
}

// PersonalizationScore awards 25 points each for the first name, the company
// and the job title appearing in any body, and 25 for non-empty factors.
// When personalization is not required the score is 100.
func PersonalizationScore(req models.PersonalizationRequest, resp *models.PersonalizationResult, required bool) int {
	if !required {
		return 100
	}
	anyBody := func(match func(body string) bool) bool {
		for _, v := range resp.Variants {
			if match(v.Body) {
				return true
			}
		}
		return false
	}

	score := 0
	if fields := strings.Fields(req.LeadName); len(fields) > 0 {
		first := fields[0]
		if anyBody(func(b string) bool { return strings.Contains(b, first) }) {
			score += 25
		}
	}
	if req.Company != "" && anyBody(func(b string) bool { return strings.Contains(b, req.Company) }) {
		score += 25
	}
	if req.JobTitle != "" {
		title := strings.ToLower(req.JobTitle)
		if anyBody(func(b string) bool { return strings.Contains(strings.ToLower(b), title) }) {
			score += 25
		}
	}
	if len(resp.PersonalizationFactors) > 0 {
		score += 25
	}
	return score
}

func (e *MessageEvaluator) EvaluateCase(ctx context.Context, c MessageCase) (res Result) {
	start := time.Now()
	defer guard(c.Name, start, nil, &res)

	req := c.Request
	resp, err := e.personalizer.PersonalizeMessage(ctx, &req, nil)
	elapsed := time.Since(start)
	if err != nil {
		return failed(c.Name, start, err, nil)
	}
	if resp == nil {
		return NewResult(c.Name, false, WithResponseTime(elapsed), WithError("Invalid response type"))
	}

	minVariants := c.Expected.MinVariants
	if minVariants < 1 {
		minVariants = 1
	}
	if len(resp.Variants) < minVariants {
		return NewResult(c.Name, false, WithResponseTime(elapsed),
			WithError(fmt.Sprintf("Expected at least %d variants, got %d", minVariants, len(resp.Variants))))
	}

	for i, v := range resp.Variants {
		for _, el := range c.Expected.RequiredElements {
			if variantElement(v, el) == "" {
				return NewResult(c.Name, false, WithResponseTime(elapsed),
					WithError(fmt.Sprintf("Variant %d missing required element: %s", i, el)))
			}
		}
	}

	if limit := c.Expected.MaxBodyLength; limit > 0 {
		for i, v := range resp.Variants {
			if n := len([]rune(v.Body)); n > limit {
				return NewResult(c.Name, false, WithResponseTime(elapsed),
					WithError(fmt.Sprintf("Variant %d body too long: %d > %d", i, n, limit)))
			}
		}
	}

	pscore := PersonalizationScore(req, resp, c.Expected.PersonalizationRequired)
	allComplete := true
	subjectLens := make([]float64, 0, len(resp.Variants))
	bodyLens := make([]float64, 0, len(resp.Variants))
	for _, v := range resp.Variants {
		if v.Subject == "" || v.Body == "" {
			allComplete = false
		}
		subjectLens = append(subjectLens, float64(len([]rune(v.Subject))))
		bodyLens = append(bodyLens, float64(len([]rune(v.Body))))
	}

	success := allComplete &&
		pscore >= PersonalizationPassScore &&
		strings.TrimSpace(resp.FollowUpStrategy) != "" &&
		len(resp.PersonalizationFactors) > 0

	opts := []ResultOption{
		WithScore(float64(pscore)),
		WithResponseTime(elapsed),
		WithExpected(c.Expected),
		WithActual(resp),
		WithMetadata(map[string]interface{}{
			"variants_count":                len(resp.Variants),
			"personalization_score":         pscore,
			"avg_subject_length":            Mean(subjectLens),
			"avg_body_length":               Mean(bodyLens),
			"personalization_factors_count": len(resp.PersonalizationFactors),
		}),
	}
	if !success {
		opts = append(opts, WithError(fmt.Sprintf("Personalization score %d or follow-up content below threshold", pscore)))
	}
	return NewResult(c.Name, success, opts...)
}

func (e *MessageEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting message personalization evaluation suite", nil)
	var results []Result
	for _, c := range MessageCases() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := e.EvaluateCase(ctx, c)
		results = append(results, r)
		e.logger.Info("Evaluation case finished", map[string]interface{}{"test": c.Name, "passed": r.Success()})
	}
	return e.finish(ctx, MessageSuiteName, results, e.logger), nil
}

func variantElement(v models.MessageVariant, element string) string {
	switch element {
	case "subject":
		return v.Subject
	case "body":
		return v.Body
	case "channel":
		return v.Channel
	}
	return ""
}
