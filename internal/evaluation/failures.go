package evaluation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const FailureSuiteName = "Failure Cases Testing Suite"

// DefaultBurstSize is the number of simultaneous requests in the rate-limit burst.
const DefaultBurstSize = 10

// EdgeCaseLeads are adversarial qualification inputs: minimal, contradictory,
// oversized, multilingual, spam-like and impossible.
func EdgeCaseLeads() []models.QualificationRequest {
	return []models.QualificationRequest{
		{Name: "John Doe", Email: "john@email.com"},
		{
			Name:              "Senior Student",
			Email:             "student@university.edu",
			Company:           "Fortune 500 Corp",
			JobTitle:          "CEO",
			Industry:          "Education",
			CompanySize:       "1 employee",
			AdditionalContext: "Student looking for internship opportunities",
		},
		{
			Name:              "Very Long Name With Many Words That Goes On And On",
			Email:             "extremely.long.email.address.that.should.test.limits@very-long-company-domain-name-that-exceeds-normal-lengths.enterprise.corporation.international.global.com",
			Company:           strings.Repeat("A", 1000),
			JobTitle:          "Senior Executive Vice President of Strategic Initiatives and Business Development Operations Worldwide Global International",
			Industry:          "Technology, Healthcare, Finance, Manufacturing, Education, Entertainment, Sports, Travel, Food, Automotive",
			AdditionalContext: strings.Repeat("A", 5000),
		},
		{
			Name:              "François José María-García",
			Email:             "françois.josé@maría-garcía.企業.com",
			Company:           "Société Française & García Co. 株式会社",
			JobTitle:          "Développeur Principal / 主任開発者",
			Industry:          "Technologie & Innovation 技術革新",
			AdditionalContext: "Contact speaks multiple languages: English, Français, Español, 日本語. Special requirements: ñ, ç, ü, 漢字",
		},
		{
			Name:              "URGENT BUY NOW!!!",
			Email:             "spam@suspicious-domain.tk",
			Company:           "GET RICH QUICK SCHEMES LLC",
			JobTitle:          "Make Money Fast Expert",
			AdditionalContext: "CLICK HERE NOW!!! FREE MONEY!!! NO SCAM!!! 100% GUARANTEED!!!",
		},
		{
			Name:              "Five Year Old CEO",
			Email:             "toddler@impossible.com",
			Company:           "Alphabet Inc",
			JobTitle:          "Chief Executive Officer",
			Industry:          "Technology",
			CompanySize:       "100,000+ employees",
			AdditionalContext: "5 years old, runs Google, has $1 trillion budget, needs enterprise AI solution immediately",
		},
	}
}

// MalformedMessageRequests are personalization inputs the service must survive.
func MalformedMessageRequests() []models.PersonalizationRequest {
	long := strings.Repeat("A very long interaction that goes on and on", 100)
	interactions := make([]string, 50)
	for i := range interactions {
		interactions[i] = long
	}
	return []models.PersonalizationRequest{
		{LeadName: "", LeadEmail: "test@email.com", CampaignType: "cold_outreach"},
		{LeadName: "John Doe", LeadEmail: "not-an-email", CampaignType: "follow_up"},
		{LeadName: "Test User", LeadEmail: "test@email.com", PreviousInteractions: interactions, CampaignType: "demo_request"},
	}
}

type FailureEvaluator struct {
	qualifier    LeadQualifier
	personalizer MessagePersonalizer
	burstSize    int
	logger       logger.Logger
	options
}

func NewFailureEvaluator(q LeadQualifier, p MessagePersonalizer, log logger.Logger, opts ...Option) *FailureEvaluator {
	return &FailureEvaluator{
		qualifier:    q,
		personalizer: p,
		burstSize:    DefaultBurstSize,
		logger:       log.WithFields(map[string]interface{}{"component": "failure-evaluator"}),
		options:      newOptions(opts),
	}
}

// EvaluateEdgeLead passes when the service returns a well-formed bounded result.
func (e *FailureEvaluator) EvaluateEdgeLead(ctx context.Context, index int, lead models.QualificationRequest) (res Result) {
	name := fmt.Sprintf("edge_case_lead_%d", index)
	start := time.Now()
	meta := map[string]interface{}{"case_index": index, "lead_name": truncate(lead.Name, 50)}
	defer guard(name, start, meta, &res)

	resp, err := e.qualifier.QualifyLead(ctx, &lead, nil)
	if err != nil {
		return failed(name, start, err, meta)
	}

	scoreValid := resp.Score >= models.MinScore && resp.Score <= models.MaxScore
	priorityValid := resp.PriorityLevel.Valid()
	return NewResult(name, scoreValid && priorityValid && resp.Reasoning != "",
		WithScore(float64(resp.Score)),
		WithResponseTime(time.Since(start)),
		WithExpected(map[string]interface{}{"test_type": "edge_case", "lead_name": meta["lead_name"]}),
		WithActual(resp),
		WithMetadata(meta),
		WithMetadata(map[string]interface{}{
			"score_valid":      scoreValid,
			"priority_valid":   priorityValid,
			"reasoning_length": len(resp.Reasoning),
			"factors_count":    len(resp.KeyFactors),
			"actions_count":    len(resp.RecommendedActions),
		}),
	)
}

// EvaluateMessageCase passes when the service returns complete variants and a
// follow-up strategy. The score is the variant count.
func (e *FailureEvaluator) EvaluateMessageCase(ctx context.Context, index int, req models.PersonalizationRequest) (res Result) {
	name := fmt.Sprintf("message_fail_case_%d", index)
	start := time.Now()
	meta := map[string]interface{}{"case_index": index, "lead_name": req.LeadName}
	defer guard(name, start, meta, &res)

	resp, err := e.personalizer.PersonalizeMessage(ctx, &req, nil)
	if err != nil {
		return failed(name, start, err, meta)
	}

	complete := len(resp.Variants) > 0
	for _, v := range resp.Variants {
		if v.Subject == "" || v.Body == "" {
			complete = false
		}
	}
	hasFollowUp := strings.TrimSpace(resp.FollowUpStrategy) != ""
	return NewResult(name, complete && hasFollowUp,
		WithScore(float64(len(resp.Variants))),
		WithResponseTime(time.Since(start)),
		WithExpected(map[string]interface{}{"test_type": "message_failure", "lead_name": req.LeadName}),
		WithActual(resp),
		WithMetadata(meta),
		WithMetadata(map[string]interface{}{
			"variants_count":                len(resp.Variants),
			"has_follow_up_strategy":        hasFollowUp,
			"personalization_factors_count": len(resp.PersonalizationFactors),
		}),
	)
}

// BurstCounts tallies the outcomes of a rate-limit burst.
type BurstCounts struct {
	Successful   int `json:"successful"`
	RateLimited  int `json:"rate_limited"`
	Errors       int `json:"errors"`
	Unclassified int `json:"unclassified"`
}

// RateLimitBurst fires n simultaneous qualifications. It passes when every
// failure carries a classified error kind.
func (e *FailureEvaluator) RateLimitBurst(ctx context.Context, n int) (res Result) {
	name := fmt.Sprintf("rate_limit_burst_%d_requests", n)
	start := time.Now()
	defer guard(name, start, nil, &res)

	lead := models.QualificationRequest{Name: "Rate Test Lead", Email: "rate@test.com", Company: "Test Corp"}
	var (
		mu     sync.Mutex
		counts BurstCounts
		g      errgroup.Group
	)
	for i := 0; i < n; i++ {
		g.Go(func() (err error) {
			req := lead
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					counts.Unclassified++
					mu.Unlock()
				}
			}()
			_, qerr := e.qualifier.QualifyLead(ctx, &req, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case qerr == nil:
				counts.Successful++
			case apperrors.IsRateLimit(qerr):
				counts.RateLimited++
			case apperrors.IsClassified(qerr):
				counts.Errors++
			default:
				counts.Unclassified++
			}
			return nil
		})
	}
	_ = g.Wait()

	opts := []ResultOption{
		WithScore(float64(counts.Successful)),
		WithResponseTime(time.Since(start)),
		WithActual(counts),
		WithMetadata(map[string]interface{}{
			"requests":     n,
			"successful":   counts.Successful,
			"rate_limited": counts.RateLimited,
			"errors":       counts.Errors,
			"unclassified": counts.Unclassified,
		}),
	}
	if counts.Unclassified > 0 {
		opts = append(opts, WithError(fmt.Sprintf("%d requests failed with an unclassified error", counts.Unclassified)))
	}
	return NewResult(name, counts.Unclassified == 0, opts...)
}

func (e *FailureEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting failure case evaluation suite", nil)
	var results []Result
	for i, lead := range EdgeCaseLeads() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, e.EvaluateEdgeLead(ctx, i+1, lead))
	}
	for i, req := range MalformedMessageRequests() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, e.EvaluateMessageCase(ctx, i+1, req))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results = append(results, e.RateLimitBurst(ctx, e.burstSize))
	return e.finish(ctx, FailureSuiteName, results, e.logger), nil
}
