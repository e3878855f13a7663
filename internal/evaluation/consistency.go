package evaluation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const ConsistencySuiteName = "Consistency Testing Suite"

// Consistency bands for repeated calls with identical input.
const (
	MaxScoreStdDev         = 10.0
	MaxScoreRange          = 20.0
	MaxEffectivenessStdDev = 15.0
)

// CanonicalMessageRequest is the fixed request for message consistency probes.
func CanonicalMessageRequest() models.PersonalizationRequest {
	return models.PersonalizationRequest{
		LeadName:     "John Smith",
		LeadEmail:    "john@techstartup.com",
		Company:      "TechStartup Inc",
		JobTitle:     "CTO",
		Industry:     "Technology",
		LeadSource:   "linkedin",
		CampaignType: "cold_outreach",
		MessageTone:  "professional",
	}
}

type ConsistencyEvaluator struct {
	qualifier    LeadQualifier
	personalizer MessagePersonalizer
	policy       Policy
	logger       logger.Logger
	options
}

func NewConsistencyEvaluator(q LeadQualifier, p MessagePersonalizer, policy Policy, log logger.Logger, opts ...Option) *ConsistencyEvaluator {
	return &ConsistencyEvaluator{
		qualifier:    q,
		personalizer: p,
		policy:       policy,
		logger:       log.WithFields(map[string]interface{}{"component": "consistency-evaluator"}),
		options:      newOptions(opts),
	}
}

// LeadConsistency passes when the score stddev and range stay inside the band
// and every trial returns the same priority.
func (e *ConsistencyEvaluator) LeadConsistency(ctx context.Context, req models.QualificationRequest, trials int) (res Result) {
	name := fmt.Sprintf("lead_consistency_%d_trials", trials)
	start := time.Now()
	defer guard(name, start, nil, &res)

	scores := make([]int, 0, trials)
	prios := make([]string, 0, trials)
	for i := 0; i < trials; i++ {
		resp, err := e.qualifier.QualifyLead(ctx, &req, nil)
		if err != nil {
			return consistencyFailure(name, start, "Consistency test failed", err)
		}
		scores = append(scores, resp.Score)
		prios = append(prios, string(resp.PriorityLevel))
		if err := e.sleep(ctx, e.policy.LeadConsistencyDelay); err != nil {
			return consistencyFailure(name, start, "Consistency test failed", err)
		}
	}

	xs := ints(scores)
	std, spread := StdDev(xs), Range(xs)
	unique := uniqueStrings(prios)
	priorityConsistent := len(unique) == 1

	return NewResult(name, std < MaxScoreStdDev && spread < MaxScoreRange && priorityConsistent,
		WithScore(Mean(xs)),
		WithResponseTime(time.Since(start)),
		WithMetadata(map[string]interface{}{
			"trials":              trials,
			"scores":              scores,
			"priorities":          prios,
			"score_std":           std,
			"score_range":         spread,
			"priority_consistent": priorityConsistent,
			"unique_priorities":   unique,
			"score_mean":          Mean(xs),
			"score_median":        Median(xs),
		}),
	)
}

// MessageConsistency passes when every trial returns the same number of
// variants and the pooled effectiveness stddev stays below the band.
func (e *ConsistencyEvaluator) MessageConsistency(ctx context.Context, req models.PersonalizationRequest, trials int) (res Result) {
	name := fmt.Sprintf("message_consistency_%d_trials", trials)
	start := time.Now()
	defer guard(name, start, nil, &res)

	counts := make([]int, 0, trials)
	var effectiveness []int
	for i := 0; i < trials; i++ {
		resp, err := e.personalizer.PersonalizeMessage(ctx, &req, nil)
		if err != nil {
			return consistencyFailure(name, start, "Message consistency test failed", err)
		}
		counts = append(counts, len(resp.Variants))
		for _, v := range resp.Variants {
			effectiveness = append(effectiveness, v.EstimatedEffectiveness)
		}
		if err := e.sleep(ctx, e.policy.MessageConsistencyDelay); err != nil {
			return consistencyFailure(name, start, "Message consistency test failed", err)
		}
	}

	cs, es := ints(counts), ints(effectiveness)
	countConsistent := true
	for _, c := range counts {
		if c != counts[0] {
			countConsistent = false
		}
	}
	effStd := StdDev(es)

	return NewResult(name, countConsistent && effStd < MaxEffectivenessStdDev,
		WithScore(Mean(es)),
		WithResponseTime(time.Since(start)),
		WithMetadata(map[string]interface{}{
			"trials":                   trials,
			"variant_counts":           counts,
			"effectiveness_scores":     effectiveness,
			"variant_count_std":        StdDev(cs),
			"effectiveness_std":        effStd,
			"variant_count_consistent": countConsistent,
			"avg_variant_count":        Mean(cs),
			"avg_effectiveness":        Mean(es),
		}),
	)
}

func (e *ConsistencyEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting consistency evaluation suite", nil)
	results := []Result{e.LeadConsistency(ctx, CanonicalMediumLead(), 5)}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results = append(results, e.MessageConsistency(ctx, CanonicalMessageRequest(), 3))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.finish(ctx, ConsistencySuiteName, results, e.logger), nil
}

func consistencyFailure(name string, start time.Time, prefix string, err error) Result {
	msg, meta := describeError(err)
	return NewResult(name, false,
		WithResponseTime(time.Since(start)),
		WithError(prefix+": "+msg),
		WithMetadata(meta),
	)
}

func uniqueStrings(xs []string) []string {
	seen := make(map[string]struct{}, len(xs))
	var out []string
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Strings(out)
	return out
}
