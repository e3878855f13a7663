package evaluation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const PerformanceSuiteName = "Performance Benchmarks Testing Suite"

type BenchmarkEvaluator struct {
	qualifier    LeadQualifier
	personalizer MessagePersonalizer
	policy       Policy
	logger       logger.Logger
	options
}

func NewBenchmarkEvaluator(q LeadQualifier, p MessagePersonalizer, policy Policy, log logger.Logger, opts ...Option) *BenchmarkEvaluator {
	return &BenchmarkEvaluator{
		qualifier:    q,
		personalizer: p,
		policy:       policy,
		logger:       log.WithFields(map[string]interface{}{"component": "benchmark-evaluator"}),
		options:      newOptions(opts),
	}
}

// RequestSample is one timed request inside a benchmark. Index is the
// request's position in the batch, which concurrent runs keep intact.
type RequestSample struct {
	Index        int     `json:"request_id"`
	ResponseTime float64 `json:"response_time"`
	Success      bool    `json:"success"`
	Score        *int    `json:"score,omitempty"`
	VariantCount *int    `json:"variant_count,omitempty"`
	Error        string  `json:"error,omitempty"`

	elapsed time.Duration
}

type benchmarkStats struct {
	successful  int
	successRate float64
	avg         time.Duration
	min         time.Duration
	max         time.Duration
	rps         float64
}

func computeStats(samples []RequestSample, total time.Duration) benchmarkStats {
	var st benchmarkStats
	if len(samples) == 0 {
		return st
	}
	var sum time.Duration
	st.min = samples[0].elapsed
	for _, s := range samples {
		if s.Success {
			st.successful++
		}
		sum += s.elapsed
		if s.elapsed < st.min {
			st.min = s.elapsed
		}
		if s.elapsed > st.max {
			st.max = s.elapsed
		}
	}
	st.successRate = float64(st.successful) / float64(len(samples))
	st.avg = sum / time.Duration(len(samples))
	if total > 0 {
		st.rps = float64(len(samples)) / total.Seconds()
	}
	return st
}

func (e *BenchmarkEvaluator) result(name string, samples []RequestSample, total time.Duration, scores []float64, extra map[string]interface{}) Result {
	st := computeStats(samples, total)
	times := make([]time.Duration, len(samples))
	for i, s := range samples {
		times[i] = s.elapsed
	}
	healthy := e.policy.Healthy(st.successRate, st.avg)

	opts := []ResultOption{
		WithScore(Mean(scores)),
		WithResponseTime(total),
		WithExpected(map[string]interface{}{
			"min_success_rate":      e.policy.MinSuccessRate,
			"max_avg_response_time": e.policy.MaxAvgLatency.Seconds(),
		}),
		WithActual(map[string]interface{}{"individual_results": samples}),
		WithMetadata(map[string]interface{}{
			"num_requests":        len(samples),
			"successful_requests": st.successful,
			"success_rate":        st.successRate,
			"avg_response_time":   st.avg.Seconds(),
			"min_response_time":   st.min.Seconds(),
			"max_response_time":   st.max.Seconds(),
			"requests_per_second": st.rps,
			"response_times":      seconds(times),
			"avg_score":           Mean(scores),
		}),
		WithMetadata(extra),
	}
	if !healthy {
		opts = append(opts, WithError(fmt.Sprintf("success rate %.2f or average latency %s outside policy", st.successRate, st.avg)))
	}
	return NewResult(name, healthy, opts...)
}

func benchmarkLead() models.QualificationRequest {
	return models.QualificationRequest{
		Name:     "Benchmark Test",
		Email:    "test@benchmark.com",
		Company:  "Benchmark Corp",
		JobTitle: "Test Manager",
		Industry: "Technology",
	}
}

func (e *BenchmarkEvaluator) qualifyTimed(ctx context.Context, index int, req models.QualificationRequest) (sample RequestSample) {
	start := time.Now()
	sample.Index = index
	defer func() {
		if r := recover(); r != nil {
			sample.Success = false
			sample.Error = fmt.Sprintf("Unexpected error: %v", r)
		}
		sample.elapsed = time.Since(start)
		sample.ResponseTime = sample.elapsed.Seconds()
	}()

	resp, err := e.qualifier.QualifyLead(ctx, &req, nil)
	if err != nil {
		sample.Error = err.Error()
		return sample
	}
	sample.Success = true
	sample.Score = &resp.Score
	return sample
}

// SequentialLead issues n qualifications one after another with the
// configured pause between them.
func (e *BenchmarkEvaluator) SequentialLead(ctx context.Context, n int) (res Result) {
	name := fmt.Sprintf("lead_qualification_speed_benchmark_%d_requests", n)
	start := time.Now()
	defer guard(name, start, nil, &res)

	samples := make([]RequestSample, 0, n)
	var scores []float64
	for i := 0; i < n; i++ {
		s := e.qualifyTimed(ctx, i+1, benchmarkLead())
		samples = append(samples, s)
		if s.Score != nil {
			scores = append(scores, float64(*s.Score))
		}
		if err := e.sleep(ctx, e.policy.BenchmarkDelay); err != nil {
			return failed(name, start, err, nil)
		}
	}
	return e.result(name, samples, time.Since(start), scores, nil)
}

// Concurrent issues n qualifications at once and waits for all of them. A
// failing request never cancels the others.
func (e *BenchmarkEvaluator) Concurrent(ctx context.Context, n int) (res Result) {
	name := fmt.Sprintf("concurrent_requests_benchmark_%d", n)
	start := time.Now()
	defer guard(name, start, nil, &res)

	samples := make([]RequestSample, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		req := models.QualificationRequest{
			Name:     fmt.Sprintf("Concurrent Test %d", i),
			Email:    fmt.Sprintf("test%d@concurrent.com", i),
			Company:  "Concurrent Corp",
			JobTitle: "Test Role",
		}
		i := i
		g.Go(func() error {
			samples[i] =e.qualifyTimed(ctx, i, req)
			return nil
		})
	}
	_ = g.Wait()
	total := time.Since(start)

	var scores []float64
	ok := 0
	for _, s := range samples {
		if s.Score != nil {
			scores = append(scores, float64(*s.Score))
			ok++
		}
	}
	rps := 0.0
	if total > 0 {
		rps = float64(ok) / total.Seconds()
	}
	return e.result(name, samples, total, scores, map[string]interface{}{
		"concurrent_requests":           n,
		"failed_requests":               n - ok,
		"effective_requests_per_second": rps,
	})
}

// SequentialMessage benchmarks personalization with the longer message pause.
func (e *BenchmarkEvaluator) SequentialMessage(ctx context.Context, n int) (res Result) {
	name := fmt.Sprintf("message_personalization_speed_benchmark_%d_requests", n)
	start := time.Now()
	defer guard(name, start, nil, &res)

	req := models.PersonalizationRequest{
		LeadName:     "Benchmark User",
		LeadEmail:    "benchmark@test.com",
		Company:      "Benchmark Inc",
		JobTitle:     "Test Executive",
		CampaignType: "cold_outreach",
	}
	samples := make([]RequestSample, 0, n)
	var variants []float64
	for i := 0; i < n; i++ {
		samples = append(samples, e.personalizeTimed(ctx, i+1, req))
		if vc := samples[i].VariantCount; vc != nil {
			variants = append(variants, float64(*vc))
		}
		if err := e.sleep(ctx, e.policy.MessageBenchmarkDelay); err != nil {
			return failed(name, start, err, nil)
		}
	}
	return e.result(name, samples, time.Since(start), variants, map[string]interface{}{
		"avg_variants_per_request": Mean(variants),
	})
}

func (e *BenchmarkEvaluator) personalizeTimed(ctx context.Context, index int, req models.PersonalizationRequest) (sample RequestSample) {
	start := time.Now()
	sample.Index = index
	defer func() {
		if r := recover(); r != nil {
			sample.Success = false
			sample.Error = fmt.Sprintf("Unexpected error: %v", r)
		}
		sample.elapsed = time.Since(start)
		sample.ResponseTime = sample.elapsed.Seconds()
	}()

	resp, err := e.personalizer.PersonalizeMessage(ctx, &req, nil)
	if err != nil {
		sample.Error = err.Error()
		return sample
	}
	n := len(resp.Variants)
	sample.Success = true
	sample.VariantCount = &n
	return sample
}

func (e *BenchmarkEvaluator) RunSuite(ctx context.Context) (*Suite, error) {
	e.logger.Info("Starting performance benchmark suite", nil)
	var results []Result
	for _, n := range []int{5, 10} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, e.SequentialLead(ctx, n))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results = append(results, e.Concurrent(ctx, 5))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results = append(results, e.SequentialMessage(ctx, 3))
	return e.finish(ctx, PerformanceSuiteName, results, e.logger), nil
}
