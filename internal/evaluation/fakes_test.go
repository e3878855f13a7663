package evaluation

import (
	"context"
	"sync"
	"time"

	"lead-orchestrator/internal/models"
)

type qualifyFunc func(req *models.QualificationRequest, call int) (*models.QualificationResult, error)

// fakeQualifier is safe for concurrent use; fn sees a 1-based call number.
type fakeQualifier struct {
	mu       sync.Mutex
	calls    int
	requests []models.QualificationRequest
	fn       qualifyFunc
}

func (f *fakeQualifier) QualifyLead(_ context.Context, req *models.QualificationRequest, _ *models.QualificationContext) (*models.QualificationResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.requests = append(f.requests, *req)
	f.mu.Unlock()
	return f.fn(req, n)
}

func (f *fakeQualifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func qualifyAlways(score int, p models.PriorityLevel) *fakeQualifier {
	return &fakeQualifier{fn: func(*models.QualificationRequest, int) (*models.QualificationResult, error) {
		return qualification(score, p), nil
	}}
}

func qualifyFailing(err error) *fakeQualifier {
	return &fakeQualifier{fn: func(*models.QualificationRequest, int) (*models.QualificationResult, error) {
		return nil, err
	}}
}

func qualification(score int, p models.PriorityLevel) *models.QualificationResult {
	return &models.QualificationResult{
		Score:              score,
		Reasoning:          "Senior title at a funded company",
		KeyFactors:         []string{"Decision maker"},
		RecommendedActions: []string{"Book a demo"},
		PriorityLevel:      p,
	}
}

type personalizeFunc func(req *models.PersonalizationRequest, call int) (*models.PersonalizationResult, error)

type fakePersonalizer struct {
	mu    sync.Mutex
	calls int
	fn    personalizeFunc
}

func (f *fakePersonalizer) PersonalizeMessage(_ context.Context, req *models.PersonalizationRequest, _ *models.PersonalizationContext) (*models.PersonalizationResult, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fn(req, n)
}

// personalizeEcho mentions the lead's first name, company and title in each body.
func personalizeEcho(variants int, effectiveness int) *fakePersonalizer {
	return &fakePersonalizer{fn: func(req *models.PersonalizationRequest, _ int) (*models.PersonalizationResult, error) {
		return echoMessage(req, variants, effectiveness), nil
	}}
}

func echoMessage(req *models.PersonalizationRequest, variants int, effectiveness int) *models.PersonalizationResult {
	out := &models.PersonalizationResult{
		PersonalizationFactors: []string{"Recent funding"},
		FollowUpStrategy:       "Follow up in three days",
	}
	for i := 0; i < variants; i++ {
		out.Variants = append(out.Variants, models.MessageVariant{
			Subject:                "Quick idea for " + req.Company,
			Body:                   "Hi " + req.LeadName + ", as " + req.JobTitle + " at " + req.Company + " you might like this.",
			Channel:                "email",
			EstimatedEffectiveness: effectiveness,
		})
	}
	return out
}

// sleepRecorder is an instant Sleeper that remembers every requested delay.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	return func() time.Time { return ts }
}

func instant() Option {
	return WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
}

type probeRecord struct {
	suite   string
	success bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []probeRecord
}

func (r *fakeRecorder) RecordProbe(_ context.Context, suite string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, probeRecord{suite: suite, success: success})
}
