package evaluation

import (
	"context"
	"fmt"
	"time"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/metrics"
	"lead-orchestrator/internal/models"
)

type LeadQualifier interface {
	QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error)
}

type MessagePersonalizer interface {
	PersonalizeMessage(ctx context.Context, req *models.PersonalizationRequest, pctx *models.PersonalizationContext) (*models.PersonalizationResult, error)
}

// QualifierFactory returns a qualifier that scores with the given criteria
// without touching the shared service.
type QualifierFactory func(criteria []models.ScoringCriterion) LeadQualifier

// Sleeper pauses between sequential probes.
type Sleeper func(ctx context.Context, d time.Duration) error

// ProbeRecorder receives one call per finished probe.
type ProbeRecorder interface {
	RecordProbe(ctx context.Context, suite string, success bool, duration time.Duration)
}

type options struct {
	sleep    Sleeper
	now      func() time.Time
	recorder ProbeRecorder
}

type Option func(*options)

func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithRecorder(r ProbeRecorder) Option {
	return func(o *options) { o.recorder = r }
}

func newOptions(opts []Option) options {
	o := options{sleep: sleepContext, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// finish builds the suite, records per-probe metrics and logs the outcome.
func (o options) finish(ctx context.Context, name string, results []Result, log logger.Logger) *Suite {
	suite := NewSuite(name, results, o.now())
	for _, r := range results {
		outcome := "failure"
		if r.Success() {
			outcome = "success"
		}
		metrics.EvaluationProbes.WithLabelValues(name, outcome).Inc()
		if o.recorder != nil {
			d, _ := r.ResponseTime()
			o.recorder.RecordProbe(ctx, name, r.Success(), d)
		}
	}
	metrics.EvaluationSuiteSuccessRate.WithLabelValues(name).Set(suite.SuccessRate())
	log.Info("Evaluation suite completed", map[string]interface{}{
		"suite":       name,
		"totalTests":  len(results),
		"successRate": suite.SuccessRate(),
	})
	return suite
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// describeError renders a probe failure and the metadata that classifies it.
func describeError(err error) (string, map[string]interface{}) {
	if apperrors.IsClassified(err) {
		return fmt.Sprintf("Model service error: %v", err), map[string]interface{}{
			"error_type": "service_error",
			"error_code": string(apperrors.CodeOf(err)),
		}
	}
	return fmt.Sprintf("Unexpected error: %v", err), map[string]interface{}{
		"error_type": "unexpected_error",
	}
}

// failed converts err into a failed result for name.
func failed(name string, start time.Time, err error, meta map[string]interface{}) Result {
	msg, errMeta := describeError(err)
	return NewResult(name, false,
		WithResponseTime(time.Since(start)),
		WithError(msg),
		WithMetadata(meta),
		WithMetadata(errMeta),
	)
}

// guard turns a panic inside a probe into a failed result. It must be
// deferred directly by the probe function.
func guard(name string, start time.Time, meta map[string]interface{}, out *Result) {
	if r := recover(); r != nil {
		*out = NewResult(name, false,
			WithResponseTime(time.Since(start)),
			WithError(fmt.Sprintf("Unexpected error: %v", r)),
			WithMetadata(meta),
			WithMetadata(map[string]interface{}{"error_type": "unexpected_error"}),
		)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
