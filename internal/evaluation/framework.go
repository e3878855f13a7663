package evaluation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
)

// Suite kinds accepted by Framework.Run.
const (
	KindAll                    = "all"
	KindLeadQualification      = "lead_qualification"
	KindMessagePersonalization = "message_personalization"
	KindPromptVariations       = "prompt_variations"
	KindFailureCases           = "failure_cases"
	KindConsistency            = "consistency"
	KindPerformance            = "performance"
)

const (
	ComprehensiveSuiteName = "Comprehensive Evaluation"
	ComprehensiveFilename  = "comprehensive_evaluation_results.json"
)

// comprehensiveFiles are the fixed report names of the extended suites.
var comprehensiveFiles = map[string]string{
	KindPromptVariations: "prompt_variation_results.json",
	KindFailureCases:     "failure_test_results.json",
	KindConsistency:      "consistency_test_results.json",
	KindPerformance:      "performance_benchmark_results.json",
}

type suiteRunner interface {
	RunSuite(ctx context.Context) (*Suite, error)
}

// Dependencies wires a Framework. Index is optional.
type Dependencies struct {
	Qualifier    LeadQualifier
	Personalizer MessagePersonalizer
	Factory      QualifierFactory
	Policy       Policy
	Writer       *ReportWriter
	Index        *RedisIndex
}

type Framework struct {
	deps    Dependencies
	logger  logger.Logger
	opts    []Option
	options options
	newID   func() string
}

func NewFramework(deps Dependencies, log logger.Logger, opts ...Option) *Framework {
	if deps.Writer == nil {
		deps.Writer = NewReportWriter("")
	}
	return &Framework{
		deps:    deps,
		logger:  log.WithFields(map[string]interface{}{"component": "evaluation-framework"}),
		opts:    opts,
		options: newOptions(opts),
		newID:   func() string { return uuid.New().String() },
	}
}

func (f *Framework) OutputDir() string { return f.deps.Writer.Dir() }

// Index returns the redis index, or nil when none is configured.
func (f *Framework) Index() *RedisIndex { return f.deps.Index }

func (f *Framework) runner(kind string) (suiteRunner, bool) {
	d := f.deps
	switch kind {
	case KindLeadQualification:
		return NewLeadEvaluator(d.Qualifier, f.logger, f.opts...), true
	case KindMessagePersonalization:
		return NewMessageEvaluator(d.Personalizer, f.logger, f.opts...), true
	case KindPromptVariations:
		return NewVariationEvaluator(d.Factory, f.logger, f.opts...), true
	case KindFailureCases:
		return NewFailureEvaluator(d.Qualifier, d.Personalizer, f.logger, f.opts...), true
	case KindConsistency:
		return NewConsistencyEvaluator(d.Qualifier, d.Personalizer, d.Policy, f.logger, f.opts...), true
	case KindPerformance:
		return NewBenchmarkEvaluator(d.Qualifier, d.Personalizer, d.Policy, f.logger, f.opts...), true
	}
	return nil, false
}

// RunReport is what a full or single-suite run produced.
type RunReport struct {
	Suites      map[string]*Suite `json:"-"`
	Summary     RunSummary        `json:"summary"`
	ReportFiles []string          `json:"report_files"`
}

// OverallSuccessRate is the mean success rate over the suites that ran.
func (r *RunReport) OverallSuccessRate() float64 {
	rates := make([]float64, 0, len(r.Summary.SuiteSummaries))
	for _, s := range r.Summary.SuiteSummaries {
		rates = append(rates, s.SuccessRate)
	}
	return Mean(rates)
}

func (r *RunReport) TotalTests() int {
	n := 0
	for _, s := range r.Summary.SuiteSummaries {
		n += s.TotalTests
	}
	return n
}

// RunFullEvaluation runs the lead and message suites.
func (f *Framework) RunFullEvaluation(ctx context.Context) (*RunReport, error) {
	return f.Run(ctx, KindAll)
}

// Run executes kind ("all" or a single core suite kind), saves every suite
// report and the run summary, and publishes the summary to the index. A
// suite that fails to run is logged and left out of the summary.
func (f *Framework) Run(ctx context.Context, kind string) (*RunReport, error) {
	var kinds []string
	switch kind {
	case KindAll, "":
		kinds = []string{KindLeadQualification, KindMessagePersonalization}
	case KindLeadQualification, KindMessagePersonalization:
		kinds = []string{kind}
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown evaluation suite %q", kind))
	}

	log := f.logger.WithFields(map[string]interface{}{"suite": kind})
	log.Info("Starting evaluation run", nil)

	report := &RunReport{Suites: make(map[string]*Suite, len(kinds))}
	for _, k := range kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := f.runner(k)
		suite, err := r.RunSuite(ctx)
		if err != nil {
			log.Error("Evaluation suite failed", map[string]interface{}{"kind": k, "error": err.Error()})
			continue
		}
		report.Suites[k] = suite
		path, err := f.deps.Writer.SaveSuite(suite, "")
		if err != nil {
			log.Error("Failed to save suite report", map[string]interface{}{"kind": k, "error": err.Error()})
			continue
		}
		report.ReportFiles = append(report.ReportFiles, path)
	}

	report.Summary = NewRunSummary(f.newID(), f.options.now(), report.Suites, f.deps.Policy.SuitePassRate)
	path, err := f.deps.Writer.SaveSummary(report.Summary)
	if err != nil {
		return nil, err
	}
	report.ReportFiles = append(report.ReportFiles, path)

	if f.deps.Index != nil {
		if err := f.deps.Index.Publish(ctx, report.Summary); err != nil {
			log.Warn("Failed to publish evaluation summary", map[string]interface{}{"error": err.Error()})
		}
	}

	log.Info("Evaluation run completed", map[string]interface{}{
		"runId":              report.Summary.RunID,
		"totalSuites":        report.Summary.OverallStats.TotalSuites,
		"successfulSuites":   report.Summary.OverallStats.SuccessfulSuites,
		"overallSuccessRate": report.OverallSuccessRate(),
	})
	return report, nil
}

// SuiteOutcome is one entry of a comprehensive run. Error is set instead of
// the statistics when the suite could not run.
type SuiteOutcome struct {
	SuccessRate     *float64 `json:"success_rate,omitempty"`
	AvgResponseTime *float64 `json:"avg_response_time,omitempty"`
	TotalTests      *int     `json:"total_tests,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// ComprehensiveReport aggregates the extended suites.
type ComprehensiveReport struct {
	Suite    *Suite                  `json:"-"`
	Outcomes map[string]SuiteOutcome `json:"outcomes"`
	Files    []string                `json:"report_files"`
}

// RunComprehensive runs the prompt variation, failure case, consistency and
// performance suites in order and merges their results into one suite.
func (f *Framework) RunComprehensive(ctx context.Context) (*ComprehensiveReport, error) {
	f.logger.Info("Starting comprehensive evaluation", nil)
	out := &ComprehensiveReport{Outcomes: make(map[string]SuiteOutcome, len(comprehensiveFiles))}
	var all []Result

	for _, kind := range []string{KindPromptVariations, KindFailureCases, KindConsistency, KindPerformance} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, _ := f.runner(kind)
		suite, err := r.RunSuite(ctx)
		if err != nil {
			f.logger.Error("Comprehensive suite failed", map[string]interface{}{"kind": kind, "error": err.Error()})
			out.Outcomes[kind] = SuiteOutcome{Error: err.Error()}
			continue
		}
		all = append(all, suite.Results...)
		rate, avg, total := suite.SuccessRate(), suite.AverageResponseTime().Seconds(), len(suite.Results)
		out.Outcomes[kind] = SuiteOutcome{SuccessRate: &rate, AvgResponseTime: &avg, TotalTests: &total}

		path, err := f.deps.Writer.SaveSuite(suite, comprehensiveFiles[kind])
		if err != nil {
			f.logger.Error("Failed to save suite report", map[string]interface{}{"kind": kind, "error": err.Error()})
			continue
		}
		out.Files = append(out.Files, path)
	}

	out.Suite = NewSuite(ComprehensiveSuiteName, all, f.options.now())
	path, err := f.deps.Writer.SaveSuite(out.Suite, ComprehensiveFilename)
	if err != nil {
		return nil, err
	}
	out.Files = append(out.Files, path)

	f.logger.Info("Comprehensive evaluation completed", map[string]interface{}{
		"successRate":     out.Suite.SuccessRate(),
		"avgResponseTime": out.Suite.AverageResponseTime().Seconds(),
		"totalTests":      len(out.Suite.Results),
	})
	return out, nil
}
