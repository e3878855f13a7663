package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

// qualifyByCase answers every fixed lead case inside its expected band.
func qualifyByCase() *fakeQualifier {
	byName := make(map[string]LeadExpectation)
	for _, c := range LeadCases() {
		byName[c.Request.Name] = c.Expected
	}
	return &fakeQualifier{fn: func(req *models.QualificationRequest, _ int) (*models.QualificationResult, error) {
		exp, ok := byName[req.Name]
		if !ok {
			return qualification(85, models.PriorityHigh), nil
		}
		return qualification((exp.ScoreRange[0]+exp.ScoreRange[1])/2, exp.Priorities[0]), nil
	}}
}

func newTestFramework(t *testing.T, idx *RedisIndex) (*Framework, string) {
	dir := t.TempDir()
	q := qualifyByCase()
	deps := Dependencies{
		Qualifier:    q,
		Personalizer: personalizeEcho(2, 80),
		Factory:      func([]models.ScoringCriterion) LeadQualifier { return q },
		Policy:       DefaultPolicy(),
		Writer:       NewReportWriter(dir),
		Index:        idx,
	}
	f := NewFramework(deps, logger.NewTestLogger(t), instant(), WithClock(fixedClock()))
	f.newID = func() string { return "run-test" }
	return f, dir
}

func listFiles(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestFramework_RunFullEvaluation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	idx := NewRedisIndex(rdb)
	f, dir := newTestFramework(t, idx)

	report, err := f.RunFullEvaluation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "run-test", report.Summary.RunID)
	assert.Equal(t, 2, report.Summary.OverallStats.TotalSuites)
	assert.Equal(t, 2, report.Summary.OverallStats.SuccessfulSuites)
	assert.Equal(t, 9, report.TotalTests())
	assert.Equal(t, 1.0, report.OverallSuccessRate())
	assert.Len(t, report.ReportFiles, 3)
	assert.Equal(t, []string{
		"evaluation_summary_20240305_140709.json",
		"lead_qualification_evaluation_20240305_140709.json",
		"message_personalization_evaluation_20240305_140709.json",
	}, listFiles(t, dir))

	latest, err := idx.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-test", latest.RunID)
}

func TestFramework_Run_SingleSuiteWithoutIndex(t *testing.T) {
	f, dir := newTestFramework(t, nil)

	report, err := f.Run(context.Background(), KindMessagePersonalization)

	require.NoError(t, err)
	require.Contains(t, report.Suites, KindMessagePersonalization)
	assert.NotContains(t, report.Suites, KindLeadQualification)
	assert.Len(t, listFiles(t, dir), 2)
}

func TestFramework_Run_UnknownKind(t *testing.T) {
	f, _ := newTestFramework(t, nil)

	_, err := f.Run(context.Background(), "smoke")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestFramework_Run_Cancelled(t *testing.T) {
	f, _ := newTestFramework(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.RunFullEvaluation(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFramework_RunComprehensive(t *testing.T) {
	f, dir := newTestFramework(t, nil)

	out, err := f.RunComprehensive(context.Background())

	require.NoError(t, err)
	require.Len(t, out.Outcomes, 4)
	for _, kind := range []string{KindPromptVariations, KindFailureCases, KindConsistency, KindPerformance} {
		o, ok := out.Outcomes[kind]
		require.True(t, ok, kind)
		assert.Empty(t, o.Error)
		require.NotNil(t, o.TotalTests)
		assert.Positive(t, *o.TotalTests)
	}
	assert.Equal(t, 3, *out.Outcomes[KindPromptVariations].TotalTests)
	assert.Equal(t, ComprehensiveSuiteName, out.Suite.Name)
	assert.Len(t, out.Suite.Results, 3+10+2+4)

	assert.Equal(t, []string{
		"comprehensive_evaluation_results.json",
		"consistency_test_results.json",
		"failure_test_results.json",
		"performance_benchmark_results.json",
		"prompt_variation_results.json",
	}, listFiles(t, dir))

	rep, err := LoadSuiteReport(filepath.Join(dir, ComprehensiveFilename))
	require.NoError(t, err)
	assert.Equal(t, 19, rep.Summary.TotalTests)
}
