package runevaluation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/evaluation"
)

type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Run(ctx context.Context, kind string) (*evaluation.RunReport, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*evaluation.RunReport), args.Error(1)
}

func sampleReport() *evaluation.RunReport {
	return &evaluation.RunReport{
		Summary: evaluation.RunSummary{
			RunID: "run-1",
			SuiteSummaries: map[string]evaluation.Summary{
				evaluation.KindLeadQualification:      {SuiteName: "Lead Qualification", TotalTests: 4, SuccessfulTests: 4, SuccessRate: 1.0},
				evaluation.KindMessagePersonalization: {SuiteName: "Message Personalization", TotalTests: 3, SuccessfulTests: 2, SuccessRate: 0.5},
			},
		},
		ReportFiles: []string{"evaluation_results/a.json", "evaluation_results/summary.json"},
	}
}

func TestExecute_DefaultsToAll(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Run", mock.Anything, evaluation.KindAll).Return(sampleReport(), nil)

	h := NewHandler(&Config{Timeout: time.Second}, ev, logger.NewTestLogger(t))
	out, err := h.execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)
	assert.Len(t, out.Summaries, 2)
	assert.Equal(t, 7, out.TotalTests)
	assert.InDelta(t, 0.75, out.OverallSuccessRate, 1e-9)
	assert.Len(t, out.ReportFiles, 2)
	ev.AssertExpectations(t)
}

func TestExecute_SingleSuite(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Run", mock.Anything, evaluation.KindLeadQualification).Return(sampleReport(), nil)

	h := NewHandler(&Config{Timeout: time.Second}, ev, logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), &Input{Suite: evaluation.KindLeadQualification})

	require.NoError(t, err)
	ev.AssertExpectations(t)
}

func TestExecute_PropagatesReportFailure(t *testing.T) {
	ev := new(MockEvaluator)
	ev.On("Run", mock.Anything, evaluation.KindAll).
		Return(nil, apperrors.NewReportWriteError("evaluation_results/summary.json", assert.AnError))

	h := NewHandler(&Config{Timeout: time.Second}, ev, logger.NewTestLogger(t))
	_, err := h.execute(context.Background(), &Input{})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
