package qualifylead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lead-orchestrator/internal/common/config"
	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/leads"
	"lead-orchestrator/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockQualifier struct {
	mock.Mock
}

func (m *MockQualifier) QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error) {
	args := m.Called(ctx, req, qctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QualificationResult), args.Error(1)
}

type MockStored struct {
	mock.Mock
}

func (m *MockStored) QualifyExisting(ctx context.Context, id int64) (*leads.QualificationOutcome, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leads.QualificationOutcome), args.Error(1)
}

// ==========================
// Helpers
// ==========================

func newTestHandler(t *testing.T, q Qualifier, stored StoredQualifier) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, q, stored, logger.NewTestLogger(t))
}

func sampleResult() *models.QualificationResult {
	return &models.QualificationResult{
		Score:              82,
		Reasoning:          "Senior decision maker at a mid-size SaaS company",
		KeyFactors:         []string{"CTO title"},
		RecommendedActions: []string{"Book a demo"},
		PriorityLevel:      models.PriorityHigh,
	}
}

// ==========================
// Tests
// ==========================

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 90*time.Second, LoadConfig(config.WorkerConfig{Timeout: 90000}).Timeout)
	assert.Equal(t, defaultTimeout, LoadConfig(config.WorkerConfig{}).Timeout)
}

func TestExecute_AdHocRequest(t *testing.T) {
	q := new(MockQualifier)
	req := &models.QualificationRequest{Name: "Jane Doe", Email: "jane@acme.io", JobTitle: "CTO"}
	qctx := &models.QualificationContext{LeadSourceContext: "Webinar signup"}
	q.On("QualifyLead", mock.Anything, req, qctx).Return(sampleResult(), nil)

	out, err := newTestHandler(t, q, nil).execute(context.Background(), &Input{Request: req, Context: qctx})

	require.NoError(t, err)
	assert.Equal(t, 82, out.Qualification.Score)
	assert.Nil(t, out.LeadID)
	assert.Nil(t, out.NewScore)
	q.AssertExpectations(t)
}

func TestExecute_StoredLead(t *testing.T) {
	q := new(MockQualifier)
	stored := new(MockStored)
	stored.On("QualifyExisting", mock.Anything, int64(7)).Return(&leads.QualificationOutcome{
		LeadID:        7,
		PreviousScore: 40,
		NewScore:      82,
		Qualification: sampleResult(),
	}, nil)

	id := int64(7)
	out, err := newTestHandler(t, q, stored).execute(context.Background(), &Input{
		Request: &models.QualificationRequest{Name: "ignored", Email: "ignored@x.io"},
		LeadID:  &id,
	})

	require.NoError(t, err)
	require.NotNil(t, out.LeadID)
	assert.Equal(t, int64(7), *out.LeadID)
	assert.Equal(t, 40, *out.PreviousScore)
	assert.Equal(t, 82, *out.NewScore)
	q.AssertNotCalled(t, "QualifyLead", mock.Anything, mock.Anything, mock.Anything)
	stored.AssertExpectations(t)
}

func TestExecute_StoredLeadWithoutService(t *testing.T) {
	id := int64(7)
	_, err := newTestHandler(t, new(MockQualifier), nil).execute(context.Background(), &Input{LeadID: &id})
	assert.Equal(t, apperrors.ErrCodeConfiguration, apperrors.CodeOf(err))
}

func TestExecute_StoredLeadNotFound(t *testing.T) {
	stored := new(MockStored)
	stored.On("QualifyExisting", mock.Anything, int64(99)).Return(nil, apperrors.NewResourceNotFoundError("Lead", int64(99)))

	id := int64(99)
	_, err := newTestHandler(t, new(MockQualifier), stored).execute(context.Background(), &Input{LeadID: &id})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExecute_MissingRequest(t *testing.T) {
	_, err := newTestHandler(t, new(MockQualifier), nil).execute(context.Background(), &Input{})
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	_, err = newTestHandler(t, new(MockQualifier), nil).execute(context.Background(), nil)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestExecute_ClassifiedErrorPassesThrough(t *testing.T) {
	q := new(MockQualifier)
	q.On("QualifyLead", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewRateLimitExceededError(4, errors.New("429")))

	_, err := newTestHandler(t, q, nil).execute(context.Background(), &Input{
		Request: &models.QualificationRequest{Name: "A", Email: "a@b.c"},
	})
	assert.True(t, apperrors.IsRateLimit(err))
}

func TestExecute_DeadlineBecomesTimeout(t *testing.T) {
	q := new(MockQualifier)
	q.On("QualifyLead", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("context deadline exceeded"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := newTestHandler(t, q, nil).execute(ctx, &Input{
		Request: &models.QualificationRequest{Name: "A", Email: "a@b.c"},
	})
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, apperrors.CodeOf(err))
}
