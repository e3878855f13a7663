package qualifylead

import (
	"context"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lead-orchestrator/internal/common/camunda"
	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/leads"
	"lead-orchestrator/internal/models"
)

const (
	TaskType = "qualify-lead"
)

type Qualifier interface {
	QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error)
}

// StoredQualifier scores a lead that already lives in the database.
type StoredQualifier interface {
	QualifyExisting(ctx context.Context, id int64) (*leads.QualificationOutcome, error)
}

type Handler struct {
	config    *Config
	qualifier Qualifier
	stored    StoredQualifier
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler builds the handler. stored may be nil, in which case jobs that
// reference a leadId fail with CONFIGURATION_FAILURE.
func NewHandler(config *Config, qualifier Qualifier, stored StoredQualifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		qualifier: qualifier,
		stored:    stored,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, &input); err != nil {
		camunda.FailJob(context.Background(), client, job, err, h.errors)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		camunda.FailJob(context.Background(), client, job, err, h.errors)
		return
	}

	camunda.CompleteJob(context.Background(), client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}

	if input.LeadID != nil {
		if h.stored == nil {
			return nil, apperrors.NewConfigurationError("stored lead qualification requires the lead service")
		}
		outcome, err := h.stored.QualifyExisting(ctx, *input.LeadID)
		if err != nil {
			return nil, h.timeoutAware(ctx, err)
		}
		return &Output{
			Qualification: outcome.Qualification,
			LeadID:        &outcome.LeadID,
			PreviousScore: &outcome.PreviousScore,
			NewScore:      &outcome.NewScore,
		}, nil
	}

	if input.Request == nil {
		return nil, apperrors.NewInvalidInputError("either request or leadId is required")
	}
	result, err := h.qualifier.QualifyLead(ctx, input.Request, input.Context)
	if err != nil {
		return nil, h.timeoutAware(ctx, err)
	}

	h.logger.Info("Lead qualified", map[string]interface{}{
		"score":    result.Score,
		"priority": string(result.PriorityLevel),
	})
	return &Output{Qualification: result}, nil
}

// timeoutAware reports an uncoded failure caused by the job deadline as
// LLM_TIMEOUT.
func (h *Handler) timeoutAware(ctx context.Context, err error) error {
	if apperrors.CodeOf(err) != apperrors.ErrCodeInternal {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewLLMTimeoutError(h.config.Timeout, err)
	}
	return err
}
