package personalizemessage

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
	TaskType = "personalize-message"
)

type Personalizer interface {
	PersonalizeMessage(ctx context.Context, req *models.PersonalizationRequest, pctx *models.PersonalizationContext) (*models.PersonalizationResult, error)
}

type StoredPersonalizer interface {
	PersonalizeForLead(ctx context.Context, id int64, opts leads.PersonalizeOptions) (*leads.PersonalizationOutcome, error)
}

type Handler struct {
	config       *Config
	personalizer Personalizer
	stored       StoredPersonalizer
	errors       *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, personalizer Personalizer, stored StoredPersonalizer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		personalizer: personalizer,
		stored:       stored,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
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
			return nil, apperrors.NewConfigurationError("stored lead personalization requires the lead service")
		}
		outcome, err := h.stored.PersonalizeForLead(ctx, *input.LeadID, leads.PersonalizeOptions{
			CampaignType: input.CampaignType,
			MessageTone:  input.MessageTone,
			Send:         input.Send,
		})
		if err != nil {
			return nil, h.timeoutAware(ctx, err)
		}
		return &Output{
			Personalization: outcome.Personalization,
			LeadID:          &outcome.LeadID,
			CampaignType:    outcome.CampaignType,
			SentMessageID:   outcome.SentMessageID,
		}, nil
	}

	if input.Request == nil {
		return nil, apperrors.NewInvalidInputError("either request or leadId is required")
	}
	if input.Send {
		return nil, apperrors.NewInvalidInputError("send requires a stored lead")
	}
	result, err := h.personalizer.PersonalizeMessage(ctx, input.Request, input.Context)
	if err != nil {
		return nil, h.timeoutAware(ctx, err)
	}

	h.logger.Info("Message personalized", map[string]interface{}{
		"variants":     len(result.Variants),
		"campaignType": input.Request.CampaignType,
	})
	return &Output{Personalization: result, CampaignType: input.Request.CampaignType}, nil
}

func (h *Handler) timeoutAware(ctx context.Context, err error) error {
	if apperrors.CodeOf(err) == apperrors.ErrCodeInternal && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewLLMTimeoutError(h.config.Timeout, err)
	}
	return err
}
