package runevaluation

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"lead-orchestrator/internal/common/camunda"
	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/evaluation"
)

const (
	TaskType = "run-evaluation"
)

type Evaluator interface {
	Run(ctx context.Context, kind string) (*evaluation.RunReport, error)
}

type Handler struct {
	config    *Config
	evaluator Evaluator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, evaluator Evaluator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		evaluator: evaluator,
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
	suite := input.Suite
	if suite == "" {
		suite = evaluation.KindAll
	}

	report, err := h.evaluator.Run(ctx, suite)
	if err != nil {
		return nil, err
	}

	return &Output{
		RunID:              report.Summary.RunID,
		Summaries:          report.Summary.SuiteSummaries,
		OverallSuccessRate: report.OverallSuccessRate(),
		TotalTests:         report.TotalTests(),
		ReportFiles:        report.ReportFiles,
	}, nil
}
