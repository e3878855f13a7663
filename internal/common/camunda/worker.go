package camunda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"lead-orchestrator/internal/common/config"
	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/metrics"
	"lead-orchestrator/pkg/registry"
)

// JobHandler processes one activated job and completes, fails or throws it.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type Worker struct {
	taskType string
	worker   worker.JobWorker
	logger   logger.Logger
}

// StartWorker opens a job worker for taskType. Each job is counted in the
// worker metrics around the handler call.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	maxActive := wcfg.MaxJobsActive
	if maxActive <= 0 {
		maxActive = 5
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler.Handle)).
		MaxJobsActive(maxActive).
		Timeout(timeout).
		Open()

	log.Info("Worker started", map[string]interface{}{
		"maxJobsActive": maxActive,
		"timeout":       timeout.String(),
	})
	return &Worker{taskType: taskType, worker: jw, logger: log}
}

func instrument(taskType string, h worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		start := time.Now()
		h(client, job)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("Failed to send complete job command", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
}

// FailJob routes err through the BPMN error handler and counts it.
func FailJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, h *apperrors.ErrorHandler) {
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(apperrors.CodeOf(err))).Inc()
	h.HandleJobError(ctx, client, job, err)
}

// DecodeVariables checks the job variables against the input schema registered
// for taskType and unmarshals them into dst. Schema violations and malformed
// JSON both come back as INVALID_INPUT.
func DecodeVariables(job entities.Job, taskType string, dst interface{}) error {
	reg, err := registry.Default()
	if err != nil {
		return apperrors.NewConfigurationError(fmt.Sprintf("load activity registry: %v", err))
	}
	activity, ok := reg.Find(taskType)
	if !ok {
		return apperrors.NewConfigurationError(fmt.Sprintf("no activity registered for task type %q", taskType))
	}

	raw := []byte(job.Variables)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := activity.ValidateInput(raw); err != nil {
		var ie *registry.InputError
		if errors.As(err, &ie) {
			return apperrors.NewInvalidInputError(ie.Error())
		}
		return apperrors.NewInvalidInputError(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	return nil
}
