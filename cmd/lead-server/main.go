// cmd/lead-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lead-orchestrator/internal/api"
	"lead-orchestrator/internal/app"
	"lead-orchestrator/internal/common/camunda"
	"lead-orchestrator/internal/common/config"
	"lead-orchestrator/internal/common/logger"
	runevaluation "lead-orchestrator/internal/workers/evaluation/run-evaluation"
	personalizemessage "lead-orchestrator/internal/workers/leads/personalize-message"
	qualifylead "lead-orchestrator/internal/workers/leads/qualify-lead"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lead server",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}
	defer a.Close()

	// --- Job workers ---
	var workers []*camunda.Worker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.NewClient(ctx, camunda.FromConfig(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		workers = startWorkers(zeebe, cfg, a, log)
	}

	// --- HTTP API ---
	deps := api.Dependencies{
		Qualifier:    a.AI.Qualification,
		Personalizer: a.AI.Personalization,
		Evaluator:    a.Evaluation,
		ServiceName:  cfg.App.Name,
	}
	if a.Leads != nil {
		deps.Leads = a.Leads
	}
	if a.EvalIndex != nil {
		deps.Latest = a.EvalIndex
	}
	server := api.NewServer(deps, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received")
	case err := <-errCh:
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Lead server stopped")
}

func startWorkers(zeebe *camunda.Client, cfg *config.Config, a *app.App, log logger.Logger) []*camunda.Worker {
	var started []*camunda.Worker
	start := func(taskType string, newHandler func(wcfg config.WorkerConfig) camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			log.Info("Worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		started = append(started, camunda.StartWorker(zeebe.Raw(), taskType, wcfg, newHandler(wcfg), log))
	}

	// Stored-lead jobs need the lead service; leave the interfaces nil
	// without PostgreSQL so the handlers report CONFIGURATION_FAILURE.
	var (
		storedQualifier    qualifylead.StoredQualifier
		storedPersonalizer personalizemessage.StoredPersonalizer
	)
	if a.Leads != nil {
		storedQualifier = a.Leads
		storedPersonalizer = a.Leads
	}

	start(qualifylead.TaskType, func(wcfg config.WorkerConfig) camunda.JobHandler {
		return qualifylead.NewHandler(qualifylead.LoadConfig(wcfg), a.AI.Qualification, storedQualifier, log)
	})
	start(personalizemessage.TaskType, func(wcfg config.WorkerConfig) camunda.JobHandler {
		return personalizemessage.NewHandler(personalizemessage.LoadConfig(wcfg), a.AI.Personalization, storedPersonalizer, log)
	})
	start(runevaluation.TaskType, func(wcfg config.WorkerConfig) camunda.JobHandler {
		return runevaluation.NewHandler(runevaluation.LoadConfig(wcfg), a.Evaluation, log)
	})

	log.Info("Workers registered", map[string]interface{}{"count": len(started)})
	return started
}
