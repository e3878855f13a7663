// Package app assembles the process-wide dependencies shared by the lead
// server and the evaluate CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"lead-orchestrator/internal/common/aws"
	"lead-orchestrator/internal/common/config"
	"lead-orchestrator/internal/common/database"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/observability"
	"lead-orchestrator/internal/evaluation"
	"lead-orchestrator/internal/grok"
	"lead-orchestrator/internal/leads"
	"lead-orchestrator/internal/models"
	"lead-orchestrator/internal/prompts"
	"lead-orchestrator/internal/search"
	"lead-orchestrator/internal/services/personalization"
	"lead-orchestrator/internal/services/qualification"
	"lead-orchestrator/internal/storage"
)

// AI holds the two model-backed services.
type AI struct {
	Qualification   *qualification.Service
	Personalization *personalization.Service
}

// NewAI builds the Grok client and the services on top of it. A missing API
// key fails here with CONFIGURATION_FAILURE.
func NewAI(cfg config.GrokConfig, rec grok.InvocationRecorder, log logger.Logger) (*AI, error) {
	var opts []grok.Option
	if rec != nil {
		opts = append(opts, grok.WithRecorder(rec))
	}
	client, err := grok.NewClient(cfg, log, opts...)
	if err != nil {
		return nil, err
	}
	pm, err := prompts.NewManager()
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}
	return &AI{
		Qualification:   qualification.NewService(client, pm, log),
		Personalization: personalization.NewService(client, pm, log),
	}, nil
}

// Factory scopes the qualification service to a criteria set for the prompt
// variation suite.
func (a *AI) Factory() evaluation.QualifierFactory {
	return func(criteria []models.ScoringCriterion) evaluation.LeadQualifier {
		return a.Qualification.WithScoringCriteria(criteria)
	}
}

// NewFramework wires the evaluation framework. index may be nil.
func NewFramework(ai *AI, cfg config.EvaluationConfig, index *evaluation.RedisIndex, rec evaluation.ProbeRecorder, log logger.Logger) *evaluation.Framework {
	var opts []evaluation.Option
	if rec != nil {
		opts = append(opts, evaluation.WithRecorder(rec))
	}
	return evaluation.NewFramework(evaluation.Dependencies{
		Qualifier:    ai.Qualification,
		Personalizer: ai.Personalization,
		Factory:      ai.Factory(),
		Policy:       evaluation.PolicyFromConfig(cfg),
		Writer:       evaluation.NewReportWriter(cfg.OutputDir),
		Index:        index,
	}, log, opts...)
}

// App is the full dependency graph of the lead server. Leads is nil when
// PostgreSQL is disabled and EvalIndex is nil when Redis is disabled.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	AI            *AI
	Evaluation    *evaluation.Framework
	Leads         *leads.Service
	EvalIndex     *evaluation.RedisIndex

	closers []func() error
	logger  logger.Logger
}

// New connects every enabled backing service and builds the domain services.
// Connection attempts are retried; a backing service that stays unreachable
// fails the whole build.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, logger: log}

	a.Observability = observability.New(observability.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		TracingEnabled: cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	}, log)

	ai, err := NewAI(cfg.Grok, a.Observability, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.AI = ai

	if cfg.Database.Redis.Enabled {
		rdb, err := connectRedis(ctx, cfg.Database.Redis, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.EvalIndex = evaluation.NewRedisIndex(rdb.Client)
	}
	a.Evaluation = NewFramework(ai, cfg.Evaluation, a.EvalIndex, a.Observability, log)

	if cfg.Database.Postgres.Enabled {
		svc, err := a.buildLeads(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Leads = svc
	} else {
		log.Warn("PostgreSQL disabled, lead routes and stored-lead jobs are unavailable", nil)
	}

	return a, nil
}

func (a *App) buildLeads(ctx context.Context) (*leads.Service, error) {
	cfg := a.Config

	pg, err := connectPostgres(ctx, cfg.Database.Postgres, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)

	store := storage.New(pg.DB, a.logger)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	deps := leads.Dependencies{
		Repo:         store,
		Qualifier:    a.AI.Qualification,
		Scope:        leads.ScopeQualification(a.AI.Qualification),
		Personalizer: a.AI.Personalization,
	}

	if es := cfg.Database.Elasticsearch; es.Enabled {
		client, err := connectElasticsearch(ctx, es, a.logger)
		if err != nil {
			return nil, err
		}
		deps.Search = search.New(client.Client, es.LeadsIndex, es.InteractionsIndex, a.logger)
	}

	region := cfg.Integrations.AWS.Region
	if ses := cfg.Integrations.AWS.SES; ses.Enabled {
		mailer, err := aws.NewSESMailer(ctx, region, ses.FromEmail, a.logger)
		if err != nil {
			return nil, err
		}
		deps.Mailer = mailer
	}
	if sns := cfg.Integrations.AWS.SNS; sns.Enabled {
		notifier, err := aws.NewSNSNotifier(ctx, region, sns.TopicARN, a.logger)
		if err != nil {
			return nil, err
		}
		deps.Notifier = notifier
	}

	return leads.NewService(deps, a.logger), nil
}

// Close releases connections in reverse order and flushes telemetry.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
	if a.Observability != nil {
		a.Observability.Shutdown()
	}
}

// ==========================
// Backing services
// ==========================

const (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// retryWithBackoff runs operation until it succeeds, attempts are used up or
// ctx is done, doubling the delay after every failure.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.Logger) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := retryWithBackoff(ctx, func() error { return pg.Ping(ctx) }, connectAttempts, connectDelay, log, "PostgreSQL connection"); err != nil {
		_ = pg.Close()
		return nil, err
	}
	log.Info("PostgreSQL connected", map[string]interface{}{"host": cfg.Host, "database": cfg.Database})
	return pg, nil
}

func connectElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Logger) (*database.ElasticsearchClient, error) {
	es, err := database.NewElasticsearch(cfg)
	if err != nil {
		return nil, err
	}
	if err := retryWithBackoff(ctx, func() error { return es.Ping(ctx) }, connectAttempts, connectDelay, log, "Elasticsearch connection"); err != nil {
		return nil, err
	}
	log.Info("Elasticsearch connected", map[string]interface{}{"addresses": cfg.Addresses})
	return es, nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*database.RedisClient, error) {
	rdb := database.NewRedis(cfg)
	if err := retryWithBackoff(ctx, func() error { return rdb.Ping(ctx) }, connectAttempts, connectDelay, log, "Redis connection"); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	log.Info("Redis connected", map[string]interface{}{"address": cfg.Address})
	return rdb, nil
}

// ConnectRedisIndex connects to Redis for callers that only need the
// evaluation index. It returns a nil index when Redis is disabled.
func ConnectRedisIndex(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*evaluation.RedisIndex, func() error, error) {
	if !cfg.Enabled {
		return nil, func() error { return nil }, nil
	}
	rdb, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return evaluation.NewRedisIndex(rdb.Client), rdb.Close, nil
}
