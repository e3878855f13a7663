// Package api exposes leads, AI operations and evaluation runs over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/common/metrics"
	"lead-orchestrator/internal/evaluation"
	"lead-orchestrator/internal/leads"
	"lead-orchestrator/internal/models"
)

const requestIDHeader = "X-Request-ID"

type LeadService interface {
	ListLeads(ctx context.Context, limit, offset int) ([]models.Lead, error)
	GetLead(ctx context.Context, id int64) (*models.LeadWithInteractions, error)
	CreateLead(ctx context.Context, in models.LeadCreate) (*models.Lead, error)
	UpdateLead(ctx context.Context, id int64, in models.LeadUpdate) (*models.Lead, error)
	AddInteraction(ctx context.Context, in models.InteractionCreate) (*models.Interaction, error)

	QualifyExisting(ctx context.Context, id int64) (*leads.QualificationOutcome, error)
	Rescore(ctx context.Context, id int64) (*leads.QualificationOutcome, error)
	PersonalizeForLead(ctx context.Context, id int64, opts leads.PersonalizeOptions) (*leads.PersonalizationOutcome, error)
	CoordinateMeeting(ctx context.Context, id int64) (*leads.MeetingProposal, error)

	ActiveCriteria(ctx context.Context) ([]models.ScoringCriteria, error)
	CreateCriterion(ctx context.Context, in models.ScoringCriteriaCreate) (*models.ScoringCriteria, error)
	UpdateCriterion(ctx context.Context, id int64, in models.ScoringCriteriaUpdate) (*models.ScoringCriteria, error)

	Stages(ctx context.Context) ([]models.PipelineStage, error)
	MoveToStage(ctx context.Context, leadID, stageID int64, notes *string) (*models.LeadPipelineHistory, error)
	LeadPipeline(ctx context.Context, id int64) (*models.LeadWithPipeline, error)

	SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error)
	SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error)
}

type Qualifier interface {
	QualifyLead(ctx context.Context, req *models.QualificationRequest, qctx *models.QualificationContext) (*models.QualificationResult, error)
}

type Personalizer interface {
	PersonalizeMessage(ctx context.Context, req *models.PersonalizationRequest, pctx *models.PersonalizationContext) (*models.PersonalizationResult, error)
}

type Evaluator interface {
	Run(ctx context.Context, kind string) (*evaluation.RunReport, error)
	OutputDir() string
}

// LatestIndex serves the most recently published evaluation summaries.
type LatestIndex interface {
	LatestRun(ctx context.Context) (*evaluation.RunSummary, error)
	LatestSuites(ctx context.Context) (map[string]evaluation.Summary, error)
}

// Dependencies wires the router. Any of Leads, Evaluator and Latest may be
// nil, in which case their routes answer with a configuration error.
type Dependencies struct {
	Leads        LeadService
	Qualifier    Qualifier
	Personalizer Personalizer
	Evaluator    Evaluator
	Latest       LatestIndex
	ServiceName  string
}

type Server struct {
	router *gin.Engine
	deps   Dependencies
	logger logger.Logger
}

func NewServer(deps Dependencies, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if deps.ServiceName == "" {
		deps.ServiceName = "lead-orchestrator"
	}

	s := &Server{
		router: gin.New(),
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.router.Use(gin.Recovery(), requestID(), s.accessLog())
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": s.deps.ServiceName})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")

	api.GET("/leads", s.listLeads)
	api.POST("/leads", s.createLead)
	api.POST("/leads/qualify", s.qualifyAdhoc)
	api.GET("/leads/:id", s.getLead)
	api.PUT("/leads/:id", s.updateLead)
	api.POST("/leads/:id/interactions", s.addInteraction)
	api.POST("/leads/:id/qualify", s.qualifyExisting)
	api.POST("/leads/:id/rescore", s.rescore)
	api.POST("/leads/:id/personalize", s.personalizeForLead)
	api.POST("/leads/:id/coordinate-meeting", s.coordinateMeeting)
	api.POST("/leads/:id/pipeline/move", s.moveToStage)
	api.GET("/leads/:id/pipeline", s.leadPipeline)

	api.POST("/messages/personalize", s.personalizeAdhoc)

	api.GET("/scoring-criteria", s.listCriteria)
	api.POST("/scoring-criteria", s.createCriterion)
	api.PUT("/scoring-criteria/:id", s.updateCriterion)

	api.GET("/pipeline/stages", s.listStages)

	api.POST("/search/leads", s.searchLeads)
	api.POST("/search/interactions", s.searchInteractions)

	api.POST("/evaluate/all", s.evaluate(evaluation.KindAll))
	api.POST("/evaluate/lead-qualification", s.evaluate(evaluation.KindLeadQualification))
	api.POST("/evaluate/message-personalization", s.evaluate(evaluation.KindMessagePersonalization))
	api.GET("/evaluate/latest", s.latestEvaluation)
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		fields := map[string]interface{}{
			"requestId":  c.GetString("requestId"),
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("Request failed", fields)
			return
		}
		s.logger.Info("Request served", fields)
	}
}
