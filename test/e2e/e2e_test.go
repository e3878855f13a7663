//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-orchestrator/internal/api"
	"lead-orchestrator/internal/app"
	"lead-orchestrator/internal/common/config"
	"lead-orchestrator/internal/common/database"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

// These tests need PostgreSQL, Redis and Elasticsearch on localhost plus a
// real GROK_API_KEY. Run with: go test -tags e2e ./test/e2e/...

func loadConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	require.NoError(t, err)
	if cfg.Grok.APIKey == "" {
		t.Skip("GROK_API_KEY not set")
	}

	cfg.Database.Postgres.Enabled = true
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.Enabled = true
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Camunda.Enabled = false
	cfg.Tracing.Enabled = false
	cfg.Evaluation.OutputDir = t.TempDir()
	return cfg
}

func TestServicesReachable(t *testing.T) {
	cfg := loadConfig(t)
	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	assert.NoError(t, pg.Ping(ctx))
	pg.Close()

	rdb := database.NewRedis(cfg.Database.Redis)
	assert.NoError(t, rdb.Ping(ctx))
	rdb.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	assert.NoError(t, es.Ping(ctx))
}

type harness struct {
	t   *testing.T
	srv *httptest.Server
}

func newHarness(t *testing.T) *harness {
	cfg := loadConfig(t)
	log := logger.NewTestLogger(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.Leads, "lead storage should be wired")

	deps := api.Dependencies{
		Leads:        a.Leads,
		Qualifier:    a.AI.Qualification,
		Personalizer: a.AI.Personalization,
		Evaluator:    a.Evaluation,
		ServiceName:  cfg.App.Name,
	}
	if a.EvalIndex != nil {
		deps.Latest = a.EvalIndex
	}
	srv := httptest.NewServer(api.NewServer(deps, log).Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv}
}

func (h *harness) do(method, path string, body interface{}, out interface{}) int {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestLeadLifecycle(t *testing.T) {
	h := newHarness(t)

	company := "E2E Corp"
	var lead models.Lead
	status := h.do(http.MethodPost, "/api/leads", models.LeadCreate{
		Name:       "E2E Lead",
		Email:      fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano()),
		Company:    &company,
		LeadSource: models.LeadSource("website"),
	}, &lead)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, lead.ID)

	content := "Asked for a pricing sheet and a demo next week"
	status = h.do(http.MethodPost, fmt.Sprintf("/api/leads/%d/interactions", lead.ID),
		map[string]interface{}{"interaction_type": "email", "content": content}, nil)
	require.Equal(t, http.StatusCreated, status)

	var stages []models.PipelineStage
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/pipeline/stages", nil, &stages))
	require.NotEmpty(t, stages)

	var moved map[string]interface{}
	status = h.do(http.MethodPost,
		fmt.Sprintf("/api/leads/%d/pipeline/move?stage_id=%d&notes=e2e", lead.ID, stages[0].ID), nil, &moved)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, moved["success"])

	var qualified map[string]interface{}
	status = h.do(http.MethodPost, fmt.Sprintf("/api/leads/%d/qualify", lead.ID), nil, &qualified)
	require.Equal(t, http.StatusOK, status, "qualification response: %v", qualified)

	var fetched models.Lead
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, fmt.Sprintf("/api/leads/%d", lead.ID), nil, &fetched))
	assert.Equal(t, lead.Email, fetched.Email)

	var personalized map[string]interface{}
	status = h.do(http.MethodPost,
		fmt.Sprintf("/api/leads/%d/personalize?campaign_type=follow_up", lead.ID), nil, &personalized)
	assert.Equal(t, http.StatusOK, status, "personalization response: %v", personalized)
}

func TestUnknownLead(t *testing.T) {
	h := newHarness(t)

	var body map[string]interface{}
	status := h.do(http.MethodGet, "/api/leads/999999999", nil, &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}
