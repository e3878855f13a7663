package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// Defaults
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("XAI_API_KEY", "")
	path := writeConfig(t, "app:\n  name: demo\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "https://api.x.ai/v1", cfg.Grok.BaseURL)
	assert.Equal(t, "grok-4", cfg.Grok.Model)
	assert.Equal(t, 3600000, cfg.Grok.Timeout)
	assert.Equal(t, 2, cfg.Grok.MaxRetries)
	assert.Equal(t, 1000, cfg.Grok.BackoffBase)
	assert.Equal(t, "evaluation_results", cfg.Evaluation.OutputDir)
	assert.Equal(t, 0.8, cfg.Evaluation.MinSuccessRate)
	assert.Equal(t, 10000, cfg.Evaluation.MaxAvgLatency)
	assert.Equal(t, 0.7, cfg.Evaluation.SuitePassRate)
	assert.Equal(t, 1000, cfg.Evaluation.LeadConsistencyDelay)
	assert.Equal(t, 2000, cfg.Evaluation.MessageConsistencyDelay)
	assert.Equal(t, 500, cfg.Evaluation.BenchmarkDelay)
	assert.Equal(t, 2000, cfg.Evaluation.MessageBenchmarkDelay)
	assert.Equal(t, "leads", cfg.Database.Elasticsearch.LeadsIndex)
	assert.Equal(t, "demo", cfg.Tracing.ServiceName)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	path := writeConfig(t, `
database:
  postgres:
    enabled: true
    host: ${TEST_DB_HOST}
    database: leads
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "sslmode=disable")
}

func TestLoadFromFile_APIKeyFallsBackToEnvironment(t *testing.T) {
	t.Setenv("XAI_API_KEY", "xai-test-key")
	path := writeConfig(t, "grok:\n  model: grok-3\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xai-test-key", cfg.Grok.APIKey)
	assert.Equal(t, "grok-3", cfg.Grok.Model)
}

func TestLoadFromFile_MissingKeyIsNotALoadError(t *testing.T) {
	t.Setenv("XAI_API_KEY", "")
	path := writeConfig(t, "app:\n  name: demo\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Grok.APIKey)
}

// ==========================
// Validation
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "postgres enabled without host",
			body:    "database:\n  postgres:\n    enabled: true\n    database: leads\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "redis enabled without address",
			body:    "database:\n  redis:\n    enabled: true\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "camunda enabled without broker",
			body:    "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "success rate out of range",
			body:    "evaluation:\n  min_success_rate: 1.5\n",
			wantErr: "min_success_rate",
		},
		{
			name:    "port out of range",
			body:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkerConfigFallbacks(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"qualify-lead": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "qualify-lead"))
	assert.True(t, IsWorkerEnabled(cfg, "run-evaluation"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "qualify-lead").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "run-evaluation").MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
