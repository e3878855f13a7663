package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-orchestrator/pkg/registry"
)

func catalogCopy(t *testing.T) string {
	reg, err := registry.Default()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "activities.json")
	require.NoError(t, reg.Save(path))
	return path
}

func TestUpdateActivity(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{{ID: "lead-qualify", Retries: 3}}}

	require.NoError(t, updateActivity(reg, "lead-qualify", "retries", "5"))
	assert.Equal(t, 5, reg.Activities[0].Retries)

	require.NoError(t, updateActivity(reg, "lead-qualify", "timeout", "90s"))
	assert.Equal(t, "90s", reg.Activities[0].Timeout)

	assert.Error(t, updateActivity(reg, "lead-qualify", "retries", "many"))
	assert.Error(t, updateActivity(reg, "lead-qualify", "colour", "red"))
	assert.Error(t, updateActivity(reg, "missing", "version", "2.0.0"))
}

func TestValidateCommand(t *testing.T) {
	registryPath = catalogCopy(t)

	var out bytes.Buffer
	cmd := validateCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), "Found 3 activities")
}

func TestCheckInputCommand(t *testing.T) {
	registryPath = catalogCopy(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"leadId": 5}`), 0o644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"request": {"name": "No Email"}}`), 0o644))

	var out bytes.Buffer
	cmd := checkInputCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, []string{"qualify-lead", good}))
	assert.Contains(t, out.String(), "valid for qualify-lead")

	err := cmd.RunE(cmd, []string{"qualify-lead", bad})
	var ie *registry.InputError
	require.ErrorAs(t, err, &ie)

	assert.Error(t, cmd.RunE(cmd, []string{"no-such-task", good}))
}

func TestRenderWorker(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	files, err := renderWorker(reg.MustFind("qualify-lead"))
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Contains(t, string(files["config.go"]), "package qualifylead")
	assert.Contains(t, string(files["config.go"]), "const defaultTimeout = 2 * time.Minute")

	models := string(files["models.go"])
	assert.Contains(t, models, "LeadID  int64")
	assert.Contains(t, models, "`json:\"leadId,omitempty\"`")
	assert.Contains(t, models, "`json:\"qualification\"`")

	assert.Contains(t, string(files["handler.go"]), `TaskType = "qualify-lead"`)
	assert.Contains(t, string(files["handler.go"]), "camunda.DecodeVariables(job, TaskType, &input)")
}

func TestScaffoldCommand_RefusesOverwrite(t *testing.T) {
	registryPath = catalogCopy(t)
	out := t.TempDir()

	cmd := scaffoldCmd()
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, cmd.Flags().Set("out", out))
	require.NoError(t, cmd.RunE(cmd, []string{"run-evaluation"}))

	_, err := os.Stat(filepath.Join(out, "evaluation", "run-evaluation", "handler_test.go"))
	require.NoError(t, err)

	assert.Error(t, cmd.RunE(cmd, []string{"run-evaluation"}))
}

func TestNamingHelpers(t *testing.T) {
	assert.Equal(t, "LeadID", exportedName("leadId"))
	assert.Equal(t, "LeadID", exportedName("lead_id"))
	assert.Equal(t, "CampaignType", exportedName("campaignType"))
	assert.Equal(t, "personalizemessage", packageName("personalize-message"))
	assert.Equal(t, "90 * time.Second", durationLiteral(90*time.Second))
	assert.Equal(t, "30 * time.Minute", durationLiteral(30*time.Minute))
}
