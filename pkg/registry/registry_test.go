package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsWorkerActivities(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, taskType := range []string{"qualify-lead", "personalize-message", "run-evaluation"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.NotEmpty(t, a.InputSchema, taskType)
		assert.Contains(t, a.ErrorCodes, "INVALID_INPUT")
	}

	_, ok := reg.Find("no-such-task")
	assert.False(t, ok)
	assert.Panics(t, func() { reg.MustFind("no-such-task") })
}

func TestValidateInput(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name     string
		taskType string
		vars     string
		valid    bool
	}{
		{"qualify ad-hoc", "qualify-lead", `{"request":{"name":"Jane","email":"jane@example.com"}}`, true},
		{"qualify stored", "qualify-lead", `{"leadId":7}`, true},
		{"qualify neither", "qualify-lead", `{"context":{}}`, false},
		{"qualify missing email", "qualify-lead", `{"request":{"name":"Jane"}}`, false},
		{"qualify bad lead id", "qualify-lead", `{"leadId":"seven"}`, false},
		{"personalize ad-hoc", "personalize-message", `{"request":{"lead_name":"Jane","lead_email":"j@x.io","campaign_type":"cold_outreach"}}`, true},
		{"personalize stored", "personalize-message", `{"leadId":3,"campaignType":"follow_up"}`, true},
		{"evaluation default", "run-evaluation", `{}`, true},
		{"evaluation unknown suite", "run-evaluation", `{"suite":"performance"}`, false},
		{"not json", "run-evaluation", `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.MustFind(tt.taskType).ValidateInput([]byte(tt.vars))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var ie *InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.taskType, ie.TaskType)
			assert.NotEmpty(t, ie.Violations)
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"taskType":"x"}]}`), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)

	a := reg.MustFind("x")
	assert.NoError(t, a.ValidateInput([]byte(`anything`)), "no schema accepts anything")

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
