package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	assert.NoError(t, reg.Validate())
	assert.Equal(t, 120*time.Second, reg.MustFind("qualify-lead").TimeoutDuration())
}

func TestValidate_Rejections(t *testing.T) {
	valid := func() Activity {
		return Activity{ID: "a", DisplayName: "A", Category: "leads", TaskType: "task-a", Timeout: "10s"}
	}

	tests := []struct {
		name   string
		mutate func(r *ActivityRegistry)
		want   string
	}{
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"missing id", func(r *ActivityRegistry) { r.Activities[0].ID = "" }, "missing required field: id"},
		{"duplicate id", func(r *ActivityRegistry) {
			b := valid()
			b.TaskType = "task-b"
			r.Activities = append(r.Activities, b)
		}, "duplicate activity id"},
		{"duplicate task type", func(r *ActivityRegistry) {
			b := valid()
			b.ID = "b"
			r.Activities = append(r.Activities, b)
		}, "duplicate task type"},
		{"missing category", func(r *ActivityRegistry) { r.Activities[0].Category = "" }, "category"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" }, "invalid timeout"},
		{"negative retries", func(r *ActivityRegistry) { r.Activities[0].Retries = -1 }, "retries"},
		{"broken schema", func(r *ActivityRegistry) {
			r.Activities[0].InputSchema = map[string]interface{}{"type": 12}
		}, "inputSchema does not compile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			require.NoError(t, reg.Validate())
			tt.mutate(reg)
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "activities.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, len(reg.Activities), len(loaded.Activities))
	assert.NoError(t, loaded.Validate())
}
