package camunda

import (
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
)

func jobWith(taskType, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                100,
		Type:               taskType,
		ProcessInstanceKey: 1000,
		BpmnProcessId:      "lead-intake",
		Retries:            3,
		Variables:          variables,
	}}
}

func TestDecodeVariables(t *testing.T) {
	var in struct {
		LeadID int64 `json:"leadId"`
	}
	err := DecodeVariables(jobWith("qualify-lead", `{"leadId": 42}`), "qualify-lead", &in)
	require.NoError(t, err)
	assert.Equal(t, int64(42), in.LeadID)
}

func TestDecodeVariables_SchemaViolation(t *testing.T) {
	var in map[string]interface{}
	err := DecodeVariables(jobWith("qualify-lead", `{"context": {}}`), "qualify-lead", &in)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestDecodeVariables_EmptyVariables(t *testing.T) {
	var in struct {
		Suite string `json:"suite"`
	}
	require.NoError(t, DecodeVariables(jobWith("run-evaluation", ""), "run-evaluation", &in))
	assert.Empty(t, in.Suite)
}

func TestDecodeVariables_UnknownTaskType(t *testing.T) {
	var in map[string]interface{}
	err := DecodeVariables(jobWith("nope", `{}`), "nope", &in)
	assert.Equal(t, apperrors.ErrCodeConfiguration, apperrors.CodeOf(err))
}
