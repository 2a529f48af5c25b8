package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(WorkflowTriggeredEvent, "wf-123")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, WorkflowTriggeredEvent, event.Type)
	assert.Equal(t, "wf-123", event.WorkflowID)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.NotNil(t, event.Metadata)
}

func TestWorkflowTriggered_JSONSerialization(t *testing.T) {
	original := &WorkflowTriggered{
		BaseEvent:   NewBaseEvent(WorkflowTriggeredEvent, "wf-123"),
		TriggerType: models.TriggerRecordCreated,
		TriggerData: map[string]any{
			"entity_type": "contact",
			"record_id":   "c-456",
		},
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"workflow.triggered"`)
	assert.Contains(t, string(jsonData), `"trigger_type":"record_created"`)

	var deserialized WorkflowTriggered

	err = json.Unmarshal(jsonData, &deserialized)
	require.NoError(t, err)

	assert.Equal(t, original.WorkflowID, deserialized.WorkflowID)
	assert.Equal(t, original.TriggerType, deserialized.TriggerType)
	assert.Equal(t, original.TriggerData["record_id"], deserialized.TriggerData["record_id"])
}

func TestExecutionFailed_GetType(t *testing.T) {
	event := ExecutionFailed{}
	assert.Equal(t, ExecutionFailedEvent, event.GetType())
}

func TestRecordMutation_GetType(t *testing.T) {
	event := RecordMutation{BaseEvent: NewBaseEvent(RecordDeletedEvent, "")}
	assert.Equal(t, RecordDeletedEvent, event.GetType())
}
