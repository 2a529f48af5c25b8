package queue

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
)

func TestNewSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name        string
		config      map[string]any
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid_config",
			config: map[string]any{
				"addr":  "localhost:6379",
				"queue": "helix_triggers",
				"db":    "2",
			},
			expectError: false,
		},
		{
			name:        "missing_queue",
			config:      map[string]any{"addr": "localhost:6379"},
			expectError: true,
			errorMsg:    "queue source requires a queue name",
		},
		{
			name: "bad_db_value",
			config: map[string]any{
				"queue": "helix_triggers",
				"db":    "two",
			},
			expectError: true,
			errorMsg:    "invalid db value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := NewSource(tt.config, logger)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "helix_triggers", source.Queue)
		})
	}
}

func TestNewSource_Defaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	source, err := NewSource(map[string]any{"queue": "q"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", source.Addr)
	assert.Equal(t, 0, source.DB)
}

func TestDecodeMessage(t *testing.T) {
	t.Run("json with trigger and entity type", func(t *testing.T) {
		triggerType, entityType, payload := decodeMessage(
			`{"trigger_type":"record_created","entity_type":"contact","record_id":"c-1"}`)

		assert.Equal(t, models.TriggerRecordCreated, triggerType)
		assert.Equal(t, models.EntityContact, entityType)
		assert.Equal(t, "c-1", payload["record_id"])
		assert.NotEmpty(t, payload["timestamp"])
	})

	t.Run("json without trigger type defaults to manual", func(t *testing.T) {
		triggerType, entityType, payload := decodeMessage(`{"workflow_id":"wf-1"}`)

		assert.Equal(t, models.TriggerManual, triggerType)
		assert.Empty(t, entityType)
		assert.Equal(t, "wf-1", payload["workflow_id"])
	})

	t.Run("plain text becomes manual trigger", func(t *testing.T) {
		triggerType, _, payload := decodeMessage("not json at all")

		assert.Equal(t, models.TriggerManual, triggerType)
		assert.Equal(t, "not json at all", payload["message"])
	})

	t.Run("existing timestamp is preserved", func(t *testing.T) {
		_, _, payload := decodeMessage(`{"timestamp":"2026-01-01T00:00:00Z"}`)

		assert.Equal(t, "2026-01-01T00:00:00Z", payload["timestamp"])
	})
}
