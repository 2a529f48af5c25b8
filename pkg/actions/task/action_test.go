package task_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/actions/task"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	action, err := task.NewAction(map[string]any{
		"title":    "Call the prospect",
		"due_date": "2026-09-15",
		"assignee": "rosa",
	}, records)
	require.NoError(t, err)

	outputs, err := action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	taskID, ok := outputs["created_task_id"].(string)
	require.True(t, ok)

	stored, err := records.RecordByID(ctx, models.EntityTask, taskID)
	require.NoError(t, err)
	assert.Equal(t, "Call the prospect", stored.Fields["title"])
	assert.Equal(t, "2026-09-15", stored.Fields["due_date"])
	assert.Equal(t, "rosa", stored.Fields["assignee"])
	assert.Equal(t, false, stored.Fields["completed"])
}

func TestCreateTask_RequiresTitle(t *testing.T) {
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	_, err := task.NewAction(map[string]any{}, records)
	assert.ErrorIs(t, err, task.ErrTitleMissing)
}

func TestCreateTask_RejectsUnknownRelatedType(t *testing.T) {
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	_, err := task.NewAction(map[string]any{
		"title":               "Follow up",
		"related_entity_type": "spaceship",
	}, records)
	assert.Error(t, err)
}
