package note_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/actions/note"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	now := time.Now().UTC()
	deal := &models.Record{
		ID:        uuid.New().String(),
		Type:      models.EntityDeal,
		Fields:    map[string]any{"stage": "won"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, records.CreateRecord(ctx, deal))

	action, err := note.NewAction(map[string]any{
		"content":     "Closed after the Q3 demo.",
		"entity_type": "deal",
		"record_id":   deal.ID,
	}, records)
	require.NoError(t, err)

	outputs, err := action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	noteID, ok := outputs["created_note_id"].(string)
	require.True(t, ok)

	stored, err := records.RecordByID(ctx, models.EntityNote, noteID)
	require.NoError(t, err)
	assert.Equal(t, "Closed after the Q3 demo.", stored.Fields["content"])
	assert.Equal(t, "deal", stored.Fields["related_entity_type"])
	assert.Equal(t, deal.ID, stored.Fields["related_record_id"])
}

func TestAddNote_TargetMustExist(t *testing.T) {
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	action, err := note.NewAction(map[string]any{
		"content":     "orphan",
		"entity_type": "contact",
		"record_id":   "ghost",
	}, records)
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestNewAction_RejectsTaskAndNoteTargets(t *testing.T) {
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	for _, entityType := range []string{"task", "note", "invoice"} {
		_, err := note.NewAction(map[string]any{
			"content":     "x",
			"entity_type": entityType,
			"record_id":   "r-1",
		}, records)
		require.ErrorIs(t, err, note.ErrAttachTargetWrong, entityType)
	}
}
