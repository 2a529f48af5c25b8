package tag_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/actions/tag"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedContact(t *testing.T, records persistence.RecordRepository, tags ...string) string {
	t.Helper()

	now := time.Now().UTC()
	rec := &models.Record{
		ID:        uuid.New().String(),
		Type:      models.EntityContact,
		Fields:    map[string]any{"name": "Rosa"},
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, records.CreateRecord(context.Background(), rec))

	return rec.ID
}

func TestAddTag(t *testing.T) {
	ctx := context.Background()
	records := file.NewPersistence(t.TempDir()).RecordRepository()
	contactID := seedContact(t, records)

	action, err := tag.NewAction(map[string]any{
		"entity_type": "contact",
		"record_id":   contactID,
		"tag":         "vip",
	}, false, records)
	require.NoError(t, err)

	outputs, err := action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "vip", outputs["tag"])

	stored, err := records.RecordByID(ctx, models.EntityContact, contactID)
	require.NoError(t, err)
	assert.Contains(t, stored.Tags, "vip")
}

func TestAddTag_AlreadyPresentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	records := file.NewPersistence(t.TempDir()).RecordRepository()
	contactID := seedContact(t, records, "vip")

	action, err := tag.NewAction(map[string]any{
		"entity_type": "contact",
		"record_id":   contactID,
		"tag":         "vip",
	}, false, records)
	require.NoError(t, err)

	_, err = action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	stored, err := records.RecordByID(ctx, models.EntityContact, contactID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, stored.Tags)
}

func TestRemoveTag_AbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	records := file.NewPersistence(t.TempDir()).RecordRepository()
	contactID := seedContact(t, records, "lead")

	action, err := tag.NewAction(map[string]any{
		"entity_type": "contact",
		"record_id":   contactID,
		"tag":         "vip",
	}, true, records)
	require.NoError(t, err)

	_, err = action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	stored, err := records.RecordByID(ctx, models.EntityContact, contactID)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead"}, stored.Tags)
}

func TestNewAction_Validation(t *testing.T) {
	records := file.NewPersistence(t.TempDir()).RecordRepository()

	_, err := tag.NewAction(map[string]any{"record_id": "x", "tag": "vip"}, false, records)
	require.ErrorIs(t, err, tag.ErrEntityTypeInvalid)

	_, err = tag.NewAction(map[string]any{"entity_type": "contact", "tag": "vip"}, false, records)
	require.ErrorIs(t, err, tag.ErrRecordIDMissing)

	_, err = tag.NewAction(map[string]any{"entity_type": "contact", "record_id": "x"}, false, records)
	require.ErrorIs(t, err, tag.ErrTagMissing)
}
