package record_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/actions/record"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRepository(t *testing.T) persistence.RecordRepository {
	t.Helper()

	return file.NewPersistence(t.TempDir()).RecordRepository()
}

func TestCreateAction(t *testing.T) {
	ctx := context.Background()
	records := testRepository(t)

	action, err := record.NewCreateAction(map[string]any{
		"entity_type": "contact",
		"fields": map[string]any{
			"name":  "Rosa Duarte",
			"email": "rosa@example.com",
		},
		"tags": []any{"lead"},
	}, records, nil)
	require.NoError(t, err)

	outputs, err := action.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	recordID, ok := outputs["created_contact_id"].(string)
	require.True(t, ok)
	assert.Equal(t, "contact", outputs["created_record_type"])
	assert.NotContains(t, outputs, "created_record_id")

	stored, err := records.RecordByID(ctx, models.EntityContact, recordID)
	require.NoError(t, err)
	assert.Equal(t, "Rosa Duarte", stored.Fields["name"])
	assert.Equal(t, []string{"lead"}, stored.Tags)
}

func TestCreateAction_UnknownEntityType(t *testing.T) {
	_, err := record.NewCreateAction(map[string]any{
		"entity_type": "invoice",
	}, testRepository(t), nil)
	require.ErrorIs(t, err, record.ErrEntityTypeInvalid)
}

func TestUpdateAction_MergesFields(t *testing.T) {
	ctx := context.Background()
	records := testRepository(t)

	create, err := record.NewCreateAction(map[string]any{
		"entity_type": "deal",
		"fields": map[string]any{
			"stage":  "negotiation",
			"amount": 1000,
		},
	}, records, nil)
	require.NoError(t, err)

	outputs, err := create.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	dealID := outputs["created_deal_id"].(string)

	update, err := record.NewUpdateAction(map[string]any{
		"entity_type": "deal",
		"record_id":   dealID,
		"fields": map[string]any{
			"stage": "won",
		},
	}, records, nil)
	require.NoError(t, err)

	_, err = update.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	stored, err := records.RecordByID(ctx, models.EntityDeal, dealID)
	require.NoError(t, err)
	assert.Equal(t, "won", stored.Fields["stage"])
	assert.NotNil(t, stored.Fields["amount"], "untouched fields survive the patch")
}

func TestUpdateAction_MissingRecordFails(t *testing.T) {
	ctx := context.Background()

	update, err := record.NewUpdateAction(map[string]any{
		"entity_type": "deal",
		"record_id":   "ghost",
		"fields":      map[string]any{"stage": "won"},
	}, testRepository(t), nil)
	require.NoError(t, err)

	_, err = update.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestDeleteAction(t *testing.T) {
	ctx := context.Background()
	records := testRepository(t)

	create, err := record.NewCreateAction(map[string]any{
		"entity_type": "company",
		"fields":      map[string]any{"name": "Acme"},
	}, records, nil)
	require.NoError(t, err)

	outputs, err := create.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)
	companyID := outputs["created_company_id"].(string)

	del, err := record.NewDeleteAction(map[string]any{
		"entity_type": "company",
		"record_id":   companyID,
	}, records, nil)
	require.NoError(t, err)

	_, err = del.Execute(ctx, models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	_, err = records.RecordByID(ctx, models.EntityCompany, companyID)
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}
