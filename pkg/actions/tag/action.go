// Package tag provides the add_tag and remove_tag workflow actions.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

var (
	ErrEntityTypeInvalid = errors.New("missing or unknown entity type")
	ErrRecordIDMissing   = errors.New("missing record id")
	ErrTagMissing        = errors.New("missing tag")
)

// Action applies or removes one tag on a record. Adding a tag that is
// already present and removing one that is absent are both no-ops.
type Action struct {
	EntityType models.EntityType
	RecordID   string
	Tag        string
	Remove     bool

	records persistence.RecordRepository
}

func NewAction(config map[string]any, remove bool, records persistence.RecordRepository) (*Action, error) {
	raw, _ := config["entity_type"].(string)
	entityType := models.EntityType(raw)

	if !models.IsKnownEntityType(entityType) {
		return nil, fmt.Errorf("entity type '%s': %w", raw, ErrEntityTypeInvalid)
	}

	recordID, _ := config["record_id"].(string)
	if recordID == "" {
		return nil, ErrRecordIDMissing
	}

	tagValue, _ := config["tag"].(string)
	if tagValue == "" {
		return nil, ErrTagMissing
	}

	return &Action{
		EntityType: entityType,
		RecordID:   recordID,
		Tag:        tagValue,
		Remove:     remove,
		records:    records,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	var err error

	if a.Remove {
		err = a.records.RemoveTag(ctx, a.EntityType, a.RecordID, a.Tag)
	} else {
		err = a.records.AddTag(ctx, a.EntityType, a.RecordID, a.Tag)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to change tags on %s record %s: %w", a.EntityType, a.RecordID, err)
	}

	logger.InfoContext(ctx, "Changed record tags",
		"entity_type", a.EntityType,
		"record_id", a.RecordID,
		"tag", a.Tag,
		"removed", a.Remove)

	return map[string]any{
		"tagged_record_id": a.RecordID,
		"tag":              a.Tag,
	}, nil
}
