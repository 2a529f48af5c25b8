package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/persistence/file"
	"github.com/helixcrm/helix/pkg/protocol"
	"github.com/helixcrm/helix/pkg/registry"
)

const recorderActionType = models.ActionType("recorder")

// stepRecorder collects what each recorder action observed, across
// goroutines.
type stepRecorder struct {
	mu      sync.Mutex
	labels  []string
	configs []map[string]any
}

func (r *stepRecorder) record(config map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.labels = append(r.labels, config["label"].(string))
	r.configs = append(r.configs, config)
}

func (r *stepRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.labels...)
}

type recorderAction struct {
	config   map[string]any
	recorder *stepRecorder
}

func (a *recorderAction) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	a.recorder.record(a.config)

	if fail, _ := a.config["fail"].(bool); fail {
		return nil, errors.New("recorder action exploded")
	}

	if outputs, ok := a.config["outputs"].(map[string]any); ok {
		return outputs, nil
	}

	return nil, nil
}

type recorderFactory struct {
	recorder *stepRecorder
}

func (f *recorderFactory) Create(config map[string]any) (protocol.Action, error) {
	return &recorderAction{config: config, recorder: f.recorder}, nil
}

func (f *recorderFactory) ID() models.ActionType { return recorderActionType }

func (f *recorderFactory) Schema() map[string]any { return nil }

type engineHarness struct {
	engine     *Engine
	repository *Repository
	executions persistence.ExecutionRepository
	recorder   *stepRecorder
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := &stepRecorder{}

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(&recorderFactory{recorder: recorder})

	store := file.NewPersistence(t.TempDir())
	repository := NewRepository(store, NewValidator(reg))
	engine := NewEngine(repository, reg, store.ExecutionRepository(), nil, logger)

	return &engineHarness{
		engine:     engine,
		repository: repository,
		executions: store.ExecutionRepository(),
		recorder:   recorder,
	}
}

func recorderStep(id string, order int, config map[string]any) models.ActionConfig {
	if config == nil {
		config = map[string]any{}
	}

	if _, ok := config["label"]; !ok {
		config["label"] = id
	}

	return models.ActionConfig{
		ID:            id,
		Type:          recorderActionType,
		Name:          id,
		Order:         order,
		Configuration: config,
	}
}

func saveWorkflow(t *testing.T, h *engineHarness, wf *models.WorkflowDefinition) *models.WorkflowDefinition {
	t.Helper()

	saved, err := h.repository.Create(context.Background(), wf)
	require.NoError(t, err)

	return saved
}

func TestEngine_Execute_CompletesAndRecords(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "welcome new contact",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordCreated, EntityType: models.EntityContact},
		Actions: []models.ActionConfig{
			recorderStep("greet", 0, map[string]any{
				"outputs": map[string]any{"greeted": true},
			}),
		},
	})

	execution, err := h.engine.Execute(context.Background(), wf.ID, map[string]any{"record_id": "c-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, wf.ID, execution.WorkflowID)
	assert.Equal(t, true, execution.Result["greeted"])
	require.NotNil(t, execution.CompletedAt)
	assert.False(t, execution.CompletedAt.Before(execution.StartedAt))

	stored, err := h.executions.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, "c-1", stored.TriggerData["record_id"])
}

func TestEngine_Execute_ActionOrdering(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "ordering",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{
			recorderStep("third", 2, nil),
			recorderStep("first", 0, nil),
			recorderStep("second", 1, nil),
		},
	})

	_, err := h.engine.Execute(context.Background(), wf.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, h.recorder.seen())
}

func TestEngine_Execute_EqualOrderKeepsDeclarationOrder(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "stable ordering",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{
			recorderStep("a", 1, nil),
			recorderStep("b", 1, nil),
			recorderStep("c", 0, nil),
		},
	})

	_, err := h.engine.Execute(context.Background(), wf.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "b"}, h.recorder.seen())
}

func TestEngine_Execute_FailureFinalizesRecord(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "fails midway",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{
			recorderStep("ok", 0, nil),
			recorderStep("boom", 1, map[string]any{"fail": true}),
			recorderStep("never", 2, nil),
		},
	})

	execution, err := h.engine.Execute(context.Background(), wf.ID, nil)
	require.Error(t, err)
	require.NotNil(t, execution)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "recorder action exploded")
	require.NotNil(t, execution.CompletedAt)

	// The failing action stops the run before later actions execute.
	assert.Equal(t, []string{"ok", "boom"}, h.recorder.seen())

	stored, err := h.executions.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "boom")
}

func TestEngine_Execute_InactiveWorkflowLeavesNoRecord(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "paused",
		Active:  false,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{recorderStep("noop", 0, nil)},
	})

	execution, err := h.engine.Execute(context.Background(), wf.ID, nil)
	require.ErrorIs(t, err, ErrWorkflowInactive)
	assert.Nil(t, execution)

	recorded, err := h.executions.ExecutionsByWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestEngine_Execute_ConditionSkipsWithoutFailing(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "guarded",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordUpdated, EntityType: models.EntityDeal},
		Actions: []models.ActionConfig{
			recorderStep("always", 0, nil),
			{
				ID:            "only-won",
				Type:          recorderActionType,
				Name:          "only-won",
				Order:         1,
				Configuration: map[string]any{"label": "only-won"},
				Condition: &models.Condition{
					Field:    "stage",
					Operator: models.OperatorEquals,
					Value:    "won",
				},
			},
		},
	})

	execution, err := h.engine.Execute(context.Background(), wf.ID, map[string]any{"stage": "negotiation"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"always"}, h.recorder.seen())
}

func TestEngine_Execute_InterpolatesEarlierOutputs(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "chained",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordCreated, EntityType: models.EntityContact},
		Actions: []models.ActionConfig{
			recorderStep("produce", 0, map[string]any{
				"outputs": map[string]any{"contact_name": "Rosa"},
			}),
			recorderStep("consume", 1, map[string]any{
				"message": "Hello {{contact_name}}, welcome to {{company.name}}!",
			}),
		},
	})

	_, err := h.engine.Execute(context.Background(), wf.ID, map[string]any{
		"company": map[string]any{"name": "Acme"},
	})
	require.NoError(t, err)

	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()

	require.Len(t, h.recorder.configs, 2)
	assert.Equal(t, "Hello Rosa, welcome to Acme!", h.recorder.configs[1]["message"])
}

func TestDispatcher_MatchesTriggerAndFieldFilters(t *testing.T) {
	h := newEngineHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewDispatcher(h.repository, h.engine, logger)

	saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "on new deal",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordCreated, EntityType: models.EntityDeal},
		Actions: []models.ActionConfig{recorderStep("deal-created", 0, nil)},
	})
	saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:   "on big deal",
		Active: true,
		Trigger: models.TriggerConfig{
			Type:         models.TriggerRecordCreated,
			EntityType:   models.EntityDeal,
			FieldFilters: map[string]any{"tier": "enterprise"},
		},
		Actions: []models.ActionConfig{recorderStep("big-deal", 0, nil)},
	})
	saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "on new contact",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordCreated, EntityType: models.EntityContact},
		Actions: []models.ActionConfig{recorderStep("contact-created", 0, nil)},
	})

	err := dispatcher.Dispatch(context.Background(), models.TriggerRecordCreated, models.EntityDeal, map[string]any{
		"record_id": "d-1",
		"fields":    map[string]any{"tier": "smb"},
	})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, []string{"deal-created"}, h.recorder.seen())
}

func TestDispatcher_WebhookMatchesPathAndMethod(t *testing.T) {
	h := newEngineHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewDispatcher(h.repository, h.engine, logger)

	saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "on form post",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerWebhook, WebhookPath: "signup", Method: "POST"},
		Actions: []models.ActionConfig{recorderStep("signup-post", 0, nil)},
	})
	saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "any method",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerWebhook, WebhookPath: "signup"},
		Actions: []models.ActionConfig{recorderStep("signup-any", 0, nil)},
	})

	err := dispatcher.Dispatch(context.Background(), models.TriggerWebhook, "", map[string]any{
		"path":   "signup",
		"method": "delete",
	})
	require.NoError(t, err)
	dispatcher.Wait()

	// Method comparison is case insensitive and an unset trigger
	// method accepts anything.
	assert.Equal(t, []string{"signup-any"}, h.recorder.seen())

	err = dispatcher.Dispatch(context.Background(), models.TriggerWebhook, "", map[string]any{
		"path":   "signup",
		"method": "post",
	})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.ElementsMatch(t, []string{"signup-any", "signup-post", "signup-any"}, h.recorder.seen())
}

func TestDispatcher_FailingRunDoesNotAffectSiblings(t *testing.T) {
	h := newEngineHarness(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := NewDispatcher(h.repository, h.engine, logger)

	failing := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "fails",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordDeleted, EntityType: models.EntityCompany},
		Actions: []models.ActionConfig{recorderStep("doomed", 0, map[string]any{"fail": true})},
	})
	healthy := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "survives",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerRecordDeleted, EntityType: models.EntityCompany},
		Actions: []models.ActionConfig{recorderStep("survivor", 0, nil)},
	})

	err := dispatcher.Dispatch(context.Background(), models.TriggerRecordDeleted, models.EntityCompany, map[string]any{"record_id": "co-9"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.ElementsMatch(t, []string{"doomed", "survivor"}, h.recorder.seen())

	failedRuns, err := h.executions.ExecutionsByWorkflow(context.Background(), failing.ID)
	require.NoError(t, err)
	require.Len(t, failedRuns, 1)
	assert.Equal(t, models.ExecutionStatusFailed, failedRuns[0].Status)

	healthyRuns, err := h.executions.ExecutionsByWorkflow(context.Background(), healthy.ID)
	require.NoError(t, err)
	require.Len(t, healthyRuns, 1)
	assert.Equal(t, models.ExecutionStatusCompleted, healthyRuns[0].Status)
}

func TestValidator_RejectsBadDefinitions(t *testing.T) {
	h := newEngineHarness(t)

	_, err := h.repository.Create(context.Background(), &models.WorkflowDefinition{
		Name:    "bad cron",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerSchedule, CronExpr: "not a cron"},
		Actions: []models.ActionConfig{recorderStep("noop", 0, nil)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron")

	_, err = h.repository.Create(context.Background(), &models.WorkflowDefinition{
		Name:    "duplicate ids",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{
			recorderStep("same", 0, nil),
			recorderStep("same", 1, nil),
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate action id")

	_, err = h.repository.Create(context.Background(), &models.WorkflowDefinition{
		Name:    "bad operator",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{
			{
				ID:            "guarded",
				Type:          recorderActionType,
				Name:          "guarded",
				Order:         0,
				Configuration: map[string]any{"label": "guarded"},
				Condition:     &models.Condition{Field: "x", Operator: "matches", Value: 1},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition operator")
}

func TestRepository_UpdatePreservesIdentity(t *testing.T) {
	h := newEngineHarness(t)

	wf := saveWorkflow(t, h, &models.WorkflowDefinition{
		Name:    "v1",
		Active:  true,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{recorderStep("noop", 0, nil)},
	})

	time.Sleep(10 * time.Millisecond)

	updated, err := h.repository.Update(context.Background(), wf.ID, &models.WorkflowDefinition{
		Name:    "v2",
		Active:  false,
		Trigger: models.TriggerConfig{Type: models.TriggerManual},
		Actions: []models.ActionConfig{recorderStep("noop", 0, nil)},
	})
	require.NoError(t, err)

	assert.Equal(t, wf.ID, updated.ID)
	assert.WithinDuration(t, wf.CreatedAt, updated.CreatedAt, time.Millisecond)
	assert.True(t, updated.UpdatedAt.After(wf.UpdatedAt))
	assert.Equal(t, "v2", updated.Name)
}
