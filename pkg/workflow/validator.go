package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/registry"
)

// ErrInvalidWorkflow wraps every validation failure so callers can map
// them to a client error.
var ErrInvalidWorkflow = errors.New("invalid workflow definition")

// Validator checks workflow definitions before they are persisted so a
// malformed trigger or action never reaches the engine.
type Validator struct {
	validate *validator.Validate
	registry *registry.Registry
}

func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		registry: reg,
	}
}

func (v *Validator) ValidateWorkflow(workflow *models.WorkflowDefinition) error {
	if err := v.validateWorkflow(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	return nil
}

func (v *Validator) validateWorkflow(workflow *models.WorkflowDefinition) error {
	if err := v.validate.Struct(workflow); err != nil {
		return err
	}

	if err := v.validateTrigger(&workflow.Trigger); err != nil {
		return err
	}

	seen := make(map[string]bool, len(workflow.Actions))

	for i := range workflow.Actions {
		action := &workflow.Actions[i]

		if action.ID == "" {
			return fmt.Errorf("action at position %d has no id", i)
		}

		if seen[action.ID] {
			return fmt.Errorf("duplicate action id '%s'", action.ID)
		}

		seen[action.ID] = true

		if err := v.validateAction(action); err != nil {
			return err
		}
	}

	return nil
}

func (v *Validator) validateTrigger(trigger *models.TriggerConfig) error {
	switch trigger.Type {
	case models.TriggerRecordCreated, models.TriggerRecordUpdated, models.TriggerRecordDeleted:
		if trigger.EntityType != "" && !models.IsKnownEntityType(trigger.EntityType) {
			return fmt.Errorf("unknown entity type '%s' in trigger", trigger.EntityType)
		}
	case models.TriggerSchedule:
		if trigger.CronExpr == "" {
			return fmt.Errorf("schedule trigger requires a cron expression")
		}

		if _, err := cron.ParseStandard(trigger.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression '%s': %w", trigger.CronExpr, err)
		}
	case models.TriggerWebhook:
		if trigger.WebhookPath == "" {
			return fmt.Errorf("webhook trigger requires a path")
		}
	case models.TriggerManual:
		// No extra configuration.
	default:
		return fmt.Errorf("unknown trigger type '%s'", trigger.Type)
	}

	return nil
}

func (v *Validator) validateAction(action *models.ActionConfig) error {
	if action.Condition != nil {
		switch action.Condition.Operator {
		case models.OperatorEquals, models.OperatorNotEquals, models.OperatorContains,
			models.OperatorGreaterThan, models.OperatorLessThan:
		default:
			return fmt.Errorf("action '%s': unknown condition operator '%s'", action.ID, action.Condition.Operator)
		}

		if action.Condition.Field == "" {
			return fmt.Errorf("action '%s': condition requires a field", action.ID)
		}
	}

	if v.registry == nil {
		return nil
	}

	if err := v.registry.ValidateActionConfiguration(action.Type, action.Configuration); err != nil {
		return fmt.Errorf("action '%s': %w", action.ID, err)
	}

	return nil
}
