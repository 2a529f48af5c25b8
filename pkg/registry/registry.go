// Package registry maps action types to their factories and validates
// action configurations against each factory's JSON schema.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[models.ActionType]protocol.ActionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[models.ActionType]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.actionFactories[actionFactory.ID()] = actionFactory
}

func (r *Registry) CreateAction(actionType models.ActionType, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create(config)
}

// AvailableActions returns every registered action type.
func (r *Registry) AvailableActions() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// HealthCheck reports whether the registry is usable, which means at
// least one action factory is registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.actionFactories) == 0 {
		return "no action factories registered", false
	}

	return fmt.Sprintf("%d action factories registered", len(r.actionFactories)), true
}

// ValidateActionConfiguration validates an action configuration against
// the registered factory's schema. Configurations are checked before a
// workflow is saved so a malformed step never reaches execution.
func (r *Registry) ValidateActionConfiguration(actionType models.ActionType, config map[string]any) error {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return fmt.Errorf("action type '%s' not registered", actionType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate configuration for action '%s': %w", actionType, err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("invalid configuration for action '%s': %s", actionType, strings.Join(errors, "; "))
	}

	return nil
}
