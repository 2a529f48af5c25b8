package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixcrm/helix/pkg/models"
)

func conditionContext(t *testing.T, triggerData map[string]any) *models.ExecutionContext {
	t.Helper()

	return models.NewExecutionContext("exec-1", "wf-1", triggerData)
}

func TestEvaluateCondition_NilConditionPasses(t *testing.T) {
	passed, err := EvaluateCondition(nil, conditionContext(t, nil))
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestEvaluateCondition_Operators(t *testing.T) {
	triggerData := map[string]any{
		"status": "won",
		"amount": 1500.0,
		"fields": map[string]any{
			"owner": "ana@example.com",
		},
	}

	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
	}{
		{
			name:      "equals matches",
			condition: models.Condition{Field: "status", Operator: models.OperatorEquals, Value: "won"},
			expected:  true,
		},
		{
			name:      "equals mismatch",
			condition: models.Condition{Field: "status", Operator: models.OperatorEquals, Value: "lost"},
			expected:  false,
		},
		{
			name:      "equals compares across types",
			condition: models.Condition{Field: "amount", Operator: models.OperatorEquals, Value: "1500"},
			expected:  true,
		},
		{
			name:      "not_equals",
			condition: models.Condition{Field: "status", Operator: models.OperatorNotEquals, Value: "lost"},
			expected:  true,
		},
		{
			name:      "contains substring",
			condition: models.Condition{Field: "fields.owner", Operator: models.OperatorContains, Value: "@example.com"},
			expected:  true,
		},
		{
			name:      "contains on stringified number",
			condition: models.Condition{Field: "amount", Operator: models.OperatorContains, Value: "500"},
			expected:  true,
		},
		{
			name:      "greater_than numeric",
			condition: models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: 1000},
			expected:  true,
		},
		{
			name:      "greater_than numeric string operand",
			condition: models.Condition{Field: "amount", Operator: models.OperatorGreaterThan, Value: "2000"},
			expected:  false,
		},
		{
			name:      "less_than",
			condition: models.Condition{Field: "amount", Operator: models.OperatorLessThan, Value: 2000},
			expected:  true,
		},
		{
			name:      "ordering against non-numeric is false",
			condition: models.Condition{Field: "status", Operator: models.OperatorGreaterThan, Value: 10},
			expected:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			passed, err := EvaluateCondition(&tc.condition, conditionContext(t, triggerData))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, passed)
		})
	}
}

func TestEvaluateCondition_MissingField(t *testing.T) {
	executionCtx := conditionContext(t, map[string]any{"status": "open"})

	passed, err := EvaluateCondition(&models.Condition{
		Field:    "nope.nothing",
		Operator: models.OperatorEquals,
		Value:    "",
	}, executionCtx)
	require.NoError(t, err)
	assert.True(t, passed, "missing field stringifies to empty")

	passed, err = EvaluateCondition(&models.Condition{
		Field:    "nope.nothing",
		Operator: models.OperatorGreaterThan,
		Value:    0,
	}, executionCtx)
	require.NoError(t, err)
	assert.False(t, passed, "ordering over a missing field fails closed")
}

func TestEvaluateCondition_VariablesShadowTriggerData(t *testing.T) {
	executionCtx := conditionContext(t, map[string]any{"status": "open"})
	executionCtx.Variables["status"] = "closed"

	passed, err := EvaluateCondition(&models.Condition{
		Field:    "status",
		Operator: models.OperatorEquals,
		Value:    "closed",
	}, executionCtx)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestEvaluateCondition_UnknownOperator(t *testing.T) {
	_, err := EvaluateCondition(&models.Condition{
		Field:    "status",
		Operator: models.ConditionOperator("matches"),
		Value:    "x",
	}, conditionContext(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition operator")
}
