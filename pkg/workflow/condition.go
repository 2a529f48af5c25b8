package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/template"
)

// EvaluateCondition decides whether a guarded action should run. A nil
// condition always passes. A condition over a field the execution
// context cannot resolve compares against the undefined value, so
// "equals" against "" passes and the ordering operators fail closed.
func EvaluateCondition(condition *models.Condition, executionCtx *models.ExecutionContext) (bool, error) {
	if condition == nil {
		return true, nil
	}

	actual, _ := executionCtx.Lookup(condition.Field)

	switch condition.Operator {
	case models.OperatorEquals:
		return template.Stringify(actual) == template.Stringify(condition.Value), nil
	case models.OperatorNotEquals:
		return template.Stringify(actual) != template.Stringify(condition.Value), nil
	case models.OperatorContains:
		return strings.Contains(template.Stringify(actual), template.Stringify(condition.Value)), nil
	case models.OperatorGreaterThan:
		left, right, ok := numericPair(actual, condition.Value)

		return ok && left > right, nil
	case models.OperatorLessThan:
		left, right, ok := numericPair(actual, condition.Value)

		return ok && left < right, nil
	default:
		return false, fmt.Errorf("unknown condition operator '%s'", condition.Operator)
	}
}

// numericPair coerces both operands to float64. Either side failing to
// coerce makes the ordering comparison false rather than an error.
func numericPair(left, right any) (float64, float64, bool) {
	l, ok := toFloat(left)
	if !ok {
		return 0, 0, false
	}

	r, ok := toFloat(right)
	if !ok {
		return 0, 0, false
	}

	return l, r, true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
