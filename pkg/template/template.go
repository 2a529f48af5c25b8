// Package template provides {{dotted.path}} placeholder substitution for
// dynamic action configuration.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/helixcrm/helix/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Render replaces every {{dotted.path}} placeholder in input with the
// string form of the value resolved from the execution context. An
// unresolvable path degrades to the empty string; a string without
// placeholders is returned unchanged.
func Render(input string, executionCtx *models.ExecutionContext) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := executionCtx.Lookup(path)
		if !ok || value == nil {
			return ""
		}

		return Stringify(value)
	})
}

// RenderConfiguration applies Render to every string value of a
// configuration map, descending recursively into nested maps. Arrays are
// passed through verbatim; interpolation does not reach inside them.
func RenderConfiguration(config map[string]any, executionCtx *models.ExecutionContext) map[string]any {
	if config == nil {
		return nil
	}

	rendered := make(map[string]any, len(config))

	for key, value := range config {
		switch v := value.(type) {
		case string:
			rendered[key] = Render(v, executionCtx)
		case map[string]any:
			rendered[key] = RenderConfiguration(v, executionCtx)
		default:
			rendered[key] = value
		}
	}

	return rendered
}

// Stringify converts a resolved value to its placeholder string form.
// Scalars print as with %v; maps and slices are JSON-encoded.
func Stringify(value any) string {
	switch value.(type) {
	case nil:
		return ""
	case string:
		return value.(string)
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", value)
	}
}
