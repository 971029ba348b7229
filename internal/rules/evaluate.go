// internal/rules/evaluate.go
package rules

import (
	"strings"

	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Condition evaluation.
 *
 * Pure and stateless: one compiled condition against one document, no I/O,
 * no error path. Field resolution reads document attributes directly; an
 * empty or not-yet-extracted content is the empty string, never a match-all
 * or match-none special case.
 */

// EvaluateCondition checks a single compiled condition against a document.
func EvaluateCondition(cond CompiledCondition, doc *types.Document) bool {
	return Compare(cond.Operator, resolveField(cond.Field, doc), cond.Value)
}

// resolveField reads the document attribute for a field, lowercased for
// case-insensitive comparison. Exhaustive over the Field enum.
func resolveField(field Field, doc *types.Document) string {
	switch field {
	case FieldName:
		return strings.ToLower(doc.Name)
	case FieldContent:
		return strings.ToLower(doc.Content)
	default:
		return ""
	}
}
