// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Closed field and operator enums with comparison logic.
 *
 * Fields and operators are closed tagged enums resolved through exhaustive
 * switches, not string-keyed lookup tables: adding an operator is a
 * compiler-enforced exercise touching every call site. Persisted string
 * forms are converted exactly once, in Compile.
 *
 * Comparison is case-insensitive: both the resolved field value and the
 * condition operand are lowercased before comparison. Document names and
 * content vary in case unpredictably; case-sensitive matching makes rules
 * too brittle to be usable. Compare expects both sides pre-lowercased
 * (the operand at compile time, the field value at resolution time).
 */

// Field identifies the document attribute a condition tests.
type Field int

const (
	FieldUnspecified Field = iota
	FieldName
	FieldContent
)

// ParseField converts the persisted string form to the closed enum.
func ParseField(s string) (Field, error) {
	switch s {
	case "NAME":
		return FieldName, nil
	case "CONTENT":
		return FieldContent, nil
	default:
		return FieldUnspecified, types.ErrUnknownField
	}
}

func (f Field) String() string {
	switch f {
	case FieldName:
		return "NAME"
	case FieldContent:
		return "CONTENT"
	default:
		return "UNSPECIFIED"
	}
}

// Operator identifies the string predicate applied to a field.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEqual
	OpNotEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
)

// ParseOperator converts the persisted string form to the closed enum.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "EQUAL":
		return OpEqual, nil
	case "NOT_EQUAL":
		return OpNotEqual, nil
	case "CONTAINS":
		return OpContains, nil
	case "NOT_CONTAINS":
		return OpNotContains, nil
	case "STARTS_WITH":
		return OpStartsWith, nil
	case "ENDS_WITH":
		return OpEndsWith, nil
	default:
		return OpUnspecified, types.ErrUnknownOperator
	}
}

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "EQUAL"
	case OpNotEqual:
		return "NOT_EQUAL"
	case OpContains:
		return "CONTAINS"
	case OpNotContains:
		return "NOT_CONTAINS"
	case OpStartsWith:
		return "STARTS_WITH"
	case OpEndsWith:
		return "ENDS_WITH"
	default:
		return "UNSPECIFIED"
	}
}

// Compare applies the operator to a resolved field value and the condition
// operand. Both must already be lowercased. An empty field value never
// satisfies CONTAINS/STARTS_WITH/ENDS_WITH against a non-empty operand;
// that falls out of the substring semantics without a special case.
func Compare(op Operator, value, operand string) bool {
	switch op {
	case OpEqual:
		return value == operand
	case OpNotEqual:
		return value != operand
	case OpContains:
		return strings.Contains(value, operand)
	case OpNotContains:
		return !strings.Contains(value, operand)
	case OpStartsWith:
		return strings.HasPrefix(value, operand)
	case OpEndsWith:
		return strings.HasSuffix(value, operand)
	default:
		return false
	}
}
