// internal/rules/compile.go
package rules

import (
	"strings"

	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.TaggingRule to CompiledRule with enum-resolved fields and
 * operators and pre-lowercased condition operands.
 *
 * Compilation workflow:
 *   1. Validate display fields (name 1-64, description <= 256)
 *   2. Validate resource limits (condition and action counts)
 *   3. Per condition: resolve field/operator enums, reject empty or
 *      oversized operands, lowercase the operand once
 *
 * Validation during compilation moves error detection to rule creation
 * time; evaluation operates on a CompiledRule and cannot fail. A rule with
 * zero conditions compiles successfully - how it matches is the caller's
 * policy decision (see match.go).
 */

// MatchMode is the combinator over a rule's conditions.
type MatchMode int

const (
	ModeAll MatchMode = iota // conjunction: every condition must hold
	ModeAny                  // disjunction: at least one condition must hold
)

// ParseMatchMode converts the persisted string form to the closed enum.
// An empty string defaults to ALL, matching the rule creation default.
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "ALL", "":
		return ModeAll, nil
	case "ANY":
		return ModeAny, nil
	default:
		return ModeAll, types.ErrUnknownMatchMode
	}
}

func (m MatchMode) String() string {
	if m == ModeAny {
		return "ANY"
	}
	return "ALL"
}

// CompiledCondition is a pre-processed condition ready for evaluation.
// Value is lowercased exactly once here so the per-document hot path only
// lowercases the field value.
type CompiledCondition struct {
	Field    Field
	Operator Operator
	Value    string // lowercased operand
}

// CompiledRule is fully validated and ready for evaluation.
type CompiledRule struct {
	RuleID         types.RuleID
	OrganizationID types.OrganizationID
	Name           string
	Mode           MatchMode
	Conditions     []CompiledCondition
	Actions        []types.TagID
}

// Compile validates and pre-processes a rule for evaluation.
// Returns the first validation error encountered; a nil error guarantees
// every condition carries a known field, a known operator, and a non-empty
// operand.
func Compile(rule *types.TaggingRule) (*CompiledRule, error) {
	if len(rule.Name) < 1 || len(rule.Name) > types.MaxRuleNameLength {
		return nil, types.ErrRuleNameLength
	}
	if len(rule.Description) > types.MaxRuleDescriptionLength {
		return nil, types.ErrRuleDescriptionTooLong
	}
	if len(rule.Conditions) > types.MaxConditionsPerRule {
		return nil, types.ErrTooManyConditions
	}
	if len(rule.Actions) > types.MaxActionsPerRule {
		return nil, types.ErrTooManyActions
	}

	mode, err := ParseMatchMode(rule.MatchMode)
	if err != nil {
		return nil, err
	}

	compiled := &CompiledRule{
		RuleID:         rule.RuleID,
		OrganizationID: rule.OrganizationID,
		Name:           rule.Name,
		Mode:           mode,
		Conditions:     make([]CompiledCondition, 0, len(rule.Conditions)),
		Actions:        make([]types.TagID, 0, len(rule.Actions)),
	}

	for _, cond := range rule.Conditions {
		cc, err := compileCondition(cond)
		if err != nil {
			return nil, err
		}
		compiled.Conditions = append(compiled.Conditions, cc)
	}

	for _, action := range rule.Actions {
		compiled.Actions = append(compiled.Actions, action.TagID)
	}

	return compiled, nil
}

// compileCondition resolves enums and normalizes the operand for a single
// condition. Empty operands are rejected here, never seen at runtime.
func compileCondition(cond types.Condition) (CompiledCondition, error) {
	field, err := ParseField(cond.Field)
	if err != nil {
		return CompiledCondition{}, err
	}

	op, err := ParseOperator(cond.Operator)
	if err != nil {
		return CompiledCondition{}, err
	}

	if len(cond.Value) == 0 {
		return CompiledCondition{}, types.ErrEmptyConditionValue
	}
	if len(cond.Value) > types.MaxConditionValueLength {
		return CompiledCondition{}, types.ErrConditionValueTooLong
	}

	return CompiledCondition{
		Field:    field,
		Operator: op,
		Value:    strings.ToLower(cond.Value),
	}, nil
}
