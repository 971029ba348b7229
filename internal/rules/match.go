// internal/rules/match.go
package rules

import "github.com/solatis/tagkeeper/internal/types"

/*
 * Rule matching.
 *
 * Combines a rule's condition results under its match mode with
 * short-circuit evaluation: first false stops ALL, first true stops ANY.
 * Conditions are side-effect free, so short-circuiting never alters the
 * result.
 *
 * Empty-condition rules are governed by an explicit policy rather than a
 * single hardcoded answer. The event-driven path passes EmptyMatchesNone: a
 * rule with no conditions must never silently tag every new document. The
 * bulk path passes EmptyMatchesAll, but only after the user has confirmed a
 * retroactive tag-everything run. The asymmetry is deliberate; do not unify
 * the two paths.
 */

// EmptyConditionPolicy decides how a rule with zero conditions matches.
type EmptyConditionPolicy int

const (
	// EmptyMatchesNone treats an empty-condition rule as non-matching.
	EmptyMatchesNone EmptyConditionPolicy = iota
	// EmptyMatchesAll treats an empty-condition rule as matching every
	// document. Only the confirmed bulk path uses this.
	EmptyMatchesAll
)

// Matches reports whether the rule matches the document under the given
// empty-condition policy.
func Matches(rule *CompiledRule, doc *types.Document, empty EmptyConditionPolicy) bool {
	if len(rule.Conditions) == 0 {
		return empty == EmptyMatchesAll
	}

	switch rule.Mode {
	case ModeAny:
		for _, cond := range rule.Conditions {
			if EvaluateCondition(cond, doc) {
				return true
			}
		}
		return false
	default: // ModeAll
		for _, cond := range rule.Conditions {
			if !EvaluateCondition(cond, doc) {
				return false
			}
		}
		return true
	}
}
