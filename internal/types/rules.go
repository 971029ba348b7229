// internal/types/rules.go
package types

import "time"

/*
 * Domain types for tagging rules.
 *
 * Provides TaggingRule, Condition, and TagAction structures used by
 * internal/rules for compilation and evaluation. These types are wire-format
 * agnostic - JSON/row conversion happens at the API and store boundaries.
 *
 * Field, operator and match mode are carried as strings here (the persisted
 * representation); internal/rules converts them to closed enum types during
 * compilation and rejects anything outside the enums. Validation therefore
 * happens exactly once, at rule create/update time.
 */

// Condition represents a single (field, operator, value) predicate.
type Condition struct {
	Field    string `json:"field"`    // NAME or CONTENT
	Operator string `json:"operator"` // EQUAL, NOT_EQUAL, CONTAINS, NOT_CONTAINS, STARTS_WITH, ENDS_WITH
	Value    string `json:"value"`    // non-empty comparison operand
}

// TagAction attaches one tag when the owning rule matches.
type TagAction struct {
	TagID TagID `json:"tag_id"`
}

// TaggingRule is a user-defined classification rule scoped to one
// organization. Conditions keep their authored order for display; evaluation
// order is unspecified and short-circuiting is permitted.
type TaggingRule struct {
	RuleID         RuleID
	OrganizationID OrganizationID
	Name           string // 1-64 chars, display only
	Description    string // 0-256 chars, display only
	MatchMode      string // ALL (conjunction) or ANY (disjunction)
	Conditions     []Condition
	Actions        []TagAction // zero actions is valid: rule matches with no effect
	Enabled        bool        // disabled rules are skipped on the trigger path
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
