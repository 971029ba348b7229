// Package types provides domain models shared across TagKeeper components.
//
// Zero-dependency design: types.go, rules.go, task.go and errors.go use only
// the standard library. ID utilities in ids.go import uuid but are isolated
// for selective inclusion.
//
// Wire-format agnostic: JSON/HTTP conversion happens at the API boundary,
// database row mapping in internal/core/store.
package types

import "time"

// OrganizationID identifies the tenant owning rules, documents and tags.
// String alias enables type safety while maintaining JSON string serialization.
type OrganizationID string

// DocumentID represents a UUIDv7 document identifier.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type DocumentID string

// TagID represents a UUIDv7 tag identifier.
type TagID string

// RuleID represents a UUIDv7 tagging rule identifier.
type RuleID string

// TaskID represents a UUIDv7 rule application task identifier.
type TaskID string

// APIKeyID represents a UUIDv7 API key identifier.
type APIKeyID string

// TimeFormat is the canonical storage format for timestamps.
// Fixed-width nanoseconds keep lexicographic order equal to chronological
// order, which the document scan cursor depends on.
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in the canonical storage format (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses the canonical storage format. Returns zero time for an
// empty string (unset nullable columns).
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeFormat, s)
}

// Resource limits enforced at rule create/update time.
// Evaluation never sees a rule that violates them.
const (
	// MaxRuleNameLength bounds the display name (minimum is 1).
	MaxRuleNameLength = 64

	// MaxRuleDescriptionLength bounds the optional description.
	MaxRuleDescriptionLength = 256

	// MaxConditionsPerRule prevents unbounded per-document evaluation cost
	// on the synchronous trigger path.
	MaxConditionsPerRule = 32

	// MaxActionsPerRule bounds tag writes per matched document.
	MaxActionsPerRule = 16

	// MaxConditionValueLength bounds the comparison operand.
	MaxConditionValueLength = 256

	// MaxRulesPerOrganization keeps the trigger path cheap enough to run
	// inline with the document write request.
	MaxRulesPerOrganization = 256
)

// Document is the entity rules are evaluated against. The engine reads
// name/content and writes tag associations; everything else about documents
// belongs to the document-storage collaborator.
type Document struct {
	DocumentID     DocumentID
	OrganizationID OrganizationID
	Name           string
	Content        string // empty until content extraction has run
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tag is an organization-scoped label. The engine never creates tags, only
// associations between documents and existing tags.
type Tag struct {
	TagID          TagID
	OrganizationID OrganizationID
	Name           string
	CreatedAt      time.Time
}
