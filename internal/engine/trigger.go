// internal/engine/trigger.go
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/rules"
	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Event-driven trigger.
 *
 * Runs synchronously inside the document-write request after the document
 * row is committed: loads the organization's enabled rules (bounded by
 * MaxRulesPerOrganization, no pagination), matches and applies each one
 * against the single document.
 *
 * Nothing here propagates to the document-write caller. A rule that fails
 * to compile (malformed persisted condition) is logged and skipped; the
 * remaining rules still run. Empty-condition rules never match on this
 * path - an implicit tag-everything effect is reserved for the confirmed
 * bulk action.
 */

// Trigger evaluates an organization's rules against a just-written document.
type Trigger struct {
	rules   RuleSource
	applier *Applier
	logger  *zap.Logger
}

// NewTrigger creates the document-write hook.
func NewTrigger(ruleSource RuleSource, applier *Applier, logger *zap.Logger) *Trigger {
	return &Trigger{rules: ruleSource, applier: applier, logger: logger}
}

// DocumentWritten runs all enabled rules against the document. It never
// returns an error: trigger failures must not block the document write
// that caused them.
func (t *Trigger) DocumentWritten(ctx context.Context, doc *types.Document) {
	ruleList, err := t.rules.ListEnabled(ctx, doc.OrganizationID)
	if err != nil {
		t.logger.Error("loading rules for trigger failed",
			zap.String("organization_id", string(doc.OrganizationID)),
			zap.String("document_id", string(doc.DocumentID)),
			zap.Error(err))
		return
	}

	for _, rule := range ruleList {
		compiled, err := rules.Compile(rule)
		if err != nil {
			t.logger.Warn("skipping malformed rule",
				zap.String("rule_id", string(rule.RuleID)),
				zap.Error(err))
			continue
		}

		if !rules.Matches(compiled, doc, rules.EmptyMatchesNone) {
			continue
		}

		result := t.applier.Apply(ctx, compiled, doc)
		if len(result.Added) > 0 || result.Errors > 0 {
			t.logger.Debug("rule applied on document write",
				zap.String("rule_id", string(rule.RuleID)),
				zap.String("document_id", string(doc.DocumentID)),
				zap.Int("tags_added", len(result.Added)),
				zap.Int("errors", result.Errors))
		}
	}
}
