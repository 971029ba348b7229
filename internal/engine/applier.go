// internal/engine/applier.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/core/events"
	"github.com/solatis/tagkeeper/internal/rules"
	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Tag action applier.
 *
 * Ensures each target tag of a matched rule is associated with the
 * document. Idempotent end to end: the tag writer reports whether this
 * call created the association, and only a creating call emits a
 * document:tag:added event - applying the same rule to the same document
 * twice yields one association and one event.
 *
 * Per-action failures (tag deleted concurrently, write race) are counted
 * and logged; the remaining actions of the document still run. Event
 * publishing is fire-and-forget: a failed publish is logged, never
 * surfaced, and never blocks tag writes.
 */

// ApplyResult reports what one rule application did to one document.
type ApplyResult struct {
	Added  []types.TagID // associations created by this call
	Errors int           // actions that failed
}

// Applier attaches a matched rule's target tags to a document.
type Applier struct {
	tags   TagWriter
	events events.Publisher
	logger *zap.Logger
}

// NewApplier creates an applier over a tag writer and event publisher.
func NewApplier(tags TagWriter, publisher events.Publisher, logger *zap.Logger) *Applier {
	return &Applier{tags: tags, events: publisher, logger: logger}
}

// Apply ensures every action tag of the rule is associated with the
// document, emitting one event per new association.
func (a *Applier) Apply(ctx context.Context, rule *rules.CompiledRule, doc *types.Document) ApplyResult {
	var result ApplyResult

	for _, tagID := range rule.Actions {
		created, err := a.tags.AddTag(ctx, doc.DocumentID, tagID)
		if err != nil {
			result.Errors++
			a.logger.Warn("tag association failed",
				zap.String("document_id", string(doc.DocumentID)),
				zap.String("tag_id", string(tagID)),
				zap.String("rule_id", string(rule.RuleID)),
				zap.Error(err))
			continue
		}
		if !created {
			// Already tagged: no-op, no event.
			continue
		}

		result.Added = append(result.Added, tagID)

		event := events.Event{
			Type:           events.EventTagAdded,
			OrganizationID: doc.OrganizationID,
			DocumentID:     doc.DocumentID,
			TagID:          tagID,
			RuleID:         rule.RuleID,
			OccurredAt:     time.Now().UTC(),
		}
		if err := a.events.Publish(ctx, event); err != nil {
			a.logger.Warn("event publish failed",
				zap.String("document_id", string(doc.DocumentID)),
				zap.String("tag_id", string(tagID)),
				zap.Error(err))
		}
	}

	return result
}
