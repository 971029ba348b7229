// Package events hands tag-association events off to a delivery subsystem.
//
// Emission is fire-and-forget: the engine produces an event and moves on;
// delivery retries, webhook fan-out and activity-log persistence belong to
// the consumer of the stream. A slow or failing delivery pipeline must never
// slow down rule evaluation, so publishers are expected to be cheap and
// callers only log publish errors.
package events

import (
	"context"
	"time"

	"github.com/solatis/tagkeeper/internal/types"
)

// EventTagAdded is emitted once per newly created document-tag association.
const EventTagAdded = "document:tag:added"

// Event is one outbound engine event.
type Event struct {
	Type           string               `json:"type"`
	OrganizationID types.OrganizationID `json:"organization_id"`
	DocumentID     types.DocumentID     `json:"document_id"`
	TagID          types.TagID          `json:"tag_id"`
	RuleID         types.RuleID         `json:"rule_id,omitempty"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// Publisher hands one event to the delivery subsystem.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events. Used when no event stream is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
