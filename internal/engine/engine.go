// Package engine wires rule evaluation to storage and events: the tag
// action applier, the synchronous document-write trigger, and the bulk
// rule application orchestrator.
//
// Storage dependencies are narrow consumer-side interfaces implemented by
// internal/core/store; tests substitute in-memory fakes.
package engine

import (
	"context"
	"time"

	"github.com/solatis/tagkeeper/internal/types"
)

// RuleSource reads persisted rules.
type RuleSource interface {
	Get(ctx context.Context, org types.OrganizationID, id types.RuleID) (*types.TaggingRule, error)
	ListEnabled(ctx context.Context, org types.OrganizationID) ([]*types.TaggingRule, error)
}

// DocumentSource serves the bulk scan and organization liveness checks.
type DocumentSource interface {
	ListBatch(ctx context.Context, org types.OrganizationID, cursor types.DocumentCursor, limit int) ([]types.Document, error)
	OrganizationExists(ctx context.Context, org types.OrganizationID) (bool, error)
}

// TagWriter creates document-tag associations. AddTag must be idempotent:
// it reports true only for the call that created the association.
type TagWriter interface {
	AddTag(ctx context.Context, doc types.DocumentID, tag types.TagID) (bool, error)
}

// TaskStore persists rule application task state.
type TaskStore interface {
	Create(ctx context.Context, task *types.RuleApplicationTask) error
	Get(ctx context.Context, id types.TaskID) (*types.RuleApplicationTask, error)
	FindActiveByRule(ctx context.Context, rule types.RuleID) (*types.RuleApplicationTask, error)
	ListClaimable(ctx context.Context, limit int) ([]*types.RuleApplicationTask, error)
	Claim(ctx context.Context, id types.TaskID, leaseUntil time.Time) (bool, error)
	// UpdateProgress flushes counters and cursor under a refreshed lease.
	// It reports false when the writer no longer owns the task: the task
	// was reclaimed under a different lease or reached a terminal state.
	UpdateProgress(ctx context.Context, id types.TaskID, progress types.TaskProgress, cursor types.DocumentCursor, prevLease, leaseUntil time.Time) (bool, error)
	Transition(ctx context.Context, id types.TaskID, to types.TaskStatus, reason string) error
}
