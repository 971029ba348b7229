// internal/types/task.go
package types

import "time"

/*
 * Rule application task state.
 *
 * A RuleApplicationTask is the asynchronous unit of work for one bulk
 * "apply rule to existing documents" run. Status transitions are one-way:
 *
 *   PENDING -> RUNNING -> {COMPLETED | FAILED | CANCELLED}
 *   PENDING -> CANCELLED (cancelled before pickup)
 *
 * Terminal states are immutable. Progress counters only ever increase;
 * cancellation never rewinds them because tag associations already written
 * stay written.
 */

// TaskStatus is the lifecycle state of a rule application task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case TaskPending:
		return to == TaskRunning || to == TaskCancelled || to == TaskFailed
	case TaskRunning:
		return to == TaskCompleted || to == TaskFailed || to == TaskCancelled
	}
	return false
}

// TaskProgress holds the monotonically non-decreasing progress counters.
type TaskProgress struct {
	DocumentsScanned int64
	DocumentsMatched int64
	TagsApplied      int64
	ErrorCount       int64
}

// DocumentCursor marks the position of a bulk scan in (created_at, id)
// order. The ordering key is stable, so the scan makes forward progress
// even when documents are created concurrently, and a resumed task
// continues where the last completed batch left off.
type DocumentCursor struct {
	CreatedAt string // canonical TimeFormat, lexicographically ordered
	ID        DocumentID
}

// Zero reports whether the cursor is at the start of the scan.
func (c DocumentCursor) Zero() bool {
	return c.CreatedAt == "" && c.ID == ""
}

// RuleApplicationTask is the persisted state of one bulk run, tied to a
// single (rule, organization) pair. At most one non-terminal task exists
// per rule at any time.
type RuleApplicationTask struct {
	TaskID          TaskID
	RuleID          RuleID
	OrganizationID  OrganizationID
	Status          TaskStatus
	Progress        TaskProgress
	FailureReason   string // set when Status is TaskFailed
	CancelRequested bool   // cooperative: workers observe it between batches
	ConfirmedEmpty  bool   // the user confirmed a zero-condition tag-everything run
	Cursor          DocumentCursor
	LeaseExpiresAt  time.Time // heartbeat; expired RUNNING tasks are reclaimable
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
