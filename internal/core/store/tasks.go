package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/types"
)

// TaskStore persists rule application tasks.
//
// Status guards live in the SQL: transition-task, claim-task and
// update-task-progress only touch non-terminal rows, so a terminal state
// can never be re-entered even under concurrent writers. The progress
// flush additionally matches the writer's lease, fencing off workers whose
// task was reclaimed. The partial unique index on (rule_id) over
// pending/running rows backs the one-active-task-per-rule guarantee.
type TaskStore struct {
	q     *db.Queries
	clock clock
}

// NewTaskStore creates a task store over loaded queries.
func NewTaskStore(q *db.Queries) *TaskStore {
	return &TaskStore{q: q, clock: defaultClock}
}

type taskRow struct {
	TaskID           string `db:"task_id"`
	RuleID           string `db:"rule_id"`
	OrganizationID   string `db:"organization_id"`
	Status           string `db:"status"`
	DocumentsScanned int64  `db:"documents_scanned"`
	DocumentsMatched int64  `db:"documents_matched"`
	TagsApplied      int64  `db:"tags_applied"`
	ErrorCount       int64  `db:"error_count"`
	FailureReason    string `db:"failure_reason"`
	CancelRequested  bool   `db:"cancel_requested"`
	ConfirmedEmpty   bool   `db:"confirmed_empty"`
	CursorCreatedAt  string `db:"cursor_created_at"`
	CursorID         string `db:"cursor_id"`
	LeaseExpiresAt   string `db:"lease_expires_at"`
	CreatedAt        string `db:"created_at"`
	UpdatedAt        string `db:"updated_at"`
}

func (r taskRow) toDomain() (*types.RuleApplicationTask, error) {
	createdAt, err := types.ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed created_at for task %s: %w", r.TaskID, err)
	}
	updatedAt, err := types.ParseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed updated_at for task %s: %w", r.TaskID, err)
	}
	lease, err := types.ParseTime(r.LeaseExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("malformed lease_expires_at for task %s: %w", r.TaskID, err)
	}

	return &types.RuleApplicationTask{
		TaskID:         types.TaskID(r.TaskID),
		RuleID:         types.RuleID(r.RuleID),
		OrganizationID: types.OrganizationID(r.OrganizationID),
		Status:         types.TaskStatus(r.Status),
		Progress: types.TaskProgress{
			DocumentsScanned: r.DocumentsScanned,
			DocumentsMatched: r.DocumentsMatched,
			TagsApplied:      r.TagsApplied,
			ErrorCount:       r.ErrorCount,
		},
		FailureReason:   r.FailureReason,
		CancelRequested: r.CancelRequested,
		ConfirmedEmpty:  r.ConfirmedEmpty,
		Cursor: types.DocumentCursor{
			CreatedAt: r.CursorCreatedAt,
			ID:        types.DocumentID(r.CursorID),
		},
		LeaseExpiresAt: lease,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// ErrDuplicateActiveTask signals the partial unique index rejected a second
// active task for the same rule. Callers re-read the existing task.
var ErrDuplicateActiveTask = errors.New("another task is already active for this rule")

// isUniqueViolation detects a unique constraint failure on either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// mattn/go-sqlite3 error text is stable: "UNIQUE constraint failed: ..."
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a task in PENDING state.
// Returns ErrDuplicateActiveTask when the rule already has an active task.
func (s *TaskStore) Create(ctx context.Context, task *types.RuleApplicationTask) error {
	ts := now(s.clock)
	task.Status = types.TaskPending
	task.CreatedAt, _ = types.ParseTime(ts)
	task.UpdatedAt = task.CreatedAt

	_, err := s.q.Exec(ctx, "create-task",
		string(task.TaskID), string(task.RuleID), string(task.OrganizationID),
		string(types.TaskPending), task.ConfirmedEmpty, ts, ts)
	if isUniqueViolation(err) {
		return ErrDuplicateActiveTask
	}
	return err
}

// Get loads one task by id.
func (s *TaskStore) Get(ctx context.Context, id types.TaskID) (*types.RuleApplicationTask, error) {
	return s.get(ctx, "get-task", string(id))
}

// GetForOrganization loads one task scoped to an organization. This is the
// API read path; tenants never see each other's tasks.
func (s *TaskStore) GetForOrganization(ctx context.Context, org types.OrganizationID, id types.TaskID) (*types.RuleApplicationTask, error) {
	return s.get(ctx, "get-task-for-organization", string(id), string(org))
}

func (s *TaskStore) get(ctx context.Context, query string, args ...interface{}) (*types.RuleApplicationTask, error) {
	var row taskRow
	err := s.q.Get(ctx, query, &row, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// FindActiveByRule returns the pending or running task for a rule, or
// types.ErrTaskNotFound when none is active.
func (s *TaskStore) FindActiveByRule(ctx context.Context, rule types.RuleID) (*types.RuleApplicationTask, error) {
	return s.get(ctx, "find-active-task-by-rule", string(rule))
}

// ListClaimable returns tasks ready for pickup: PENDING ones plus RUNNING
// ones whose lease expired (their worker died mid-run).
func (s *TaskStore) ListClaimable(ctx context.Context, limit int) ([]*types.RuleApplicationTask, error) {
	var rows []taskRow
	err := s.q.Select(ctx, "list-claimable-tasks", &rows, now(s.clock), limit)
	if err != nil {
		return nil, err
	}

	tasks := make([]*types.RuleApplicationTask, 0, len(rows))
	for _, row := range rows {
		task, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Claim transitions a claimable task to RUNNING under a fresh lease.
// Returns false when another worker won the race or the task moved on.
func (s *TaskStore) Claim(ctx context.Context, id types.TaskID, leaseUntil time.Time) (bool, error) {
	ts := now(s.clock)
	res, err := s.q.Exec(ctx, "claim-task",
		types.FormatTime(leaseUntil), ts, string(id), ts)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateProgress persists counters, cursor and a refreshed lease after a
// completed batch. The write only lands while the task is RUNNING under
// prevLease, the lease this worker last wrote; a worker that outlived its
// lease and got reclaimed sees false and must stop, otherwise its stale
// counters would rewind the new owner's progress or mutate a terminal task.
func (s *TaskStore) UpdateProgress(ctx context.Context, id types.TaskID, progress types.TaskProgress, cursor types.DocumentCursor, prevLease, leaseUntil time.Time) (bool, error) {
	res, err := s.q.Exec(ctx, "update-task-progress",
		progress.DocumentsScanned, progress.DocumentsMatched,
		progress.TagsApplied, progress.ErrorCount,
		cursor.CreatedAt, string(cursor.ID),
		types.FormatTime(leaseUntil), now(s.clock), string(id),
		types.FormatTime(prevLease))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Transition moves a non-terminal task to the given status.
// Returns types.ErrInvalidTransition when the task is already terminal.
func (s *TaskStore) Transition(ctx context.Context, id types.TaskID, to types.TaskStatus, reason string) error {
	res, err := s.q.Exec(ctx, "transition-task",
		string(to), reason, now(s.clock), string(id))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrInvalidTransition
	}
	return nil
}

// RequestCancel flags a pending or running task for cooperative
// cancellation. Workers observe the flag between batches; associations
// already written stay written.
func (s *TaskStore) RequestCancel(ctx context.Context, org types.OrganizationID, id types.TaskID) error {
	res, err := s.q.Exec(ctx, "request-task-cancel",
		now(s.clock), string(id), string(org))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.GetForOrganization(ctx, org, id); getErr != nil {
			return getErr
		}
		return types.ErrTaskNotCancellable
	}
	return nil
}

// ListByOrganization returns an organization's tasks, newest first.
func (s *TaskStore) ListByOrganization(ctx context.Context, org types.OrganizationID, limit int) ([]*types.RuleApplicationTask, error) {
	var rows []taskRow
	if err := s.q.Select(ctx, "list-tasks-by-organization", &rows, string(org), limit); err != nil {
		return nil, err
	}

	tasks := make([]*types.RuleApplicationTask, 0, len(rows))
	for _, row := range rows {
		task, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SetClock overrides the time source for tests.
func (s *TaskStore) SetClock(f func() time.Time) { s.clock = f }
