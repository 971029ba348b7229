// internal/engine/orchestrator.go
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/tagkeeper/internal/rules"
	"github.com/solatis/tagkeeper/internal/types"
)

/*
 * Bulk rule application orchestrator.
 *
 * Apply creates a PENDING task and returns its id immediately; Run hosts
 * the background workers that claim tasks, scan the organization's
 * documents in stable (created_at, id) cursor order, and push every
 * document through matcher and applier under a bounded worker pool.
 *
 * Task invariants enforced here:
 *   - at most one active task per rule: Apply returns the existing active
 *     task id instead of creating a duplicate (the partial unique index
 *     closes the create race)
 *   - counters only grow; cancellation never rewinds them
 *   - rule/organization deletion is detected on the next batch and fails
 *     the task with a reason
 *   - per-document errors count toward error_count but the scan still
 *     COMPLETEs; only unrecoverable errors FAIL the task
 *   - cancellation is cooperative: the flag is observed between batches,
 *     an in-flight batch finishes, no document is stopped mid-processing
 *
 * Crash recovery: each progress flush refreshes the task lease. A RUNNING
 * task whose lease expired is claimable again and resumes from the
 * persisted cursor; idempotent tag writes make re-processing a partial
 * batch harmless. The flush is fenced on the writer's lease, so a slow
 * worker that outlived its lease stops at its next flush instead of
 * rewinding the new owner's counters.
 */

// Config bounds the orchestrator's resource usage. All limits are fixed
// configuration, never derived from corpus size.
type Config struct {
	Workers            int           // per-task document worker pool size
	BatchSize          int           // documents fetched per cursor page
	MaxConcurrentTasks int           // tasks one process runs at a time
	LeaseDuration      time.Duration // heartbeat window before a task is reclaimable
	PollInterval       time.Duration // claim loop period
}

// Orchestrator runs bulk rule application tasks.
type Orchestrator struct {
	rules   RuleSource
	docs    DocumentSource
	tasks   TaskStore
	applier *Applier
	cfg     Config
	logger  *zap.Logger
}

// NewOrchestrator wires the bulk engine.
func NewOrchestrator(ruleSource RuleSource, docs DocumentSource, tasks TaskStore, applier *Applier, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		rules:   ruleSource,
		docs:    docs,
		tasks:   tasks,
		applier: applier,
		cfg:     cfg,
		logger:  logger,
	}
}

// Apply requests bulk application of a rule to the organization's existing
// documents and returns the task id without waiting for the work.
//
// A rule with zero conditions matches every document on this path, so it
// requires confirmEmpty; without it ErrEmptyConditionsUnconfirmed is
// returned and nothing is created. When the rule already has an active
// task, that task's id is returned instead of starting a duplicate.
func (o *Orchestrator) Apply(ctx context.Context, org types.OrganizationID, ruleID types.RuleID, confirmEmpty bool) (types.TaskID, error) {
	rule, err := o.rules.Get(ctx, org, ruleID)
	if err != nil {
		return "", err
	}

	if len(rule.Conditions) == 0 && !confirmEmpty {
		return "", types.ErrEmptyConditionsUnconfirmed
	}

	if existing, err := o.tasks.FindActiveByRule(ctx, ruleID); err == nil {
		return existing.TaskID, nil
	} else if !errors.Is(err, types.ErrTaskNotFound) {
		return "", err
	}

	task := &types.RuleApplicationTask{
		TaskID:         types.NewTaskID(),
		RuleID:         ruleID,
		OrganizationID: org,
		// Recorded only when the rule was empty at request time, so a rule
		// edited down to zero conditions mid-run is never treated as a
		// confirmed tag-everything run.
		ConfirmedEmpty: confirmEmpty && len(rule.Conditions) == 0,
	}
	if err := o.tasks.Create(ctx, task); err != nil {
		// Lost the create race: the unique active-task index rejected us,
		// so the winner's task is the answer.
		if existing, findErr := o.tasks.FindActiveByRule(ctx, ruleID); findErr == nil {
			return existing.TaskID, nil
		}
		return "", err
	}

	return task.TaskID, nil
}

// Run claims and executes tasks until the context is cancelled. Shutdown
// leaves claimed tasks RUNNING under their lease; they are reclaimed and
// resumed from the persisted cursor on the next start.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	slots := make(chan struct{}, o.cfg.MaxConcurrentTasks)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}

		claimable, err := o.tasks.ListClaimable(ctx, o.cfg.MaxConcurrentTasks)
		if err != nil {
			o.logger.Error("listing claimable tasks failed", zap.Error(err))
			continue
		}

		for _, task := range claimable {
			select {
			case slots <- struct{}{}:
			default:
				// All task slots busy; retry next tick.
				continue
			}

			lease := time.Now().UTC().Add(o.cfg.LeaseDuration)
			claimed, err := o.tasks.Claim(ctx, task.TaskID, lease)
			if err != nil || !claimed {
				<-slots
				if err != nil {
					o.logger.Error("claiming task failed",
						zap.String("task_id", string(task.TaskID)), zap.Error(err))
				}
				continue
			}

			task.LeaseExpiresAt = lease
			wg.Add(1)
			go func(task *types.RuleApplicationTask) {
				defer wg.Done()
				defer func() { <-slots }()
				o.runTask(ctx, task)
			}(task)
		}
	}
}

// failTask moves the task to FAILED with a reason, tolerating a concurrent
// terminal transition.
func (o *Orchestrator) failTask(ctx context.Context, id types.TaskID, reason string) {
	if err := o.tasks.Transition(ctx, id, types.TaskFailed, reason); err != nil && !errors.Is(err, types.ErrInvalidTransition) {
		o.logger.Error("failing task failed",
			zap.String("task_id", string(id)), zap.Error(err))
	}
}

// runTask drives one claimed task to a terminal state, or leaves it
// resumable when the context is cancelled mid-run.
func (o *Orchestrator) runTask(ctx context.Context, task *types.RuleApplicationTask) {
	logger := o.logger.With(
		zap.String("task_id", string(task.TaskID)),
		zap.String("rule_id", string(task.RuleID)),
		zap.String("organization_id", string(task.OrganizationID)))
	logger.Info("bulk rule application started",
		zap.Int64("resumed_at_scanned", task.Progress.DocumentsScanned))

	// Counters resume from persisted progress and only ever increase.
	scanned := atomic.NewInt64(task.Progress.DocumentsScanned)
	matched := atomic.NewInt64(task.Progress.DocumentsMatched)
	applied := atomic.NewInt64(task.Progress.TagsApplied)
	errCount := atomic.NewInt64(task.Progress.ErrorCount)

	cursor := task.Cursor
	// The lease written at claim time fences this worker's progress
	// flushes; a reclaim invalidates it.
	lease := task.LeaseExpiresAt

	for {
		if ctx.Err() != nil {
			// Shutdown: stay RUNNING, lease expiry makes the task claimable again.
			return
		}

		fresh, err := o.tasks.Get(ctx, task.TaskID)
		if err != nil {
			logger.Error("reloading task failed", zap.Error(err))
			return
		}
		if fresh.Status.Terminal() {
			return
		}
		if fresh.CancelRequested {
			if err := o.tasks.Transition(ctx, task.TaskID, types.TaskCancelled, ""); err != nil {
				logger.Error("cancelling task failed", zap.Error(err))
			}
			logger.Info("bulk rule application cancelled",
				zap.Int64("documents_scanned", scanned.Load()))
			return
		}

		// Refetch the rule every batch: deletion mid-run is a fatal task
		// error, and edits take effect on the next batch.
		rule, err := o.rules.Get(ctx, task.OrganizationID, task.RuleID)
		if errors.Is(err, types.ErrRuleNotFound) {
			o.failTask(ctx, task.TaskID, "rule deleted while task was running")
			return
		}
		if err != nil {
			o.failTask(ctx, task.TaskID, "loading rule failed: "+err.Error())
			return
		}

		orgAlive, err := o.docs.OrganizationExists(ctx, task.OrganizationID)
		if err != nil {
			o.failTask(ctx, task.TaskID, "checking organization failed: "+err.Error())
			return
		}
		if !orgAlive {
			o.failTask(ctx, task.TaskID, "organization deleted while task was running")
			return
		}

		compiled, err := rules.Compile(rule)
		if err != nil {
			o.failTask(ctx, task.TaskID, "rule no longer compiles: "+err.Error())
			return
		}
		// A rule edited down to zero conditions would match everything; the
		// user never confirmed that for this task, so it is as fatal as a
		// deletion.
		if len(compiled.Conditions) == 0 && !task.ConfirmedEmpty {
			o.failTask(ctx, task.TaskID, "rule conditions removed while task was running")
			return
		}

		batch, err := o.docs.ListBatch(ctx, task.OrganizationID, cursor, o.cfg.BatchSize)
		if err != nil {
			o.failTask(ctx, task.TaskID, "document scan failed: "+err.Error())
			return
		}
		if len(batch) == 0 {
			if err := o.tasks.Transition(ctx, task.TaskID, types.TaskCompleted, ""); err != nil && !errors.Is(err, types.ErrInvalidTransition) {
				logger.Error("completing task failed", zap.Error(err))
			}
			logger.Info("bulk rule application completed",
				zap.Int64("documents_scanned", scanned.Load()),
				zap.Int64("documents_matched", matched.Load()),
				zap.Int64("tags_applied", applied.Load()),
				zap.Int64("errors", errCount.Load()))
			return
		}

		// Bounded worker pool over the batch. No ordering guarantee within
		// a batch; only the cursor order across batches matters.
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(o.cfg.Workers)
		for i := range batch {
			doc := batch[i]
			group.Go(func() error {
				scanned.Inc()
				if !rules.Matches(compiled, &doc, rules.EmptyMatchesAll) {
					return nil
				}
				matched.Inc()
				result := o.applier.Apply(groupCtx, compiled, &doc)
				applied.Add(int64(len(result.Added)))
				errCount.Add(int64(result.Errors))
				return nil
			})
		}
		group.Wait()

		last := batch[len(batch)-1]
		cursor = types.DocumentCursor{
			CreatedAt: types.FormatTime(last.CreatedAt),
			ID:        last.DocumentID,
		}

		progress := types.TaskProgress{
			DocumentsScanned: scanned.Load(),
			DocumentsMatched: matched.Load(),
			TagsApplied:      applied.Load(),
			ErrorCount:       errCount.Load(),
		}
		leaseUntil := time.Now().UTC().Add(o.cfg.LeaseDuration)
		ok, err := o.tasks.UpdateProgress(ctx, task.TaskID, progress, cursor, lease, leaseUntil)
		if err != nil {
			// Progress flush failure is not fatal: the worst case is
			// re-processing this batch after a reclaim, which idempotent
			// tag writes absorb. The old lease stays valid for the next
			// flush because the failed write changed nothing.
			logger.Warn("persisting task progress failed", zap.Error(err))
			continue
		}
		if !ok {
			// The task was reclaimed or finished under another worker.
			// Stop without touching it: the new owner's counters are newer
			// than ours.
			logger.Warn("task no longer owned by this worker, stopping",
				zap.Int64("documents_scanned", scanned.Load()))
			return
		}
		lease = leaseUntil
	}
}
