package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/core/events"
	"github.com/solatis/tagkeeper/internal/types"
)

// In-memory fakes for the engine's storage interfaces.

type fakeRuleStore struct {
	mu    sync.Mutex
	rules map[types.RuleID]*types.TaggingRule
}

func newFakeRuleStore(rules ...*types.TaggingRule) *fakeRuleStore {
	s := &fakeRuleStore{rules: make(map[types.RuleID]*types.TaggingRule)}
	for _, r := range rules {
		s.rules[r.RuleID] = r
	}
	return s
}

func (s *fakeRuleStore) Get(ctx context.Context, org types.OrganizationID, id types.RuleID) (*types.TaggingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok || rule.OrganizationID != org {
		return nil, types.ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (s *fakeRuleStore) ListEnabled(ctx context.Context, org types.OrganizationID) ([]*types.TaggingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.TaggingRule
	for _, rule := range s.rules {
		if rule.OrganizationID == org && rule.Enabled {
			copied := *rule
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out, nil
}

func (s *fakeRuleStore) delete(id types.RuleID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
}

func (s *fakeRuleStore) put(rule *types.TaggingRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rule
	s.rules[rule.RuleID] = &copied
}

type fakeDocumentSource struct {
	mu      sync.Mutex
	docs    []types.Document // kept sorted by (created_at, id)
	orgGone bool
	// onBatch runs before each ListBatch, letting tests mutate state mid-scan.
	onBatch func(batch int)
	batches int
}

func newFakeDocumentSource(docs ...types.Document) *fakeDocumentSource {
	s := &fakeDocumentSource{docs: docs}
	sort.Slice(s.docs, func(i, j int) bool {
		ci, cj := types.FormatTime(s.docs[i].CreatedAt), types.FormatTime(s.docs[j].CreatedAt)
		if ci != cj {
			return ci < cj
		}
		return s.docs[i].DocumentID < s.docs[j].DocumentID
	})
	return s
}

func (s *fakeDocumentSource) ListBatch(ctx context.Context, org types.OrganizationID, cursor types.DocumentCursor, limit int) ([]types.Document, error) {
	s.mu.Lock()
	if s.onBatch != nil {
		s.onBatch(s.batches)
	}
	s.batches++
	defer s.mu.Unlock()

	var out []types.Document
	for _, doc := range s.docs {
		if doc.OrganizationID != org {
			continue
		}
		createdAt := types.FormatTime(doc.CreatedAt)
		if createdAt < cursor.CreatedAt {
			continue
		}
		if createdAt == cursor.CreatedAt && doc.DocumentID <= cursor.ID {
			continue
		}
		out = append(out, doc)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeDocumentSource) OrganizationExists(ctx context.Context, org types.OrganizationID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.orgGone, nil
}

type fakeTagWriter struct {
	mu     sync.Mutex
	pairs  map[string]bool // document_id/tag_id
	failOn map[types.TagID]error
}

func newFakeTagWriter() *fakeTagWriter {
	return &fakeTagWriter{pairs: make(map[string]bool), failOn: make(map[types.TagID]error)}
}

func (s *fakeTagWriter) AddTag(ctx context.Context, doc types.DocumentID, tag types.TagID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[tag]; ok {
		return false, err
	}
	key := string(doc) + "/" + string(tag)
	if s.pairs[key] {
		return false, nil
	}
	s.pairs[key] = true
	return true, nil
}

func (s *fakeTagWriter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pairs)
}

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[types.TaskID]*types.RuleApplicationTask
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[types.TaskID]*types.RuleApplicationTask)}
}

func (s *fakeTaskStore) Create(ctx context.Context, task *types.RuleApplicationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.Status = types.TaskPending
	task.CreatedAt = time.Now().UTC()
	copied := *task
	s.tasks[task.TaskID] = &copied
	return nil
}

func (s *fakeTaskStore) Get(ctx context.Context, id types.TaskID) (*types.RuleApplicationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, types.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) FindActiveByRule(ctx context.Context, rule types.RuleID) (*types.RuleApplicationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.RuleID == rule && !task.Status.Terminal() {
			copied := *task
			return &copied, nil
		}
	}
	return nil, types.ErrTaskNotFound
}

func (s *fakeTaskStore) ListClaimable(ctx context.Context, limit int) ([]*types.RuleApplicationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var out []*types.RuleApplicationTask
	for _, task := range s.tasks {
		if task.Status == types.TaskPending ||
			(task.Status == types.TaskRunning && task.LeaseExpiresAt.Before(now)) {
			copied := *task
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeTaskStore) Claim(ctx context.Context, id types.TaskID, leaseUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	claimable := task.Status == types.TaskPending ||
		(task.Status == types.TaskRunning && task.LeaseExpiresAt.Before(time.Now().UTC()))
	if !claimable {
		return false, nil
	}
	task.Status = types.TaskRunning
	task.LeaseExpiresAt = leaseUntil
	return true, nil
}

func (s *fakeTaskStore) UpdateProgress(ctx context.Context, id types.TaskID, progress types.TaskProgress, cursor types.DocumentCursor, prevLease, leaseUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	if task.Status != types.TaskRunning || !task.LeaseExpiresAt.Equal(prevLease) {
		return false, nil
	}
	task.Progress = progress
	task.Cursor = cursor
	task.LeaseExpiresAt = leaseUntil
	return true, nil
}

func (s *fakeTaskStore) Transition(ctx context.Context, id types.TaskID, to types.TaskStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return types.ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return types.ErrInvalidTransition
	}
	task.Status = to
	task.FailureReason = reason
	return nil
}

// setLease overwrites a task's lease, standing in for a reclaim by another
// runner.
func (s *fakeTaskStore) setLease(id types.TaskID, leaseUntil time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.LeaseExpiresAt = leaseUntil
	}
}

func (s *fakeTaskStore) requestCancel(id types.TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.CancelRequested = true
	}
}

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
