package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/tagkeeper/internal/core/db"
	"github.com/solatis/tagkeeper/internal/types"
)

// RuleStore persists tagging rules. Conditions and actions are stored as
// JSON arrays in the rules row; callers validate through rules.Compile
// before anything is written here.
type RuleStore struct {
	q     *db.Queries
	clock clock
}

// NewRuleStore creates a rule store over loaded queries.
func NewRuleStore(q *db.Queries) *RuleStore {
	return &RuleStore{q: q, clock: defaultClock}
}

type ruleRow struct {
	RuleID         string `db:"rule_id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
	Description    string `db:"description"`
	MatchMode      string `db:"match_mode"`
	Conditions     string `db:"conditions"`
	Actions        string `db:"actions"`
	Enabled        bool   `db:"enabled"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r ruleRow) toDomain() (*types.TaggingRule, error) {
	var conditions []types.Condition
	if err := json.Unmarshal([]byte(r.Conditions), &conditions); err != nil {
		return nil, fmt.Errorf("malformed conditions for rule %s: %w", r.RuleID, err)
	}
	var actions []types.TagAction
	if err := json.Unmarshal([]byte(r.Actions), &actions); err != nil {
		return nil, fmt.Errorf("malformed actions for rule %s: %w", r.RuleID, err)
	}
	createdAt, err := types.ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed created_at for rule %s: %w", r.RuleID, err)
	}
	updatedAt, err := types.ParseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("malformed updated_at for rule %s: %w", r.RuleID, err)
	}

	return &types.TaggingRule{
		RuleID:         types.RuleID(r.RuleID),
		OrganizationID: types.OrganizationID(r.OrganizationID),
		Name:           r.Name,
		Description:    r.Description,
		MatchMode:      r.MatchMode,
		Conditions:     conditions,
		Actions:        actions,
		Enabled:        r.Enabled,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func marshalRuleParts(rule *types.TaggingRule) (conditions, actions string, err error) {
	condJSON, err := json.Marshal(ruleConditionsOrEmpty(rule.Conditions))
	if err != nil {
		return "", "", err
	}
	actionJSON, err := json.Marshal(ruleActionsOrEmpty(rule.Actions))
	if err != nil {
		return "", "", err
	}
	return string(condJSON), string(actionJSON), nil
}

// nil slices marshal to null; the schema and readers expect [].
func ruleConditionsOrEmpty(c []types.Condition) []types.Condition {
	if c == nil {
		return []types.Condition{}
	}
	return c
}

func ruleActionsOrEmpty(a []types.TagAction) []types.TagAction {
	if a == nil {
		return []types.TagAction{}
	}
	return a
}

// Create persists a new rule. Sets CreatedAt/UpdatedAt on the passed rule.
func (s *RuleStore) Create(ctx context.Context, rule *types.TaggingRule) error {
	conditions, actions, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	ts := now(s.clock)
	rule.CreatedAt, _ = types.ParseTime(ts)
	rule.UpdatedAt = rule.CreatedAt

	_, err = s.q.Exec(ctx, "create-rule",
		string(rule.RuleID), string(rule.OrganizationID),
		rule.Name, rule.Description, rule.MatchMode,
		conditions, actions, rule.Enabled, ts, ts)
	return err
}

// Get loads one rule scoped to an organization.
// Returns types.ErrRuleNotFound when absent or deleted.
func (s *RuleStore) Get(ctx context.Context, org types.OrganizationID, id types.RuleID) (*types.TaggingRule, error) {
	var row ruleRow
	err := s.q.Get(ctx, "get-rule", &row, string(id), string(org))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// List returns all rules for an organization, newest first.
func (s *RuleStore) List(ctx context.Context, org types.OrganizationID) ([]*types.TaggingRule, error) {
	return s.list(ctx, "list-rules-by-organization", org)
}

// ListEnabled returns the enabled rules for an organization in creation
// order. This is the trigger-path read: bounded by MaxRulesPerOrganization,
// no pagination.
func (s *RuleStore) ListEnabled(ctx context.Context, org types.OrganizationID) ([]*types.TaggingRule, error) {
	return s.list(ctx, "list-enabled-rules-by-organization", org)
}

func (s *RuleStore) list(ctx context.Context, query string, org types.OrganizationID) ([]*types.TaggingRule, error) {
	var rows []ruleRow
	if err := s.q.Select(ctx, query, &rows, string(org), types.MaxRulesPerOrganization); err != nil {
		return nil, err
	}

	rules := make([]*types.TaggingRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toDomain()
		if err != nil {
			// Malformed persisted rule: skip, callers must not fail wholesale.
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Count returns the number of rules an organization has.
func (s *RuleStore) Count(ctx context.Context, org types.OrganizationID) (int, error) {
	var n int
	err := s.q.Get(ctx, "count-rules-by-organization", &n, string(org))
	return n, err
}

// Update rewrites a rule's mutable fields.
// Returns types.ErrRuleNotFound when the rule does not exist.
func (s *RuleStore) Update(ctx context.Context, rule *types.TaggingRule) error {
	conditions, actions, err := marshalRuleParts(rule)
	if err != nil {
		return err
	}

	ts := now(s.clock)
	res, err := s.q.Exec(ctx, "update-rule",
		rule.Name, rule.Description, rule.MatchMode,
		conditions, actions, rule.Enabled, ts,
		string(rule.RuleID), string(rule.OrganizationID))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrRuleNotFound
	}
	rule.UpdatedAt, _ = types.ParseTime(ts)
	return nil
}

// Delete removes a rule. Tag associations the rule previously created are
// independent entities and stay untouched.
func (s *RuleStore) Delete(ctx context.Context, org types.OrganizationID, id types.RuleID) error {
	res, err := s.q.Exec(ctx, "delete-rule", string(id), string(org))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// SetClock overrides the time source for tests.
func (s *RuleStore) SetClock(f func() time.Time) { s.clock = f }
