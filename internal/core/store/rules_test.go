package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/tagkeeper/internal/types"
)

func sampleRule(org types.OrganizationID) *types.TaggingRule {
	return &types.TaggingRule{
		RuleID:         types.NewRuleID(),
		OrganizationID: org,
		Name:           "tag invoices",
		Description:    "tags anything mentioning an invoice",
		MatchMode:      "ANY",
		Conditions: []types.Condition{
			{Field: "CONTENT", Operator: "CONTAINS", Value: "invoice"},
			{Field: "NAME", Operator: "ENDS_WITH", Value: ".pdf"},
		},
		Actions: []types.TagAction{{TagID: types.NewTagID()}},
		Enabled: true,
	}
}

func TestRuleCreateGet(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	rules := NewRuleStore(q)

	rule := sampleRule(org)
	if err := rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := rules.Get(context.Background(), org, rule.RuleID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != rule.Name || got.MatchMode != rule.MatchMode || !got.Enabled {
		t.Errorf("Get() = %+v, want name %q mode %q enabled", got, rule.Name, rule.MatchMode)
	}
	if !reflect.DeepEqual(got.Conditions, rule.Conditions) {
		t.Errorf("Get() conditions = %+v, want %+v", got.Conditions, rule.Conditions)
	}
	if !reflect.DeepEqual(got.Actions, rule.Actions) {
		t.Errorf("Get() actions = %+v, want %+v", got.Actions, rule.Actions)
	}
}

func TestRuleGetScopedToOrganization(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	other := seedOrganization(t, q)
	rules := NewRuleStore(q)

	rule := sampleRule(org)
	if err := rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := rules.Get(context.Background(), other, rule.RuleID); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("Get() from other organization error = %v, want ErrRuleNotFound", err)
	}
}

func TestRuleUpdate(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	rules := NewRuleStore(q)

	rule := sampleRule(org)
	if err := rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rule.Name = "tag receipts"
	rule.Conditions = []types.Condition{{Field: "CONTENT", Operator: "CONTAINS", Value: "receipt"}}
	rule.Enabled = false
	if err := rules.Update(context.Background(), rule); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := rules.Get(context.Background(), org, rule.RuleID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "tag receipts" || got.Enabled {
		t.Errorf("Get() after update = %q enabled=%v, want %q enabled=false", got.Name, got.Enabled, rule.Name)
	}
	if len(got.Conditions) != 1 || got.Conditions[0].Value != "receipt" {
		t.Errorf("Get() conditions after update = %+v", got.Conditions)
	}

	missing := sampleRule(org)
	if err := rules.Update(context.Background(), missing); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("Update() unknown rule error = %v, want ErrRuleNotFound", err)
	}
}

func TestRuleDelete(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	rules := NewRuleStore(q)

	rule := sampleRule(org)
	if err := rules.Create(context.Background(), rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := rules.Delete(context.Background(), org, rule.RuleID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := rules.Get(context.Background(), org, rule.RuleID); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrRuleNotFound", err)
	}
	if err := rules.Delete(context.Background(), org, rule.RuleID); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrRuleNotFound", err)
	}
}

func TestRuleListEnabledFilters(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	rules := NewRuleStore(q)
	rules.SetClock(stepClock())

	enabled := sampleRule(org)
	disabled := sampleRule(org)
	disabled.Enabled = false
	for _, rule := range []*types.TaggingRule{enabled, disabled} {
		if err := rules.Create(context.Background(), rule); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := rules.List(context.Background(), org)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d rules, want 2", len(all))
	}

	active, err := rules.ListEnabled(context.Background(), org)
	if err != nil {
		t.Fatalf("ListEnabled() error = %v", err)
	}
	if len(active) != 1 || active[0].RuleID != enabled.RuleID {
		t.Errorf("ListEnabled() = %d rules, want only %s", len(active), enabled.RuleID)
	}

	n, err := rules.Count(context.Background(), org)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestRuleListSkipsMalformedRow(t *testing.T) {
	q := testQueries(t)
	org := seedOrganization(t, q)
	rules := NewRuleStore(q)

	good := sampleRule(org)
	if err := rules.Create(context.Background(), good); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Corrupt a second rule's conditions behind the store's back.
	bad := sampleRule(org)
	if err := rules.Create(context.Background(), bad); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := q.DB().Exec(`UPDATE rules SET conditions = 'not json' WHERE rule_id = ?`, string(bad.RuleID)); err != nil {
		t.Fatalf("corrupting rule: %v", err)
	}

	got, err := rules.List(context.Background(), org)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].RuleID != good.RuleID {
		t.Errorf("List() with corrupt row = %d rules, want only %s", len(got), good.RuleID)
	}
}
