package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solatis/tagkeeper/internal/types"
)

func TestTriggerAppliesOnlyMatchingRules(t *testing.T) {
	org := types.NewOrganizationID()
	invoiceTag, reportTag := types.NewTagID(), types.NewTagID()

	reportRule := &types.TaggingRule{
		RuleID:         types.NewRuleID(),
		OrganizationID: org,
		Name:           "tag reports",
		MatchMode:      "ALL",
		Conditions: []types.Condition{
			{Field: "NAME", Operator: "ENDS_WITH", Value: ".rpt"},
		},
		Actions: []types.TagAction{{TagID: reportTag}},
		Enabled: true,
	}
	ruleStore := newFakeRuleStore(invoiceRule(org, invoiceTag), reportRule)

	writer := newFakeTagWriter()
	publisher := &capturingPublisher{}
	trigger := NewTrigger(ruleStore, NewApplier(writer, publisher, testLogger()), testLogger())

	doc := &types.Document{
		DocumentID:     types.NewDocumentID(),
		OrganizationID: org,
		Name:           "q1.pdf",
		Content:        "INVOICE for services",
	}
	trigger.DocumentWritten(context.Background(), doc)

	assert.Equal(t, 1, writer.count())
	assert.Equal(t, 1, publisher.count())
}

func TestTriggerIgnoresDisabledRules(t *testing.T) {
	org := types.NewOrganizationID()
	rule := invoiceRule(org, types.NewTagID())
	rule.Enabled = false
	ruleStore := newFakeRuleStore(rule)

	writer := newFakeTagWriter()
	trigger := NewTrigger(ruleStore, NewApplier(writer, &capturingPublisher{}, testLogger()), testLogger())

	trigger.DocumentWritten(context.Background(), &types.Document{
		DocumentID:     types.NewDocumentID(),
		OrganizationID: org,
		Content:        "invoice",
	})
	assert.Equal(t, 0, writer.count())
}

func TestTriggerEmptyConditionsNeverMatch(t *testing.T) {
	org := types.NewOrganizationID()
	rule := &types.TaggingRule{
		RuleID:         types.NewRuleID(),
		OrganizationID: org,
		Name:           "catch all",
		MatchMode:      "ALL",
		Actions:        []types.TagAction{{TagID: types.NewTagID()}},
		Enabled:        true,
	}
	ruleStore := newFakeRuleStore(rule)

	writer := newFakeTagWriter()
	trigger := NewTrigger(ruleStore, NewApplier(writer, &capturingPublisher{}, testLogger()), testLogger())

	trigger.DocumentWritten(context.Background(), &types.Document{
		DocumentID:     types.NewDocumentID(),
		OrganizationID: org,
		Name:           "anything.txt",
		Content:        "anything at all",
	})
	assert.Equal(t, 0, writer.count())
}

func TestTriggerSkipsMalformedRule(t *testing.T) {
	org := types.NewOrganizationID()
	goodTag := types.NewTagID()

	malformed := &types.TaggingRule{
		RuleID:         types.NewRuleID(),
		OrganizationID: org,
		Name:           "broken",
		MatchMode:      "ALL",
		Conditions: []types.Condition{
			{Field: "NAME", Operator: "MATCHES_REGEX", Value: ".*"},
		},
		Actions: []types.TagAction{{TagID: types.NewTagID()}},
		Enabled: true,
	}
	ruleStore := newFakeRuleStore(malformed, invoiceRule(org, goodTag))

	writer := newFakeTagWriter()
	trigger := NewTrigger(ruleStore, NewApplier(writer, &capturingPublisher{}, testLogger()), testLogger())

	doc := &types.Document{
		DocumentID:     types.NewDocumentID(),
		OrganizationID: org,
		Content:        "invoice",
	}
	trigger.DocumentWritten(context.Background(), doc)

	// The malformed rule is skipped, the valid rule still applies.
	assert.Equal(t, 1, writer.count())
	has, err := writer.AddTag(context.Background(), doc.DocumentID, goodTag)
	assert.NoError(t, err)
	assert.False(t, has)
}
