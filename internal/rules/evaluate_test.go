// internal/rules/evaluate_test.go
package rules

import (
	"testing"

	"github.com/solatis/tagkeeper/internal/types"
)

func TestEvaluateCondition_CaseInsensitive(t *testing.T) {
	cond := mustCompileCondition(t, types.Condition{
		Field:    "NAME",
		Operator: "EQUAL",
		Value:    "Invoice",
	})

	doc := &types.Document{Name: "invoice"}
	if !EvaluateCondition(cond, doc) {
		t.Errorf("EvaluateCondition() = false, want true")
	}

	doc = &types.Document{Name: "INVOICE"}
	if !EvaluateCondition(cond, doc) {
		t.Errorf("EvaluateCondition() = false, want true for upper-case name")
	}
}

func TestEvaluateCondition_Operators(t *testing.T) {
	doc := &types.Document{
		Name:    "March-Invoice.pdf",
		Content: "Dear Customer, your order shipped.",
	}

	tests := []struct {
		name string
		cond types.Condition
		want bool
	}{
		{"equal match", types.Condition{Field: "NAME", Operator: "EQUAL", Value: "march-invoice.PDF"}, true},
		{"equal mismatch", types.Condition{Field: "NAME", Operator: "EQUAL", Value: "invoice"}, false},
		{"not equal", types.Condition{Field: "NAME", Operator: "NOT_EQUAL", Value: "report.pdf"}, true},
		{"contains", types.Condition{Field: "NAME", Operator: "CONTAINS", Value: "invoice"}, true},
		{"contains mismatch", types.Condition{Field: "NAME", Operator: "CONTAINS", Value: "receipt"}, false},
		{"not contains", types.Condition{Field: "NAME", Operator: "NOT_CONTAINS", Value: "receipt"}, true},
		{"starts with", types.Condition{Field: "CONTENT", Operator: "STARTS_WITH", Value: "dear customer"}, true},
		{"starts with mismatch", types.Condition{Field: "CONTENT", Operator: "STARTS_WITH", Value: "customer"}, false},
		{"ends with", types.Condition{Field: "NAME", Operator: "ENDS_WITH", Value: ".pdf"}, true},
		{"ends with mismatch", types.Condition{Field: "NAME", Operator: "ENDS_WITH", Value: ".docx"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := mustCompileCondition(t, tt.cond)
			if got := EvaluateCondition(cond, doc); got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCondition_EmptyContent(t *testing.T) {
	// Content not yet extracted is the empty string, never a special case.
	doc := &types.Document{Name: "scan.pdf", Content: ""}

	tests := []struct {
		operator string
		want     bool
	}{
		{"EQUAL", false},
		{"NOT_EQUAL", true},
		{"CONTAINS", false},
		{"NOT_CONTAINS", true},
		{"STARTS_WITH", false},
		{"ENDS_WITH", false},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			cond := mustCompileCondition(t, types.Condition{
				Field:    "CONTENT",
				Operator: tt.operator,
				Value:    "anything",
			})
			if got := EvaluateCondition(cond, doc); got != tt.want {
				t.Errorf("EvaluateCondition(%s, empty content) = %v, want %v", tt.operator, got, tt.want)
			}
		})
	}
}

func TestCompare_UnspecifiedOperator(t *testing.T) {
	if Compare(OpUnspecified, "a", "a") {
		t.Errorf("Compare(OpUnspecified) = true, want false")
	}
}

// mustCompileCondition compiles a single condition through the public Compile
// path so tests exercise the same normalization production uses.
func mustCompileCondition(t *testing.T, cond types.Condition) CompiledCondition {
	t.Helper()
	rule := &types.TaggingRule{
		Name:       "test-rule",
		MatchMode:  "ALL",
		Conditions: []types.Condition{cond},
	}
	compiled, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	return compiled.Conditions[0]
}
