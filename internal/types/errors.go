package types

import "errors"

// Sentinel errors for TagKeeper operations.
//
// Validation errors are raised at rule create/update time; evaluation never
// sees a rule that fails validation. Not-found errors distinguish fatal task
// conditions (rule deleted mid-run) from transient per-document ones.
var (
	// ErrEmptyConditionValue indicates a condition with a zero-length operand.
	ErrEmptyConditionValue = errors.New("condition value must not be empty")

	// ErrConditionValueTooLong indicates an operand exceeding MaxConditionValueLength.
	ErrConditionValueTooLong = errors.New("condition value exceeds maximum length")

	// ErrUnknownField indicates a condition field outside the closed enum.
	ErrUnknownField = errors.New("unknown condition field")

	// ErrUnknownOperator indicates a condition operator outside the closed enum.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrUnknownMatchMode indicates a match mode other than ALL or ANY.
	ErrUnknownMatchMode = errors.New("unknown condition match mode")

	// ErrRuleNameLength indicates a rule name outside 1-64 characters.
	ErrRuleNameLength = errors.New("rule name must be 1-64 characters")

	// ErrRuleDescriptionTooLong indicates a description exceeding MaxRuleDescriptionLength.
	ErrRuleDescriptionTooLong = errors.New("rule description exceeds maximum length")

	// ErrTooManyConditions indicates a rule exceeding MaxConditionsPerRule.
	ErrTooManyConditions = errors.New("rule has too many conditions")

	// ErrTooManyActions indicates a rule exceeding MaxActionsPerRule.
	ErrTooManyActions = errors.New("rule has too many actions")

	// ErrRuleLimitExceeded indicates an organization at MaxRulesPerOrganization.
	ErrRuleLimitExceeded = errors.New("organization rule limit reached")

	// ErrRuleNotFound indicates the rule does not exist or was deleted.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrDocumentNotFound indicates the document does not exist or was deleted.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTagNotFound indicates the tag does not exist or was deleted.
	ErrTagNotFound = errors.New("tag not found")

	// ErrTaskNotFound indicates the rule application task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrOrganizationNotFound indicates the organization does not exist or was deleted.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrEmptyConditionsUnconfirmed indicates a bulk apply of a rule with no
	// conditions without the explicit match-everything confirmation.
	ErrEmptyConditionsUnconfirmed = errors.New("rule has no conditions; bulk apply requires explicit confirmation")

	// ErrInvalidTransition indicates an attempt to leave a terminal task state.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskNotCancellable indicates a cancel request against a terminal task.
	ErrTaskNotCancellable = errors.New("task is not pending or running")
)
