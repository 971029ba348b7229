package types

import "github.com/google/uuid"

// NewDocumentID generates a UUIDv7 document identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.Must(uuid.NewV7()).String())
}

// NewTagID generates a UUIDv7 tag identifier.
func NewTagID() TagID {
	return TagID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewTaskID generates a UUIDv7 task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.Must(uuid.NewV7()).String())
}

// NewOrganizationID generates a UUIDv7 organization identifier.
func NewOrganizationID() OrganizationID {
	return OrganizationID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key identifier.
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.Must(uuid.NewV7()).String())
}

// ParseOrganizationID validates and converts a string to OrganizationID.
func ParseOrganizationID(s string) (OrganizationID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return OrganizationID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseTaskID validates and converts a string to TaskID.
func ParseTaskID(s string) (TaskID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return TaskID(s), nil
}

// ParseDocumentID validates and converts a string to DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return DocumentID(s), nil
}

// ParseTagID validates and converts a string to TagID.
func ParseTagID(s string) (TagID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return TagID(s), nil
}
