package entity

import "fmt"

// decisionStatuses is the closed status set for decision entities.
var decisionStatuses = map[string]bool{
	"proposed":   true,
	"accepted":   true,
	"superseded": true,
	"deprecated": true,
}

// issueStatuses is the closed status set for issue entities.
var issueStatuses = map[string]bool{
	"open":        true,
	"in_progress": true,
	"closed":      true,
}

// ValidateStatus checks status against the closed set for kind. Kinds
// outside the decision/issue closed sets accept any non-empty status
// string: only those two kinds have a defined status vocabulary.
func ValidateStatus(k Kind, status string) error {
	switch k {
	case KindDecision:
		if !decisionStatuses[status] {
			return fmt.Errorf("invalid status %q for kind %q: must be one of proposed, accepted, superseded, deprecated", status, k)
		}
	case KindIssue:
		if !issueStatuses[status] {
			return fmt.Errorf("invalid status %q for kind %q: must be one of open, in_progress, closed", status, k)
		}
	default:
		if status == "" {
			return fmt.Errorf("status must not be empty for kind %q", k)
		}
	}
	return nil
}
