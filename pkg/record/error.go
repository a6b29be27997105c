package record

import "fmt"

// ValidationError reports a malformed record or parameter. The operation is
// rejected before any mutation, so the caller can correct input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}
