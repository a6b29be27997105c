package peersync

import "fmt"

// PolicyViolationError indicates a sync payload that failed decryption or
// authentication. The whole batch is rejected; nothing is merged.
type PolicyViolationError struct {
	Reason string
}

func (e PolicyViolationError) Error() string {
	return fmt.Sprintf("sync policy violation: %s", e.Reason)
}
