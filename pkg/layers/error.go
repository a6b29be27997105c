package layers

import "fmt"

// ConflictError indicates ingest was rejected because identical content
// already exists for the tenant. ExistingID names the surviving record.
type ConflictError struct {
	TenantID    string
	ExistingID  string
	ContentHash string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("duplicate content for tenant %q, existing record %q", e.TenantID, e.ExistingID)
}
