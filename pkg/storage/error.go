package storage

import "fmt"

// NotFoundError indicates the requested record does not exist for the
// tenant.
type NotFoundError struct {
	TenantID string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found for tenant %q", e.ID, e.TenantID)
}

// AlreadyExistsError indicates an Insert collided with an existing ID.
type AlreadyExistsError struct {
	TenantID string
	ID       string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("record %q already exists for tenant %q", e.ID, e.TenantID)
}

// StorageError wraps backend failures (I/O, SQL) that are not a semantic
// miss. Retry decorators key on this type.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}
