// Package storage defines the persistence contract for memory records.
// Drivers are tenant-scoped key-value-plus-criteria stores; the layer
// manager owns all lifecycle logic and treats a driver as dumb durable
// state.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/record"
)

// Criteria filters List results. Zero values mean "no filter" for every
// field except Limit, where zero means unlimited.
type Criteria struct {
	// Layer restricts results to a single layer when non-nil.
	Layer *record.Layer

	// Tags requires every listed tag to be present on the record.
	Tags []string

	// MinImportance drops records below the threshold.
	MinImportance float64

	// Project restricts results to one project grouping.
	Project string

	// ModifiedSince returns only records whose LastModified is strictly
	// after the given instant. Sync diffing uses this to bound transfers.
	ModifiedSince time.Time

	// Limit caps the number of returned records.
	Limit int
}

// Driver is the storage contract. All operations are tenant-scoped and
// return deep copies; callers never share memory with the store.
type Driver interface {
	// Insert persists a new record. Inserting an existing ID fails.
	Insert(ctx context.Context, rec *record.MemoryRecord) error

	// Get returns the record by ID or a NotFoundError.
	Get(ctx context.Context, tenantID, id string) (*record.MemoryRecord, error)

	// List returns records matching the criteria, ordered by CreatedAt
	// ascending (ULIDs make this stable across nodes).
	List(ctx context.Context, tenantID string, c Criteria) ([]*record.MemoryRecord, error)

	// Update overwrites an existing record in place, keyed by ID.
	Update(ctx context.Context, rec *record.MemoryRecord) error

	// Delete removes the record by ID or returns a NotFoundError.
	Delete(ctx context.Context, tenantID, id string) error

	// CountByLayer returns how many records a tenant holds in one layer.
	CountByLayer(ctx context.Context, tenantID string, layer record.Layer) (int, error)

	// FindByContentHash returns the first record with the given content
	// hash, or a NotFoundError. Ingest dedup keys on this.
	FindByContentHash(ctx context.Context, tenantID, hash string) (*record.MemoryRecord, error)

	// Close releases driver resources.
	Close() error
}
