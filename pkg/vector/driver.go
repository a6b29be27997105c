// Package vector defines the similarity index contract. The index only
// maps IDs to embeddings; record state lives in storage, and the two are
// kept consistent by the layer manager.
package vector

import "context"

// Result is a single similarity hit.
type Result struct {
	ID string

	// Score is cosine similarity in [-1, 1]; higher is closer.
	Score float64
}

// Driver is the vector index contract. All operations are tenant-scoped.
type Driver interface {
	// Upsert inserts or replaces the embedding for an ID.
	Upsert(ctx context.Context, tenantID, id string, embedding []float32) error

	// Query returns up to limit IDs ranked by similarity descending. An
	// empty index yields an empty slice, not an error.
	Query(ctx context.Context, tenantID string, embedding []float32, limit int) ([]Result, error)

	// Delete removes the ID from the index. Deleting an absent ID is a
	// no-op so storage deletions stay idempotent.
	Delete(ctx context.Context, tenantID, id string) error

	// Count returns the number of indexed embeddings for a tenant.
	Count(ctx context.Context, tenantID string) (int, error)

	// Close releases index resources.
	Close() error
}
