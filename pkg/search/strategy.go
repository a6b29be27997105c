// Package search defines the retrieval strategy contract and the built-in
// strategies. Each strategy ranks a tenant's records by one signal; the
// hybrid engine fans out across them and fuses the rankings.
package search

import "context"

// Request is a single retrieval query.
type Request struct {
	TenantID string

	// Query is the free-text query.
	Query string

	// Embedding is the precomputed query embedding; nil when the caller
	// has no embedder.
	Embedding []float32

	// Tags steer the graph strategy.
	Tags []string

	// Limit caps per-strategy results.
	Limit int
}

// Hit is one ranked record ID. Scores are strategy-local and only
// meaningful for ordering within one strategy's list.
type Hit struct {
	ID    string
	Score float64
}

// Strategy ranks records for a request. Finding nothing is never an
// error: strategies return an empty slice and errors are reserved for
// backend failures.
type Strategy interface {
	Name() string
	Search(ctx context.Context, req Request) ([]Hit, error)
}
