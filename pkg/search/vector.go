package search

import (
	"context"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/vector"
)

// VectorStrategy ranks by embedding similarity.
type VectorStrategy struct {
	index    vector.Driver
	embedder embeddings.Embedder
}

// NewVectorStrategy builds the strategy; embedder may be nil when callers
// always supply query embeddings.
func NewVectorStrategy(index vector.Driver, embedder embeddings.Embedder) *VectorStrategy {
	return &VectorStrategy{index: index, embedder: embedder}
}

func (s *VectorStrategy) Name() string { return "vector" }

func (s *VectorStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	emb := req.Embedding
	if emb == nil {
		if s.embedder == nil {
			return []Hit{}, nil
		}
		var err error
		emb, err = s.embedder.Embed(ctx, req.Query)
		if err != nil {
			return nil, err
		}
	}

	results, err := s.index.Query(ctx, req.TenantID, emb, req.Limit)
	if err != nil {
		if dim, ok := err.(vector.DimensionError); ok {
			return nil, record.ValidationError{Field: "embedding", Reason: dim.Error()}
		}
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{ID: r.ID, Score: r.Score})
	}
	return hits, nil
}
