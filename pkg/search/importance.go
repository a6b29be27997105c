package search

import (
	"context"

	"github.com/papercomputeco/engram/pkg/storage"
)

// ImportanceStrategy ranks purely by intrinsic importance, so high-value
// memories surface even when lexical and vector signals miss them.
type ImportanceStrategy struct {
	store storage.Driver
}

func NewImportanceStrategy(store storage.Driver) *ImportanceStrategy {
	return &ImportanceStrategy{store: store}
}

func (s *ImportanceStrategy) Name() string { return "importance" }

func (s *ImportanceStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(recs))
	for _, rec := range recs {
		if rec.Importance <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: rec.ID, Score: rec.Importance})
	}

	sortHits(hits)
	return capHits(hits, req.Limit), nil
}
