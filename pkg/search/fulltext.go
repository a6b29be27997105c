package search

import (
	"context"
	"strings"

	"github.com/papercomputeco/engram/pkg/storage"
)

// FulltextStrategy ranks by case-insensitive phrase containment: only
// records containing the whole query match, scored by how much of the
// document the phrase covers.
type FulltextStrategy struct {
	store storage.Driver
}

func NewFulltextStrategy(store storage.Driver) *FulltextStrategy {
	return &FulltextStrategy{store: store}
}

func (s *FulltextStrategy) Name() string { return "fulltext" }

func (s *FulltextStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	phrase := strings.ToLower(strings.TrimSpace(req.Query))
	if phrase == "" {
		return []Hit{}, nil
	}

	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, rec := range recs {
		content := strings.ToLower(rec.Content)
		if !strings.Contains(content, phrase) {
			continue
		}
		// Shorter documents containing the phrase are more about it.
		hits = append(hits, Hit{
			ID:    rec.ID,
			Score: float64(len(phrase)) / float64(len(content)),
		})
	}

	sortHits(hits)
	return capHits(hits, req.Limit), nil
}
