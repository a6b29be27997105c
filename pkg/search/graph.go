package search

import (
	"context"

	"github.com/samber/lo"

	"github.com/papercomputeco/engram/pkg/record"
	"github.com/papercomputeco/engram/pkg/storage"
)

// neighborDamping discounts records reached through a shared tag rather
// than a direct query-tag match.
const neighborDamping = 0.5

// GraphStrategy walks the implicit tag graph: records carrying a query
// tag score by direct overlap, and records one hop away (sharing a tag
// with a direct match) score at a discount. With no query tags it falls
// back to tokenizing the query and treating tokens as tags.
type GraphStrategy struct {
	store storage.Driver
}

func NewGraphStrategy(store storage.Driver) *GraphStrategy {
	return &GraphStrategy{store: store}
}

func (s *GraphStrategy) Name() string { return "graph" }

func (s *GraphStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	queryTags := req.Tags
	if len(queryTags) == 0 {
		queryTags = tokenize(req.Query)
	}
	if len(queryTags) == 0 {
		return []Hit{}, nil
	}
	wanted := tokenSet(queryTags)

	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	var direct []*record.MemoryRecord
	for _, rec := range recs {
		overlap := lo.CountBy(rec.Tags, func(t string) bool { return wanted[t] })
		if overlap > 0 {
			scores[rec.ID] = float64(overlap) / float64(len(queryTags))
			direct = append(direct, rec)
		}
	}

	// One-hop expansion: tags on the direct matches pull in neighbors.
	frontier := tokenSet(lo.Uniq(lo.FlatMap(direct, func(r *record.MemoryRecord, _ int) []string {
		return r.Tags
	})))
	for _, rec := range recs {
		if _, hit := scores[rec.ID]; hit {
			continue
		}
		overlap := lo.CountBy(rec.Tags, func(t string) bool { return frontier[t] })
		if overlap > 0 {
			scores[rec.ID] = neighborDamping * float64(overlap) / float64(len(frontier))
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, Hit{ID: id, Score: score})
	}
	sortHits(hits)
	return capHits(hits, req.Limit), nil
}
