package search

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/storage"
)

// recencyHalflife controls how fast the recency signal fades.
const recencyHalflife = 24 * time.Hour

// RecencyStrategy ranks by how recently a record was touched or created,
// independent of the query text.
type RecencyStrategy struct {
	store storage.Driver
	now   func() time.Time
}

func NewRecencyStrategy(store storage.Driver, now func() time.Time) *RecencyStrategy {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &RecencyStrategy{store: store, now: now}
}

func (s *RecencyStrategy) Name() string { return "recency" }

func (s *RecencyStrategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	hits := make([]Hit, 0, len(recs))
	for _, rec := range recs {
		ref := rec.CreatedAt
		if rec.LastAccessedAt != nil && rec.LastAccessedAt.After(ref) {
			ref = *rec.LastAccessedAt
		}
		age := now.Sub(ref)
		if age < 0 {
			age = 0
		}
		hits = append(hits, Hit{
			ID:    rec.ID,
			Score: 1.0 / (1.0 + age.Seconds()/recencyHalflife.Seconds()),
		})
	}

	sortHits(hits)
	return capHits(hits, req.Limit), nil
}
