package search

import (
	"context"
	"math"

	"github.com/papercomputeco/engram/pkg/storage"
)

// BM25 parameters; the standard Robertson defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// BM25Strategy is the sparse lexical ranker. It scores documents with
// Okapi BM25 computed over the tenant's corpus at query time; corpora are
// per-tenant and small enough that no inverted index is kept.
type BM25Strategy struct {
	store storage.Driver
}

func NewBM25Strategy(store storage.Driver) *BM25Strategy {
	return &BM25Strategy{store: store}
}

func (s *BM25Strategy) Name() string { return "bm25" }

func (s *BM25Strategy) Search(ctx context.Context, req Request) ([]Hit, error) {
	queryTokens := tokenize(req.Query)
	if len(queryTokens) == 0 {
		return []Hit{}, nil
	}

	recs, err := s.store.List(ctx, req.TenantID, storage.Criteria{})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return []Hit{}, nil
	}

	// Term frequencies per document and document frequencies per term.
	docs := make([]map[string]int, len(recs))
	lengths := make([]int, len(recs))
	df := make(map[string]int)
	totalLength := 0

	for i, rec := range recs {
		tokens := tokenize(rec.Content)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		docs[i] = tf
		lengths[i] = len(tokens)
		totalLength += len(tokens)
		for t := range tf {
			df[t]++
		}
	}
	avgLength := float64(totalLength) / float64(len(recs))

	n := float64(len(recs))
	var hits []Hit
	for i, rec := range recs {
		score := 0.0
		for _, term := range queryTokens {
			tf := float64(docs[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(lengths[i])/avgLength))
			score += idf * norm
		}
		if score > 0 {
			hits = append(hits, Hit{ID: rec.ID, Score: score})
		}
	}

	sortHits(hits)
	return capHits(hits, req.Limit), nil
}
