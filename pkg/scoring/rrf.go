package scoring

import "sort"

// DefaultRRFK is the standard reciprocal rank fusion constant.
const DefaultRRFK = 60

// RankedID is one entry of a single strategy's ranked output. Position in
// the slice is the rank (0-based in Go, 1-based in the formula).
type RankedID struct {
	ID    string
	Score float64
}

// FusedResult is one entry of the fused ranking.
type FusedResult struct {
	ID string

	// Score is the summed reciprocal rank contribution across strategies.
	Score float64

	// Strategies counts how many strategy lists contained the ID.
	Strategies int
}

// FuseRRF merges per-strategy rankings with weighted reciprocal rank
// fusion:
//
//	fused(id) = Σ over strategies containing id of weight / (k + rank)
//
// where rank is 1-based. Strategies missing from weights contribute with
// weight 1.0; k falls back to DefaultRRFK when non-positive. The output is
// sorted by fused score descending, with ties broken by strategy count
// descending and then by ID ascending so the ordering is deterministic.
func FuseRRF(rankings map[string][]RankedID, weights map[string]float64, k int) []FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	fused := make(map[string]*FusedResult)
	for strategy, ranked := range rankings {
		weight := 1.0
		if w, ok := weights[strategy]; ok {
			weight = w
		}
		for i, entry := range ranked {
			f, ok := fused[entry.ID]
			if !ok {
				f = &FusedResult{ID: entry.ID}
				fused[entry.ID] = f
			}
			f.Score += weight / float64(k+i+1)
			f.Strategies++
		}
	}

	out := make([]FusedResult, 0, len(fused))
	for _, f := range fused {
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Strategies != out[j].Strategies {
			return out[i].Strategies > out[j].Strategies
		}
		return out[i].ID < out[j].ID
	})

	return out
}
