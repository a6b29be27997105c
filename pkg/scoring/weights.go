package scoring

import (
	"math"

	"github.com/papercomputeco/engram/pkg/record"
)

// WeightSumTolerance is how far the weight sum may drift from 1.0 before
// validation rejects the configuration.
const WeightSumTolerance = 1e-5

// Weights combines the components of a final memory score:
//
//	score = Alpha*similarity + Beta*importance + Gamma*recency
//
// The three weights must sum to 1.0 within WeightSumTolerance so scores
// stay normalized in [0, 1].
type Weights struct {
	Alpha float64 `json:"alpha"` // similarity
	Beta  float64 `json:"beta"`  // importance
	Gamma float64 `json:"gamma"` // recency
}

// DefaultWeights favors similarity, then importance, then recency.
func DefaultWeights() Weights {
	return Weights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}
}

// Validate rejects negative weights and sums outside the tolerance band.
func (w Weights) Validate() error {
	if w.Alpha < 0 || w.Beta < 0 || w.Gamma < 0 {
		return record.ValidationError{Field: "weights", Reason: "must be non-negative"}
	}
	sum := w.Alpha + w.Beta + w.Gamma
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return record.ValidationError{Field: "weights", Reason: "must sum to 1.0"}
	}
	return nil
}

// Final computes the weighted score from its components, clamped to [0, 1].
func (w Weights) Final(similarity, importance, recency float64) float64 {
	return Clamp01(w.Alpha*similarity + w.Beta*importance + w.Gamma*recency)
}
