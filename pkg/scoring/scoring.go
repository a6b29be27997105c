// Package scoring holds the pure math the engine ranks and consolidates
// with: cosine similarity, strength decay, weighted final scores, and
// reciprocal rank fusion. Nothing in here touches storage or holds state.
package scoring

import (
	"math"
	"time"
)

// Cosine returns the cosine similarity of two vectors in [-1, 1].
//
// Degenerate input is not an error: empty vectors, mismatched lengths, and
// zero-norm vectors all yield exactly 0.0 — similarity is simply undefined
// there and callers treat it as "no signal".
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Decay returns the record strength after elapsed time at the given base
// decay rate (per second). Frequently accessed records decay slower:
//
//	effective = rate / (ln(1 + accessCount) + 1)
//	decayed   = strength * exp(-effective * seconds)
//
// The result is monotonically non-increasing in elapsed time and never
// drops below 0. Negative elapsed time is treated as zero so clock skew
// can never strengthen a record.
func Decay(strength float64, elapsed time.Duration, rate float64, accessCount int) float64 {
	if strength <= 0 {
		return 0
	}

	seconds := elapsed.Seconds()
	if seconds < 0 {
		seconds = 0
	}

	effective := rate
	if accessCount > 0 {
		effective = rate / (math.Log(1+float64(accessCount)) + 1)
	}

	decayed := strength * math.Exp(-effective*seconds)
	return math.Max(0, math.Min(decayed, strength))
}

// Recency maps the time since the record was last touched (or created) to
// [0, 1] using the same access-aware exponential decay as Decay.
func Recency(lastAccessedAt *time.Time, createdAt time.Time, accessCount int, rate float64, now time.Time) float64 {
	ref := createdAt
	if lastAccessedAt != nil {
		ref = *lastAccessedAt
	}
	return Decay(1.0, now.Sub(ref), rate, accessCount)
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
