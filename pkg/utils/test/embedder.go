// Package test holds shared test doubles: a deterministic embedder and a
// capturing event sink. Production code never imports this package.
package test

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// MockEmbedderDims is the width of mock embeddings.
const MockEmbedderDims = 8

// MockEmbedder produces deterministic unit vectors derived from a hash of
// the input text. Identical texts embed identically; different texts
// almost always differ.
type MockEmbedder struct {
	// Err, when set, is returned by every call.
	Err error
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return DeterministicEmbedding(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		emb, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, nil
}

func (m *MockEmbedder) Dimensions() int {
	return MockEmbedderDims
}

// DeterministicEmbedding hashes text into a normalized vector.
func DeterministicEmbedding(text string) []float32 {
	h := sha256.Sum256([]byte(text))

	emb := make([]float32, MockEmbedderDims)
	var norm float64
	for i := range emb {
		bits := binary.BigEndian.Uint32(h[i*4 : i*4+4])
		// Spread into [-1, 1].
		v := float64(bits)/float64(math.MaxUint32)*2 - 1
		emb[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		emb[0] = 1
		return emb
	}
	for i := range emb {
		emb[i] = float32(float64(emb[i]) / norm)
	}
	return emb
}
