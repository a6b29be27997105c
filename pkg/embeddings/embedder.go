// Package embeddings defines the text embedding contract.
package embeddings

import "context"

// Embedder turns text into a dense vector. Implementations must be safe
// for concurrent use; the ingest worker pool calls them from many
// goroutines.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input, in order. Drivers
	// without a native batch endpoint loop over Embed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the embedding width, 0 when unknown before the
	// first call.
	Dimensions() int
}
