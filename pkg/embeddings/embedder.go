// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. Implementations return
// L2-normalized vectors (row norm = 1) so cosine similarity is recoverable
// from squared Euclidean distance as cos = 1 - d/2.
type Embedder interface {
	// Embed converts text into a normalized vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts into normalized vector
	// embeddings, one row per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
