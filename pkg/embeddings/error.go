package embeddings

import "errors"

var (
	// ErrModelUnavailable is returned when the embedding model or its
	// serving endpoint cannot be reached. There is no degraded path:
	// retrieval and feedback both require embeddings.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")
)
