// Package vector provides interfaces and implementations for the
// vocabulary's nearest-neighbor index.
package vector

import "context"

// Entry is one indexed vocabulary row.
type Entry struct {
	// Position is the row's zero-based position in the vocabulary.
	// Positions double as the tie-break order for equal distances.
	Position int

	// Name is the canonical target identifier at that position.
	Name string

	// Embedding is the normalized vector representation of the name.
	Embedding []float32
}

// Neighbor is one nearest-neighbor search result.
type Neighbor struct {
	// Position is the matched row's vocabulary position.
	Position int

	// Name is the matched canonical target identifier.
	Name string

	// Distance is the squared Euclidean distance to the query. On unit
	// vectors cosine similarity is 1 - Distance/2.
	Distance float32
}

// Driver handles storage and retrieval of the vocabulary index.
type Driver interface {
	// Rebuild replaces the entire index content with the given entries.
	// The index is always derived state: it must be reconstructible from
	// the embedding matrix at any time.
	Rebuild(ctx context.Context, entries []Entry) error

	// Search returns the k nearest entries to the given embedding by
	// squared Euclidean distance, ascending, ties broken by position.
	// When the index holds fewer than k entries, all of them are returned.
	Search(ctx context.Context, embedding []float32, k int) ([]Neighbor, error)

	// Count reports the number of indexed entries.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
