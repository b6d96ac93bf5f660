package vector

import "errors"

var (
	// ErrNotReady is returned when a search is issued before the index
	// has been built or loaded.
	ErrNotReady = errors.New("vector index not built")

	// ErrConnection is returned when the index backend fails.
	ErrConnection = errors.New("vector index connection failed")
)
