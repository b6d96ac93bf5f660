package vocab

import "errors"

var (
	// ErrCorrupt is returned when a persisted artifact exists but cannot
	// be decoded, or when the vocabulary and embedding matrix disagree.
	// A missing artifact set is the bootstrap case and is not an error.
	ErrCorrupt = errors.New("vocabulary artifacts corrupt")

	// ErrDuplicate is returned when a snapshot would contain duplicate
	// vocabulary entries.
	ErrDuplicate = errors.New("duplicate vocabulary entry")

	// ErrMisaligned is returned when the embedding matrix row count does
	// not match the vocabulary length.
	ErrMisaligned = errors.New("vocabulary and embedding matrix misaligned")
)
