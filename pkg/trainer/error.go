package trainer

import "errors"

var (
	// ErrNoGroundTruth is returned when the mapping document carries no
	// attribute associations to build a vocabulary from.
	ErrNoGroundTruth = errors.New("mapping document contains no attribute associations")
)
