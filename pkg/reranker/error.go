package reranker

import "errors"

var (
	// ErrNotLoaded is returned when scoring is attempted before the model
	// has been trained or loaded.
	ErrNotLoaded = errors.New("reranker not loaded")

	// ErrNoTrainingData is returned when Train receives an empty or
	// single-class dataset.
	ErrNoTrainingData = errors.New("insufficient training data")
)
