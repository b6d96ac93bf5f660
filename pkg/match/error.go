package match

import "errors"

var (
	// ErrNoVocabulary is returned when prediction is invoked before any
	// vocabulary has been trained. An all-unmapped result set would be
	// meaningless, so the engine refuses outright.
	ErrNoVocabulary = errors.New("no trained vocabulary")
)
