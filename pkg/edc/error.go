package edc

import "errors"

var (
	// ErrParse is returned when a source or mapping document cannot be decoded.
	ErrParse = errors.New("document parse failed")
)
