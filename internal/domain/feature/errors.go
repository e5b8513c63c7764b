package feature

import "errors"

// Sentinel kinds for feature extraction.
//
// ErrInsufficientData means "not observed", which callers must treat as a
// hard gate. It is deliberately distinct from a zero feature, which means
// "observed and flat".
var ErrInsufficientData = errors.New("insufficient data")
