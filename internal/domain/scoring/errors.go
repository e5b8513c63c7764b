package scoring

import "errors"

// Sentinel kinds for scoring configuration errors. Weight and gate
// misconfiguration is fatal at construction time, never at scoring time.
var (
	ErrInvalidWeights = errors.New("invalid weight table")
	ErrInvalidGates   = errors.New("invalid gate configuration")
)
