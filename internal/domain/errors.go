package domain

import "errors"

// Fatal error classes. InsufficientHistory is intentionally absent: users
// with fewer rows than the look-ahead window are omitted from labels, never
// surfaced as an error. Optimizer non-convergence is recoverable and carried
// in the metrics document instead.
var (
	ErrInputMissing    = errors.New("required input file missing")
	ErrSchemaInvalid   = errors.New("input schema invalid")
	ErrDegenerateSplit = errors.New("fewer than 2 distinct dates, no temporal split possible")
)
