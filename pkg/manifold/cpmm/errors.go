package cpmm

import "errors"

// Errors returned by the share and Kelly calculators. Callers match them with
// errors.Is; the returned errors carry additional context.
var (
	// ErrInvalidState means the market is missing a field required by the
	// computation, or the field has the wrong shape (e.g. a scalar pool on a
	// non-CPMM market).
	ErrInvalidState = errors.New("invalid market state")

	// ErrInvalidOutcome means an outcome other than YES or NO was supplied.
	ErrInvalidOutcome = errors.New("invalid outcome")

	// ErrDomain means a value fell outside the mathematically valid domain,
	// such as the log of a non-positive wealth or a resolution value outside
	// [min, max].
	ErrDomain = errors.New("value outside domain")

	// ErrInvalidArgument means an argument is unusable as given, such as a
	// negative bet or an empty search space.
	ErrInvalidArgument = errors.New("invalid argument")
)
