package profile

import "errors"

// Validation failures detected before any solid is built. Errors returned by
// this package wrap one of these; test with errors.Is.
var (
	// ErrInvalidProfile marks structural problems: too few points,
	// non-finite values, negative diameters, negative wall thickness.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrDegenerateProfile marks profiles that cannot be swept: an interior
	// zero-radius point, or positions that stay non-monotonic after
	// sanitation.
	ErrDegenerateProfile = errors.New("degenerate profile")

	// ErrInvalidHole marks tone holes outside the bore's domain or whose
	// cutter would have non-positive length or radius.
	ErrInvalidHole = errors.New("invalid hole")
)
