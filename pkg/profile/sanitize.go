package profile

import (
	"fmt"
	"math"
)

// DefaultEpsilon is the minimum axial gap, in mm, between consecutive points
// of a sanitized profile. It matches the 0.001 mm offset the measurement
// tooling has always applied to vertical steps. Changing it shifts stepped
// points and therefore changes output geometry slightly.
const DefaultEpsilon = 1e-3

// DefaultDiameterTolerance is the largest diameter difference, in mm, at which
// two coincident points are treated as duplicates rather than a step.
const DefaultDiameterTolerance = 1e-6

// Sanitizer corrects near-vertical steps so that every swept segment has a
// non-zero axial length. The zero value uses the defaults.
type Sanitizer struct {
	Epsilon           float64 // minimum gap between consecutive positions, mm
	DiameterTolerance float64 // diameter delta below which points are duplicates, mm
}

// NewSanitizer returns a Sanitizer with the default tolerances.
func NewSanitizer() Sanitizer {
	return Sanitizer{
		Epsilon:           DefaultEpsilon,
		DiameterTolerance: DefaultDiameterTolerance,
	}
}

// Sanitize applies the default Sanitizer to p.
func Sanitize(p Profile) (Profile, error) {
	return NewSanitizer().Sanitize(p)
}

func (s Sanitizer) epsilon() float64 {
	if s.Epsilon > 0 {
		return s.Epsilon
	}
	return DefaultEpsilon
}

func (s Sanitizer) diameterTolerance() float64 {
	if s.DiameterTolerance > 0 {
		return s.DiameterTolerance
	}
	return DefaultDiameterTolerance
}

// Sanitize returns a copy of p whose positions strictly increase with every
// gap at least Epsilon. Consecutive input points closer than Epsilon are
// merged when their diameters agree, and otherwise the later point is pushed
// forward so the step survives as a steep but non-degenerate segment. Pushing
// a point can crowd its successor, which is then pushed as well; it is never
// merged unless it was already a duplicate in the input.
//
// The input is not modified. Sanitize is deterministic and idempotent.
func (s Sanitizer) Sanitize(p Profile) (Profile, error) {
	if err := checkStructure(p); err != nil {
		return nil, err
	}

	eps := s.epsilon()
	dtol := s.diameterTolerance()
	// Float rounding can leave prev+eps-prev a hair under eps; accept that
	// much so a second pass changes nothing.
	slack := eps * 1e-6

	out := make(Profile, 0, len(p))
	out = append(out, p[0])
	for i := 1; i < len(p); i++ {
		pt := p[i]
		if pt.Position < p[i-1].Position-eps {
			return nil, fmt.Errorf("%w: point %d at %.4f mm precedes point at %.4f mm",
				ErrDegenerateProfile, i, pt.Position, p[i-1].Position)
		}
		prev := out[len(out)-1]
		gap := pt.Position - prev.Position
		rawGap := pt.Position - p[i-1].Position

		switch {
		case gap >= eps-slack:
			out = append(out, pt)
		case rawGap < eps && math.Abs(pt.Diameter-prev.Diameter) <= dtol:
			// Duplicate measurement.
		default:
			// A step, or a point crowded only because its predecessor was
			// pushed.
			pt.Position = prev.Position + eps
			out = append(out, pt)
		}
	}

	if len(out) < 2 {
		return nil, fmt.Errorf("%w: %d distinct point(s) after removing duplicates, need at least 2",
			ErrInvalidProfile, len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Position <= out[i-1].Position {
			return nil, fmt.Errorf("%w: positions not increasing at point %d", ErrDegenerateProfile, i)
		}
	}
	return out, nil
}

// checkStructure rejects profiles that no amount of step correction can fix.
func checkStructure(p Profile) error {
	if len(p) < 2 {
		return fmt.Errorf("%w: %d point(s), need at least 2", ErrInvalidProfile, len(p))
	}
	for i, pt := range p {
		if math.IsNaN(pt.Position) || math.IsInf(pt.Position, 0) {
			return fmt.Errorf("%w: point %d has non-finite position", ErrInvalidProfile, i)
		}
		if math.IsNaN(pt.Diameter) || math.IsInf(pt.Diameter, 0) {
			return fmt.Errorf("%w: point %d has non-finite diameter", ErrInvalidProfile, i)
		}
		if pt.Diameter < 0 {
			return fmt.Errorf("%w: point %d has negative diameter %.4f", ErrInvalidProfile, i, pt.Diameter)
		}
	}
	return nil
}

// IsSanitized reports whether every gap in p is at least eps (within float
// rounding) and positions strictly increase.
func IsSanitized(p Profile, eps float64) bool {
	if len(p) < 2 {
		return false
	}
	slack := eps * 1e-6
	for i := 1; i < len(p); i++ {
		if p[i].Position-p[i-1].Position < eps-slack {
			return false
		}
	}
	return true
}
