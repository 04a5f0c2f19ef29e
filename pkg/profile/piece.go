package profile

import (
	"fmt"
	"math"
	"sort"
)

// HoleSpec describes one tone hole drilled through the wall of a piece.
type HoleSpec struct {
	Position   float64 `json:"position"`    // mm along the axis
	Diameter   float64 `json:"diameter"`    // mm, at the outer surface
	TaperAngle float64 `json:"taper_angle"` // degrees, 0 = straight cylinder
}

// PieceSpec is one physical segment of the instrument (head, left body,
// right body, foot). TotalLength and MortiseLength are optional assembly
// metadata.
type PieceSpec struct {
	Name          string     `json:"name"`
	Internal      Profile    `json:"internal"`
	External      Profile    `json:"external"`
	Holes         []HoleSpec `json:"holes,omitempty"`
	TotalLength   *float64   `json:"total_length,omitempty"`
	MortiseLength *float64   `json:"mortise_length,omitempty"`
}

// Length returns a pointer to v, for filling the optional length fields.
func Length(v float64) *float64 {
	return &v
}

// Sanitized returns a copy of the piece with both profiles sanitized by s.
// Hole and length metadata are copied unchanged.
func (ps PieceSpec) Sanitized(s Sanitizer) (PieceSpec, error) {
	internal, err := s.Sanitize(ps.Internal)
	if err != nil {
		return PieceSpec{}, fmt.Errorf("piece %q: internal profile: %w", ps.Name, err)
	}
	external, err := s.Sanitize(ps.External)
	if err != nil {
		return PieceSpec{}, fmt.Errorf("piece %q: external profile: %w", ps.Name, err)
	}
	out := ps
	out.Internal = internal
	out.External = external
	out.Holes = append([]HoleSpec(nil), ps.Holes...)
	return out, nil
}

// Validate checks the geometric invariants of a sanitized piece: the wall
// is never negative and every hole sits strictly inside the bore's domain.
func (ps PieceSpec) Validate() error {
	if err := ValidateWall(ps.Internal, ps.External); err != nil {
		return fmt.Errorf("piece %q: %w", ps.Name, err)
	}
	if err := ps.ValidateHoles(); err != nil {
		return fmt.Errorf("piece %q: %w", ps.Name, err)
	}
	return nil
}

// wallTolerance absorbs interpolation round-off when comparing radii.
const wallTolerance = 1e-9

// ValidateWall checks that the external radius is never smaller than the
// internal radius. Both profiles are sampled at every measured position of
// either profile that lies inside both domains.
func ValidateWall(internal, external Profile) error {
	if len(internal) < 2 || len(external) < 2 {
		return fmt.Errorf("%w: wall check needs two sanitized profiles", ErrInvalidProfile)
	}
	lo := math.Max(internal.Start(), external.Start())
	hi := math.Min(internal.End(), external.End())

	var samples []float64
	for _, z := range append(internal.Positions(), external.Positions()...) {
		if z >= lo && z <= hi {
			samples = append(samples, z)
		}
	}
	sort.Float64s(samples)

	for _, z := range samples {
		ri := internal.RadiusAt(z)
		re := external.RadiusAt(z)
		if re < ri-wallTolerance {
			return fmt.Errorf("%w: external radius %.4f mm is less than internal radius %.4f mm at %.4f mm",
				ErrInvalidProfile, re, ri, z)
		}
	}
	return nil
}

// ValidateHoles checks every hole against the internal profile's domain.
// A hole exactly at the first or last bore sample is rejected.
func (ps PieceSpec) ValidateHoles() error {
	for i, h := range ps.Holes {
		if err := ValidateHole(h, ps.Internal); err != nil {
			return fmt.Errorf("hole %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidateHole checks one hole against the bore profile.
func ValidateHole(h HoleSpec, bore Profile) error {
	if math.IsNaN(h.Position) || math.IsInf(h.Position, 0) ||
		math.IsNaN(h.Diameter) || math.IsInf(h.Diameter, 0) ||
		math.IsNaN(h.TaperAngle) || math.IsInf(h.TaperAngle, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidHole)
	}
	if h.Diameter <= 0 {
		return fmt.Errorf("%w: diameter %.4f mm must be positive", ErrInvalidHole, h.Diameter)
	}
	if math.Abs(h.TaperAngle) >= 90 {
		return fmt.Errorf("%w: taper angle %.2f° must be within (-90°, 90°)", ErrInvalidHole, h.TaperAngle)
	}
	if !bore.Interior(h.Position) {
		return fmt.Errorf("%w: position %.4f mm outside bore domain (%.4f, %.4f)",
			ErrInvalidHole, h.Position, bore.Start(), bore.End())
	}
	return nil
}
