// Package profile models the diameter-vs-position measurements that describe
// one surface of an instrument piece, and the piece specifications built from
// them. Profiles are plain data; Sanitize is the only operation that produces
// a new profile, and it never mutates its input.
package profile

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Point is a single measurement along the instrument axis.
type Point struct {
	Position float64 `json:"position"` // mm along the axis
	Diameter float64 `json:"diameter"` // mm
}

// Radius returns half the measured diameter.
func (p Point) Radius() float64 {
	return p.Diameter / 2
}

// Profile is an ordered sequence of measurements for the bore (internal) or
// the outer shell (external) of one piece.
type Profile []Point

// Positions returns the axial positions in order.
func (p Profile) Positions() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Position
	}
	return out
}

// Radii returns the radii in order.
func (p Profile) Radii() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Radius()
	}
	return out
}

// Start returns the smallest axial position, or 0 for an empty profile.
func (p Profile) Start() float64 {
	if len(p) == 0 {
		return 0
	}
	return floats.Min(p.Positions())
}

// End returns the largest axial position, or 0 for an empty profile.
func (p Profile) End() float64 {
	if len(p) == 0 {
		return 0
	}
	return floats.Max(p.Positions())
}

// Interior reports whether z lies strictly inside the profile's domain.
func (p Profile) Interior(z float64) bool {
	if len(p) < 2 {
		return false
	}
	return z > p.Start() && z < p.End()
}

// Clone returns a copy that shares no storage with p.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	copy(out, p)
	return out
}

// Generatrix returns the profile as (radius, position) pairs, the generating
// curve swept around the axis by a kernel.
func (p Profile) Generatrix() [][2]float64 {
	out := make([][2]float64, len(p))
	for i, pt := range p {
		out[i] = [2]float64{pt.Radius(), pt.Position}
	}
	return out
}

// RadiusAt returns the linearly interpolated radius at axial position z.
// Positions outside the domain take the radius of the nearest end point.
// The profile should be sanitized; an unsanitized profile falls back to the
// first segment that brackets z.
func (p Profile) RadiusAt(z float64) float64 {
	switch len(p) {
	case 0:
		return 0
	case 1:
		return p[0].Radius()
	}
	if z <= p[0].Position {
		return p[0].Radius()
	}
	if z >= p[len(p)-1].Position {
		return p[len(p)-1].Radius()
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(p.Positions(), p.Radii()); err == nil {
		return pl.Predict(z)
	}
	return p.bracketRadius(z)
}

// bracketRadius interpolates inside the first segment containing z. Segments
// of zero length return their first radius.
func (p Profile) bracketRadius(z float64) float64 {
	for i := 0; i < len(p)-1; i++ {
		a, b := p[i], p[i+1]
		if a.Position <= z && z <= b.Position {
			dz := b.Position - a.Position
			if math.Abs(dz) < 1e-9 {
				return a.Radius()
			}
			return a.Radius() + (b.Radius()-a.Radius())*(z-a.Position)/dz
		}
	}
	return p[len(p)-1].Radius()
}

// Hash returns a content hash of the profile. Two profiles with identical
// points share a hash; it is the profile identity used by solid caches.
func (p Profile) Hash() string {
	h := sha256.New()
	var buf [16]byte
	for _, pt := range p {
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(pt.Position))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(pt.Diameter))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
