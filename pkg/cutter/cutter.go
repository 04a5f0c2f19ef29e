// Package cutter builds the solids subtracted from a hollow piece to open
// its tone holes.
//
// A cutter is drilled along +X, centered on the hole's axial position. It
// starts margin below the bore surface (never past the axis) and ends margin
// beyond the outer surface, so the hole always goes through the wall.
//
// Straight holes (taper angle 0) are right cylinders of the hole diameter.
// Tapered holes are frusta with radius diameter/2 where they cross the
// outer surface and a half-angle equal to the taper angle. The configured
// Direction decides which way they open up:
//
//	WidenInward  the hole grows toward the bore (an undercut). Default.
//	WidenOutward the hole grows toward the exterior (a chamfer-like flare).
package cutter

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/profile"
)

// DefaultMargin is how far, in mm, a cutter extends beyond the outer
// surface.
const DefaultMargin = 2.0

// TaperDirection selects which end of a tapered cutter is wider.
type TaperDirection int

const (
	WidenInward TaperDirection = iota
	WidenOutward
)

func (d TaperDirection) String() string {
	switch d {
	case WidenInward:
		return "widen-inward"
	case WidenOutward:
		return "widen-outward"
	default:
		return fmt.Sprintf("TaperDirection(%d)", int(d))
	}
}

// ParseTaperDirection parses "widen-inward" or "widen-outward".
func ParseTaperDirection(s string) (TaperDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "widen-inward", "inward":
		return WidenInward, nil
	case "widen-outward", "outward":
		return WidenOutward, nil
	default:
		return 0, fmt.Errorf("unknown taper direction %q", s)
	}
}

// Geometry is the resolved shape of one cutter. Distances along the cutter
// are measured from the instrument axis.
type Geometry struct {
	Index         int     // 1-based hole number
	Position      float64 // axial position, mm
	Start         float64 // distance of the inner end from the axis, mm
	Length        float64 // from Start to margin past the outer surface, mm
	RadiusInner   float64 // radius at the inner end, mm
	RadiusBore    float64 // radius where the cutter crosses the bore, mm
	RadiusSurface float64 // radius where the cutter crosses the outer surface, mm
	RadiusFar     float64 // radius at the outer end, mm
}

// Tapered reports whether the cutter is a frustum.
func (g Geometry) Tapered() bool {
	return g.RadiusInner != g.RadiusFar
}

// End is the distance of the outer end from the axis.
func (g Geometry) End() float64 {
	return g.Start + g.Length
}

// HalfWidth is the largest radius along the cutter; the cutter's axial
// footprint is Position +- HalfWidth.
func (g Geometry) HalfWidth() float64 {
	return math.Max(g.RadiusSurface, math.Max(g.RadiusInner, g.RadiusFar))
}

// Generator builds cutters on a kernel.
type Generator struct {
	Kernel    kernel.Kernel
	Margin    float64 // mm beyond the outer surface; <= 0 uses DefaultMargin
	Direction TaperDirection
	Segments  int // angular resolution of each cutter; <= 0 is smooth
}

// NewGenerator returns a Generator with the default margin and direction.
func NewGenerator(k kernel.Kernel, segments int) *Generator {
	return &Generator{Kernel: k, Margin: DefaultMargin, Direction: WidenInward, Segments: segments}
}

func (g *Generator) margin() float64 {
	if g.Margin > 0 {
		return g.Margin
	}
	return DefaultMargin
}

// Geometry resolves hole h against the bore and outer radii at its
// position.
func (g *Generator) Geometry(h profile.HoleSpec, internalRadius, externalRadius float64) (Geometry, error) {
	margin := g.margin()
	start := math.Max(0, internalRadius-margin)
	end := externalRadius + margin
	if !(end-start > 0) || math.IsInf(end, 0) || math.IsNaN(start) {
		return Geometry{}, fmt.Errorf("%w: cutter length %.4f mm is not positive", profile.ErrInvalidHole, end-start)
	}

	r := h.Diameter / 2
	geo := Geometry{
		Position:      h.Position,
		RadiusInner:   r,
		RadiusBore:    r,
		RadiusSurface: r,
		RadiusFar:     r,
	}
	if h.TaperAngle != 0 {
		// Radius grows by slope per mm moving toward the axis.
		slope := math.Tan(h.TaperAngle * math.Pi / 180)
		if g.Direction == WidenOutward {
			slope = -slope
		}
		at := func(x float64) float64 { return r + (externalRadius-x)*slope }
		geo.RadiusBore = at(internalRadius)
		geo.RadiusFar = at(end)
		if geo.RadiusBore > 0 && !(at(start) > 0) {
			// Closes before the inner end: start halfway between the apex
			// and the bore.
			apex := externalRadius + r/slope
			start = (apex + internalRadius) / 2
		}
		geo.RadiusInner = at(start)
	}
	if !(geo.RadiusBore > 0) || !(geo.RadiusFar > 0) {
		return Geometry{}, fmt.Errorf("%w: taper %.2f° gives radii %.4f/%.4f mm at the bore and outer end",
			profile.ErrInvalidHole, h.TaperAngle, geo.RadiusBore, geo.RadiusFar)
	}
	geo.Start = start
	geo.Length = end - start
	return geo, nil
}

// Solid builds the cutter described by geo.
func (g *Generator) Solid(geo Geometry) (kernel.Solid, error) {
	var (
		s   kernel.Solid
		err error
	)
	if geo.Tapered() {
		s, err = g.Kernel.Frustum(geo.Length, geo.RadiusInner, geo.RadiusFar, g.Segments)
	} else {
		s, err = g.Kernel.Cylinder(geo.Length, geo.RadiusInner, g.Segments)
	}
	if err != nil {
		return nil, fmt.Errorf("cutter %d: %w", geo.Index, err)
	}
	// Built along Z centered on the origin: turn +Z onto +X, then slide
	// the inner end out to Start at the hole position.
	s = g.Kernel.Rotate(s, 0, 90, 0)
	return g.Kernel.Translate(s, geo.Start+geo.Length/2, 0, geo.Position), nil
}

// Geometries validates every hole of ps and resolves its cutter shape.
func (g *Generator) Geometries(ps profile.PieceSpec, externalRadiusAt func(float64) float64) ([]Geometry, error) {
	out := make([]Geometry, 0, len(ps.Holes))
	for i, h := range ps.Holes {
		if err := profile.ValidateHole(h, ps.Internal); err != nil {
			return nil, fmt.Errorf("piece %q hole %d: %w", ps.Name, i+1, err)
		}
		geo, err := g.Geometry(h, ps.Internal.RadiusAt(h.Position), externalRadiusAt(h.Position))
		if err != nil {
			return nil, fmt.Errorf("piece %q hole %d: %w", ps.Name, i+1, err)
		}
		geo.Index = i + 1
		out = append(out, geo)
	}
	return out, nil
}

// BuildCutters returns one cutter per hole of ps, in hole order.
func (g *Generator) BuildCutters(ps profile.PieceSpec, externalRadiusAt func(float64) float64) ([]kernel.Solid, error) {
	geos, err := g.Geometries(ps, externalRadiusAt)
	if err != nil {
		return nil, err
	}
	out := make([]kernel.Solid, 0, len(geos))
	for _, geo := range geos {
		s, err := g.Solid(geo)
		if err != nil {
			return nil, fmt.Errorf("piece %q: %w", ps.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Overlap names two cutters whose axial footprints intersect.
type Overlap struct {
	A, B int // 1-based hole numbers, A < B
}

func (o Overlap) String() string {
	return fmt.Sprintf("cutters %d and %d intersect", o.A, o.B)
}

// Intersections returns every pair of cutters whose footprints overlap
// along the axis. Such pairs are reported, never resolved.
func Intersections(geos []Geometry) []Overlap {
	var out []Overlap
	for i := 0; i < len(geos); i++ {
		for j := i + 1; j < len(geos); j++ {
			a, b := geos[i], geos[j]
			if math.Abs(a.Position-b.Position) < a.HalfWidth()+b.HalfWidth() {
				out = append(out, Overlap{A: a.Index, B: b.Index})
			}
		}
	}
	return out
}
