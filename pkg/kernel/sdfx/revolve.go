package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// facetedRevolve is the polyhedral solid swept from a 2D profile in n flat
// angular steps. Its zero set is the same polyhedron kernel.LatheMesh
// builds: facet k spans the angles [2*pi*k/n, 2*pi*(k+1)/n].
//
// A point is folded into the facet it faces and its distance from the axis
// measured along that facet's normal, rescaled so a point on the facet maps
// onto the profile radius. The result is a bounded (not exact) distance.
type facetedRevolve struct {
	profile sdf.SDF2
	half    float64 // half of the angular step
	scale   float64 // cos(half)
	bb      sdf.Box3
}

func newFacetedRevolve(profile sdf.SDF2, segments int) *facetedRevolve {
	half := math.Pi / float64(segments)
	b2 := profile.BoundingBox()
	r := math.Max(math.Abs(b2.Min.X), math.Abs(b2.Max.X))
	return &facetedRevolve{
		profile: profile,
		half:    half,
		scale:   math.Cos(half),
		bb: sdf.Box3{
			Min: v3.Vec{X: -r, Y: -r, Z: b2.Min.Y},
			Max: v3.Vec{X: r, Y: r, Z: b2.Max.Y},
		},
	}
}

// Evaluate returns the signed distance estimate at p.
func (f *facetedRevolve) Evaluate(p v3.Vec) float64 {
	rho := math.Hypot(p.X, p.Y)
	step := 2 * f.half
	d := math.Mod(math.Atan2(p.Y, p.X), step)
	if d < 0 {
		d += step
	}
	d -= f.half
	u := rho * math.Cos(d) / f.scale
	return f.profile.Evaluate(v2.Vec{X: u, Y: p.Z}) * f.scale
}

// BoundingBox returns the bounding box of the polyhedron.
func (f *facetedRevolve) BoundingBox() sdf.Box3 {
	return f.bb
}
