// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Revolutions with a positive segment count are faceted polyhedra whose
// exact facets are kept alongside the SDF, so ToMesh of an untouched
// revolution returns the lathe mesh rather than a marching-cubes
// approximation. Booleans and rotations fall back to marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/aulos/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*SdfxKernel)(nil)
	_ kernel.Prober = (*SdfxKernel)(nil)
)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest bounding-box axis.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. facets, when
// set, is the exact triangulation of s.
type sdfxSolid struct {
	s      sdf.SDF3
	facets *kernel.Mesh
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel with the default mesh resolution.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns an SdfxKernel whose marching-cubes grid has the given
// number of cells along the longest axis. Values < 1 use the default.
func NewWithCells(cells int) *SdfxKernel {
	if cells < 1 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying solid, failing on foreign or nil handles.
func unwrap(s kernel.Solid) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil || ss.s == nil {
		return nil, fmt.Errorf("sdfx: %w: not an sdfx solid (%T)", kernel.ErrBooleanFailed, s)
	}
	return ss, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Revolve sweeps the generatrix around the Z axis. The (radius, z) pairs
// become a polygon in the sdfx 2D plane (X = radius, Y = z), closed onto
// the axis.
func (k *SdfxKernel) Revolve(generatrix [][2]float64, segments int) (kernel.Solid, error) {
	if len(generatrix) < 2 {
		return nil, fmt.Errorf("sdfx: revolve: %w: %d point(s)", kernel.ErrBooleanFailed, len(generatrix))
	}
	closed := kernel.Closed(generatrix)
	vertices := make([]v2.Vec, len(closed))
	for i, g := range closed {
		if g[0] < 0 || math.IsNaN(g[0]) || math.IsInf(g[0], 0) || math.IsNaN(g[1]) || math.IsInf(g[1], 0) {
			return nil, fmt.Errorf("sdfx: revolve: %w: invalid point %v", kernel.ErrBooleanFailed, g)
		}
		vertices[i] = v2.Vec{X: g[0], Y: g[1]}
	}
	profile, err := sdf.Polygon2D(vertices)
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w: %v", kernel.ErrBooleanFailed, err)
	}

	if segments <= 0 {
		s, err := sdf.Revolve3D(profile)
		if err != nil {
			return nil, fmt.Errorf("sdfx: revolve: %w: %v", kernel.ErrBooleanFailed, err)
		}
		return wrap(s), nil
	}
	if segments < 3 {
		return nil, fmt.Errorf("sdfx: revolve: %w: %d segments", kernel.ErrBooleanFailed, segments)
	}

	facets, err := kernel.LatheMesh(generatrix, segments)
	if err != nil {
		return nil, fmt.Errorf("sdfx: revolve: %w: %v", kernel.ErrBooleanFailed, err)
	}
	return &sdfxSolid{s: newFacetedRevolve(profile, segments), facets: facets}, nil
}

// Cylinder creates a cylinder along Z with the given height and radius.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	return k.Frustum(height, radius, radius, segments)
}

// Frustum creates a truncated cone along Z centered at the origin, radius
// r0 at the bottom and r1 at the top. segments <= 0 gives a smooth
// surface; otherwise the frustum is faceted like a revolution.
func (k *SdfxKernel) Frustum(height, r0, r1 float64, segments int) (kernel.Solid, error) {
	if !(height > 0) || !(r0 > 0) || !(r1 > 0) {
		return nil, fmt.Errorf("sdfx: frustum: %w: height %v, radii %v/%v",
			kernel.ErrBooleanFailed, height, r0, r1)
	}
	if segments > 0 {
		return k.Revolve([][2]float64{{r0, -height / 2}, {r1, height / 2}}, segments)
	}
	var (
		s   sdf.SDF3
		err error
	)
	if r0 == r1 {
		s, err = sdf.Cylinder3D(height, r0, 0)
	} else {
		s, err = sdf.Cone3D(height, r0, r1, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("sdfx: frustum: %w: %v", kernel.ErrBooleanFailed, err)
	}
	return wrap(s), nil
}

// Union returns the union of the solids.
func (k *SdfxKernel) Union(solids ...kernel.Solid) (kernel.Solid, error) {
	if len(solids) == 0 {
		return nil, fmt.Errorf("sdfx: union: %w: no solids", kernel.ErrBooleanFailed)
	}
	parts := make([]sdf.SDF3, 0, len(solids))
	for _, s := range solids {
		ss, err := unwrap(s)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ss.s)
	}
	if len(parts) == 1 {
		return solids[0], nil
	}
	return wrap(sdf.Union3D(parts...)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	out := sdf.Difference3D(sa.s, sb.s)
	if out == nil || !finiteBox(out.BoundingBox()) {
		return nil, fmt.Errorf("sdfx: difference: %w: degenerate result", kernel.ErrBooleanFailed)
	}
	return wrap(out), nil
}

func finiteBox(bb sdf.Box3) bool {
	for _, v := range []float64{bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Translate moves a solid by (x, y, z). Exact facets move with it.
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ss := s.(*sdfxSolid)
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	out := &sdfxSolid{s: sdf.Transform3D(ss.s, m)}
	if ss.facets != nil {
		out.facets = ss.facets.Translate(x, y, z)
	}
	return out
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(s.(*sdfxSolid).s, m))
}

// Contains reports whether (x, y, z) lies strictly inside s.
func (k *SdfxKernel) Contains(s kernel.Solid, x, y, z float64) bool {
	ss, err := unwrap(s)
	if err != nil {
		return false
	}
	return ss.s.Evaluate(v3.Vec{X: x, Y: y, Z: z}) < 0
}

// ToMesh converts a solid to a triangle mesh: the exact facets when the
// solid has them, otherwise marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if ss.facets != nil {
		return ss.facets.Clone(), nil
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(ss.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
