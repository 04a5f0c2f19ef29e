// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide revolution, primitive and
// boolean operations behind this interface, so the reconstruction
// pipeline can swap backends without changing.
//
// Conventions shared by every backend: lengths are millimetres, the
// instrument axis is Z, and a generatrix is a sequence of (radius, z)
// pairs in increasing z.
package kernel

import "errors"

// ErrBooleanFailed is returned (wrapped) when a backend cannot produce a
// valid result for a boolean operation or a primitive.
var ErrBooleanFailed = errors.New("boolean operation failed")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation. Solids are never
// mutated; every operation returns a new handle.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Revolve sweeps the generatrix 360 degrees around the Z axis in
	// segments equal angular steps. Ends with a non-zero radius are closed
	// with flat caps. segments <= 0 asks for the backend's smoothest
	// representation.
	Revolve(generatrix [][2]float64, segments int) (Solid, error)

	// Cylinder creates a cylinder along Z, centered at the origin.
	Cylinder(height, radius float64, segments int) (Solid, error)
	// Frustum creates a truncated cone along Z, centered at the origin,
	// with radius r0 at z = -height/2 and r1 at z = +height/2.
	Frustum(height, r0, r1 float64, segments int) (Solid, error)

	// Boolean operations
	Union(solids ...Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Prober is implemented by kernels that can answer point-membership
// queries without tessellating.
type Prober interface {
	// Contains reports whether (x, y, z) lies strictly inside s.
	Contains(s Solid, x, y, z float64) bool
}

// Closed returns the generatrix closed onto the axis: a zero-radius point
// is prepended/appended at the end positions unless the profile already
// ends on the axis. The result describes a simple polygon in the
// (radius, z) half-plane, listed in increasing z along the outer edge.
func Closed(generatrix [][2]float64) [][2]float64 {
	if len(generatrix) == 0 {
		return nil
	}
	out := make([][2]float64, 0, len(generatrix)+2)
	first := generatrix[0]
	last := generatrix[len(generatrix)-1]
	if first[0] != 0 {
		out = append(out, [2]float64{0, first[1]})
	}
	out = append(out, generatrix...)
	if last[0] != 0 {
		out = append(out, [2]float64{0, last[1]})
	}
	return out
}
