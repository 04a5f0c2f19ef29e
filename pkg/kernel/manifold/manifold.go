//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations, which makes it the backend
// of choice for export-quality pieces.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/aulos/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with a Go-side finalizer.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// checked wraps ptr after confirming Manifold reported no error for it.
func checked(op string, ptr *C.ManifoldManifold) (kernel.Solid, error) {
	if status := C.manifold_status(ptr); status != C.MANIFOLD_NO_ERROR {
		C.manifold_delete_manifold(ptr)
		return nil, fmt.Errorf("manifold: %s: %w: status %d", op, kernel.ErrBooleanFailed, int(status))
	}
	if C.manifold_is_empty(ptr) != 0 {
		C.manifold_delete_manifold(ptr)
		return nil, fmt.Errorf("manifold: %s: %w: empty result", op, kernel.ErrBooleanFailed)
	}
	return newSolid(ptr), nil
}

func unwrap(s kernel.Solid) (*manifoldSolid, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok || ms == nil || ms.ptr == nil {
		return nil, fmt.Errorf("manifold: %w: not a manifold solid (%T)", kernel.ErrBooleanFailed, s)
	}
	return ms, nil
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Revolve sweeps the generatrix around Z. Manifold revolves a cross
// section in the XY plane around Y and maps Y onto Z, so the (radius, z)
// pairs are passed through unchanged.
func (k *ManifoldKernel) Revolve(generatrix [][2]float64, segments int) (kernel.Solid, error) {
	if len(generatrix) < 2 {
		return nil, fmt.Errorf("manifold: revolve: %w: %d point(s)", kernel.ErrBooleanFailed, len(generatrix))
	}
	if segments < 3 {
		segments = 0 // Manifold picks a count from its circular tolerance.
	}
	closed := kernel.Closed(generatrix)

	pts := (*C.ManifoldVec2)(C.malloc(C.size_t(len(closed)) * C.size_t(unsafe.Sizeof(C.ManifoldVec2{}))))
	defer C.free(unsafe.Pointer(pts))
	view := unsafe.Slice(pts, len(closed))
	for i, g := range closed {
		view[i] = C.ManifoldVec2{x: C.double(g[0]), y: C.double(g[1])}
	}

	simple := C.manifold_simple_polygon(C.manifold_alloc_simple_polygon(), pts, C.size_t(len(closed)))
	defer C.manifold_delete_simple_polygon(simple)

	list := (**C.ManifoldSimplePolygon)(C.malloc(C.size_t(unsafe.Sizeof(simple))))
	defer C.free(unsafe.Pointer(list))
	*list = simple
	polys := C.manifold_polygons(C.manifold_alloc_polygons(), list, 1)
	defer C.manifold_delete_polygons(polys)

	ptr := C.manifold_revolve(C.manifold_alloc_manifold(), polys, C.int(segments))
	return checked("revolve", ptr)
}

// Cylinder creates a cylinder along the Z axis centered at the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	return k.Frustum(height, radius, radius, segments)
}

// Frustum creates a truncated cone along Z centered at the origin.
func (k *ManifoldKernel) Frustum(height, r0, r1 float64, segments int) (kernel.Solid, error) {
	if !(height > 0) || !(r0 > 0) || !(r1 > 0) {
		return nil, fmt.Errorf("manifold: frustum: %w: height %v, radii %v/%v",
			kernel.ErrBooleanFailed, height, r0, r1)
	}
	ptr := C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height),
		C.double(r0), // radius_low
		C.double(r1), // radius_high
		C.int(segments),
		C.int(1), // center=true
	)
	return checked("frustum", ptr)
}

// Union returns the boolean union of the solids, folded left to right.
func (k *ManifoldKernel) Union(solids ...kernel.Solid) (kernel.Solid, error) {
	if len(solids) == 0 {
		return nil, fmt.Errorf("manifold: union: %w: no solids", kernel.ErrBooleanFailed)
	}
	acc, err := unwrap(solids[0])
	if err != nil {
		return nil, err
	}
	var out kernel.Solid = acc
	for _, s := range solids[1:] {
		next, err := unwrap(s)
		if err != nil {
			return nil, err
		}
		out, err = checked("union", C.manifold_union(C.manifold_alloc_manifold(), acc.ptr, next.ptr))
		if err != nil {
			return nil, err
		}
		acc = out.(*manifoldSolid)
	}
	return out, nil
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return checked("difference", C.manifold_difference(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
}

// Translate moves the solid by (x, y, z).
func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	ptr := C.manifold_translate(C.manifold_alloc_manifold(), ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// Rotate rotates the solid by Euler angles (in degrees) around the X, Y, Z axes.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	ms := s.(*manifoldSolid)
	ptr := C.manifold_rotate(C.manifold_alloc_manifold(), ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newSolid(ptr)
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Positions come first in each vertex's property block; normals
// follow when present, otherwise they are computed from the faces.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], propData[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], propData[base+3:base+6])
		}
	}
	if !hasNormals {
		normals = kernel.ComputeNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	return mesh, nil
}
