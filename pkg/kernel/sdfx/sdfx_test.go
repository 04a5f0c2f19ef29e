package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/aulos/pkg/kernel"
)

// testCells keeps marching cubes fast in tests.
const testCells = 48

func mustRevolve(t *testing.T, k *SdfxKernel, gen [][2]float64, segments int) kernel.Solid {
	t.Helper()
	s, err := k.Revolve(gen, segments)
	if err != nil {
		t.Fatalf("Revolve(%v, %d) error = %v", gen, segments, err)
	}
	return s
}

func tube(t *testing.T, k *SdfxKernel, segments int) kernel.Solid {
	t.Helper()
	outer := mustRevolve(t, k, [][2]float64{{7, 0}, {7, 50}}, segments)
	inner := mustRevolve(t, k, [][2]float64{{5, 0}, {5, 50}}, segments)
	hollow, err := k.Difference(outer, inner)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	return hollow
}

func TestRevolveFacets(t *testing.T) {
	k := NewWithCells(testCells)
	gen := [][2]float64{{9.5, 0}, {9.5, 7}, {8.5, 7.001}, {8.2, 120}}
	prev := 0
	for _, n := range []int{3, 8, 32, 64} {
		m, err := k.ToMesh(mustRevolve(t, k, gen, n))
		if err != nil {
			t.Fatalf("ToMesh() error = %v", err)
		}
		if m.TriangleCount() <= prev {
			t.Errorf("n=%d: %d triangles, want more than %d", n, m.TriangleCount(), prev)
		}
		prev = m.TriangleCount()
		if got := m.EulerCharacteristic(); got != 2 {
			t.Errorf("n=%d: EulerCharacteristic() = %d, want 2", n, got)
		}
	}
}

func TestRevolveMeshIsCopy(t *testing.T) {
	k := NewWithCells(testCells)
	s := mustRevolve(t, k, [][2]float64{{5, 0}, {5, 10}}, 16)
	m1, _ := k.ToMesh(s)
	m1.Vertices[0] = 1000
	m2, _ := k.ToMesh(s)
	if m2.Vertices[0] == 1000 {
		t.Error("ToMesh() returned shared storage")
	}
}

func TestRevolveBoundingBox(t *testing.T) {
	k := NewWithCells(testCells)
	for _, n := range []int{0, 32} {
		s := mustRevolve(t, k, [][2]float64{{5, 10}, {7, 60}}, n)
		min, max := s.BoundingBox()
		const tol = 0.01
		if math.Abs(max[0]-7) > tol || math.Abs(min[1]+7) > tol {
			t.Errorf("n=%d: radial bounds = %v..%v, want +-7", n, min, max)
		}
		if math.Abs(min[2]-10) > tol || math.Abs(max[2]-60) > tol {
			t.Errorf("n=%d: axial bounds = %v..%v, want 10..60", n, min[2], max[2])
		}
	}
}

func TestContainsTube(t *testing.T) {
	k := NewWithCells(testCells)
	for _, n := range []int{0, 64} {
		hollow := tube(t, k, n)
		tests := []struct {
			name    string
			x, y, z float64
			want    bool
		}{
			{"in wall", 6, 0, 25, true},
			{"in wall opposite side", 0, -6, 25, true},
			{"in bore", 4, 0, 25, false},
			{"on axis", 0, 0, 25, false},
			{"outside", 7.5, 0, 25, false},
			{"beyond end", 6, 0, 55, false},
		}
		for _, tt := range tests {
			if got := k.Contains(hollow, tt.x, tt.y, tt.z); got != tt.want {
				t.Errorf("n=%d %s: Contains(%v,%v,%v) = %v, want %v",
					n, tt.name, tt.x, tt.y, tt.z, got, tt.want)
			}
		}
	}
}

func TestFacetedContainsMatchesPolygon(t *testing.T) {
	// A triangle-section prism of circumradius 10: facet midpoints sit at
	// 10*cos(60deg) = 5 from the axis.
	k := NewWithCells(testCells)
	s := mustRevolve(t, k, [][2]float64{{10, 0}, {10, 10}}, 3)
	mid := math.Pi / 3
	if !k.Contains(s, 4.9*math.Cos(mid), 4.9*math.Sin(mid), 5) {
		t.Error("point just inside a facet midpoint reported outside")
	}
	if k.Contains(s, 5.1*math.Cos(mid), 5.1*math.Sin(mid), 5) {
		t.Error("point just outside a facet midpoint reported inside")
	}
	if !k.Contains(s, 9.9, 0, 5) {
		t.Error("point near a vertex reported outside")
	}
}

func TestDifferenceFarCutterKeepsVolume(t *testing.T) {
	k := NewWithCells(testCells)
	hollow := tube(t, k, 32)
	far, err := k.Cylinder(10, 2, 0)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}
	far = k.Translate(far, 500, 0, 25)

	cut, err := k.Difference(hollow, far)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	before, err := k.ToMesh(hollow)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	after, err := k.ToMesh(cut)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	vb, va := before.Volume(), after.Volume()
	if vb <= 0 {
		t.Fatalf("hollow volume = %v, want positive", vb)
	}
	if math.Abs(va-vb) > 1e-6*vb {
		t.Errorf("volume changed from %v to %v", vb, va)
	}
}

func TestDifferenceThroughCutterRemovesVolume(t *testing.T) {
	k := NewWithCells(testCells)
	hollow := tube(t, k, 32)
	c, err := k.Cylinder(10, 3, 0)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}
	c = k.Translate(k.Rotate(c, 0, 90, 0), 5, 0, 25)
	cut, err := k.Difference(hollow, c)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if k.Contains(cut, 6, 0, 25) {
		t.Error("wall point inside the cutter survived the difference")
	}
	if !k.Contains(cut, -6, 0, 25) {
		t.Error("opposite wall removed")
	}
	before, _ := k.ToMesh(hollow)
	after, _ := k.ToMesh(cut)
	if after.Volume() >= before.Volume() {
		t.Errorf("volume %v not below %v", after.Volume(), before.Volume())
	}
}

func TestFrustum(t *testing.T) {
	k := NewWithCells(testCells)
	for _, n := range []int{0, 24} {
		s, err := k.Frustum(10, 4, 2, n)
		if err != nil {
			t.Fatalf("n=%d: Frustum() error = %v", n, err)
		}
		if !k.Contains(s, 3.5, 0, -4.5) {
			t.Errorf("n=%d: wide end point reported outside", n)
		}
		if k.Contains(s, 3.5, 0, 4.5) {
			t.Errorf("n=%d: narrow end point reported inside", n)
		}
	}
}

func TestPrimitiveErrors(t *testing.T) {
	k := NewWithCells(testCells)
	tests := []struct {
		name string
		fn   func() error
	}{
		{"zero height", func() error { _, err := k.Cylinder(0, 1, 0); return err }},
		{"zero radius", func() error { _, err := k.Frustum(5, 0, 1, 16); return err }},
		{"single point", func() error { _, err := k.Revolve([][2]float64{{1, 0}}, 16); return err }},
		{"negative radius", func() error { _, err := k.Revolve([][2]float64{{1, 0}, {-1, 5}}, 16); return err }},
		{"two segments", func() error { _, err := k.Revolve([][2]float64{{1, 0}, {1, 5}}, 2); return err }},
		{"empty union", func() error { _, err := k.Union(); return err }},
		{"nil difference", func() error { _, err := k.Difference(nil, nil); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, kernel.ErrBooleanFailed) {
				t.Errorf("error = %v, want ErrBooleanFailed", err)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	k := NewWithCells(testCells)
	a := mustRevolve(t, k, [][2]float64{{5, 0}, {5, 10}}, 0)
	b := k.Translate(a, 0, 0, 20)
	u, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	min, max := u.BoundingBox()
	if math.Abs(min[2]) > 0.01 || math.Abs(max[2]-30) > 0.01 {
		t.Errorf("union axial bounds = %v..%v, want 0..30", min[2], max[2])
	}
	if !k.Contains(u, 0, 0, 25) || k.Contains(u, 0, 0, 15) {
		t.Error("union membership wrong")
	}
	m, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestTranslateMovesFacets(t *testing.T) {
	k := NewWithCells(testCells)
	s := mustRevolve(t, k, [][2]float64{{5, 0}, {5, 10}}, 16)
	moved := k.Translate(s, 0, 0, 100)

	min, max := moved.BoundingBox()
	if math.Abs(min[2]-100) > 0.01 || math.Abs(max[2]-110) > 0.01 {
		t.Errorf("translated axial bounds = %v..%v, want 100..110", min[2], max[2])
	}
	m, err := k.ToMesh(moved)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	for i := 2; i < len(m.Vertices); i += 3 {
		if m.Vertices[i] < 99.99 || m.Vertices[i] > 110.01 {
			t.Fatalf("vertex z = %v outside 100..110", m.Vertices[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := NewWithCells(testCells)
	c, err := k.Cylinder(100, 5, 0)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}

	// A long cylinder along Z rotated 90 degrees around Y should extend along X.
	rotated := k.Rotate(c, 0, 90, 0)
	min, max := rotated.BoundingBox()

	const tol = 1.0
	if got := max[0] - min[0]; math.Abs(got-100) > tol {
		t.Errorf("rotated X extent = %f, expected ~100", got)
	}
	if got := max[2] - min[2]; math.Abs(got-10) > tol {
		t.Errorf("rotated Z extent = %f, expected ~10", got)
	}
}
