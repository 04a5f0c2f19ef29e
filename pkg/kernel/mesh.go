package kernel

import "math"

// Mesh is a triangle mesh suitable for rendering and export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // component name, e.g. "head_EXTERNAL"
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
		Normals:  append([]float32(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		Name:     m.Name,
	}
}

// Translate returns a copy of the mesh moved by (x, y, z).
func (m *Mesh) Translate(x, y, z float64) *Mesh {
	out := m.Clone()
	for i := 0; i+2 < len(out.Vertices); i += 3 {
		out.Vertices[i] += float32(x)
		out.Vertices[i+1] += float32(y)
		out.Vertices[i+2] += float32(z)
	}
	return out
}

// Triangle returns the corner positions of triangle t.
func (m *Mesh) Triangle(t int) [3][3]float64 {
	var tri [3][3]float64
	for j := 0; j < 3; j++ {
		v := m.Indices[t*3+j]
		tri[j] = [3]float64{
			float64(m.Vertices[v*3]),
			float64(m.Vertices[v*3+1]),
			float64(m.Vertices[v*3+2]),
		}
	}
	return tri
}

// Volume returns the signed volume enclosed by the mesh. Outward-facing
// (counter-clockwise) triangles give a positive volume.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := tri[0], tri[1], tri[2]
		sum += a[0]*(b[1]*c[2]-b[2]*c[1]) -
			a[1]*(b[0]*c[2]-b[2]*c[0]) +
			a[2]*(b[0]*c[1]-b[1]*c[0])
	}
	return sum / 6
}

// weldScale quantizes coordinates when matching coincident vertices.
const weldScale = 1e4

type weldKey [3]int64

// welded maps every vertex index to a canonical index shared by all
// vertices at the same (quantized) position. Marching-cubes output stores
// three private vertices per triangle; welding recovers the topology.
func (m *Mesh) welded() (canon []int, unique int) {
	seen := make(map[weldKey]int, m.VertexCount())
	canon = make([]int, m.VertexCount())
	for i := range canon {
		k := weldKey{
			int64(math.Round(float64(m.Vertices[i*3]) * weldScale)),
			int64(math.Round(float64(m.Vertices[i*3+1]) * weldScale)),
			int64(math.Round(float64(m.Vertices[i*3+2]) * weldScale)),
		}
		id, ok := seen[k]
		if !ok {
			id = len(seen)
			seen[k] = id
		}
		canon[i] = id
	}
	return canon, len(seen)
}

type edge struct{ a, b int }

func undirected(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// edgeUse counts how many non-degenerate triangles use each undirected
// edge after welding, and returns the number of such triangles.
func (m *Mesh) edgeUse(canon []int) (map[edge]int, int) {
	uses := make(map[edge]int, len(m.Indices))
	faces := 0
	for t := 0; t < m.TriangleCount(); t++ {
		a := canon[m.Indices[t*3]]
		b := canon[m.Indices[t*3+1]]
		c := canon[m.Indices[t*3+2]]
		if a == b || b == c || a == c {
			continue
		}
		faces++
		uses[undirected(a, b)]++
		uses[undirected(b, c)]++
		uses[undirected(c, a)]++
	}
	return uses, faces
}

// IsClosed reports whether every edge of the welded mesh is shared by
// exactly two triangles.
func (m *Mesh) IsClosed() bool {
	if m.TriangleCount() == 0 {
		return false
	}
	canon, _ := m.welded()
	uses, _ := m.edgeUse(canon)
	for _, n := range uses {
		if n != 2 {
			return false
		}
	}
	return true
}

// EulerCharacteristic returns V - E + F of the welded mesh. A closed
// genus-0 surface gives 2.
func (m *Mesh) EulerCharacteristic() int {
	canon, _ := m.welded()
	uses, faces := m.edgeUse(canon)
	used := make(map[int]struct{}, len(canon))
	for e := range uses {
		used[e.a] = struct{}{}
		used[e.b] = struct{}{}
	}
	return len(used) - len(uses) + faces
}
