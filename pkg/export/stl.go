// Package export writes tessellated solids and profile drawings to files.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/model3d/model3d"

	"github.com/chazu/aulos/pkg/kernel"
)

// Report summarizes one exported mesh.
type Report struct {
	Name       string
	Path       string
	Triangles  int
	Watertight bool
}

// Triangles converts m into model3d triangles. Degenerate triangles are
// dropped.
func Triangles(m *kernel.Mesh) []*model3d.Triangle {
	out := make([]*model3d.Triangle, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		v := m.Triangle(t)
		tri := &model3d.Triangle{
			{X: v[0][0], Y: v[0][1], Z: v[0][2]},
			{X: v[1][0], Y: v[1][1], Z: v[1][2]},
			{X: v[2][0], Y: v[2][1], Z: v[2][2]},
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		out = append(out, tri)
	}
	return out
}

// ToModel3D converts m into a model3d mesh.
func ToModel3D(m *kernel.Mesh) *model3d.Mesh {
	return model3d.NewMeshTriangles(Triangles(m))
}

// Watertight reports whether every edge of m is shared by exactly two
// triangles.
func Watertight(m *kernel.Mesh) bool {
	if m.IsEmpty() {
		return false
	}
	return !ToModel3D(m).NeedsRepair()
}

// WriteSTL writes the triangles of every mesh as one binary STL.
func WriteSTL(w io.Writer, meshes ...*kernel.Mesh) error {
	var tris []*model3d.Triangle
	for _, m := range meshes {
		tris = append(tris, Triangles(m)...)
	}
	if len(tris) == 0 {
		return errors.New("write stl: no triangles")
	}
	return errors.Wrap(model3d.WriteSTL(w, tris), "write stl")
}

// SaveSTL writes m to path.
func SaveSTL(path string, m *kernel.Mesh) error {
	if m.IsEmpty() {
		return errors.Errorf("save %s: mesh %q is empty", path, m.Name)
	}
	return errors.Wrapf(ToModel3D(m).SaveGroupedSTL(path), "save %s", path)
}

// FileName returns the STL file name for a mesh name.
func FileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	if name == "" {
		name = "mesh"
	}
	return r.Replace(name) + ".stl"
}

// SaveAll writes one STL per mesh into dir, creating it if needed.
func SaveAll(dir string, meshes []*kernel.Mesh) ([]Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	reports := make([]Report, 0, len(meshes))
	for _, m := range meshes {
		path := filepath.Join(dir, FileName(m.Name))
		if err := SaveSTL(path, m); err != nil {
			return reports, err
		}
		reports = append(reports, Report{
			Name:       m.Name,
			Path:       path,
			Triangles:  m.TriangleCount(),
			Watertight: Watertight(m),
		})
	}
	return reports, nil
}
