package tessellate_test

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/kernel/sdfx"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/profile"
	"github.com/chazu/aulos/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.NewWithCells(32)
}

func tube(name string, length float64, holes ...profile.HoleSpec) profile.PieceSpec {
	return profile.PieceSpec{
		Name:     name,
		Internal: profile.Profile{{Position: 0, Diameter: 10}, {Position: length, Diameter: 10}},
		External: profile.Profile{{Position: 0, Diameter: 14}, {Position: length, Diameter: 14}},
		Holes:    holes,
	}
}

func build(t *testing.T, k kernel.Kernel, specs ...profile.PieceSpec) *assembly.Assembly {
	t.Helper()
	p := &assembly.Pipeline{
		Kernel:  k,
		Options: piece.Options{Resolution: 16, Margin: 2},
		Logger:  log.New(&bytes.Buffer{}, "", 0),
	}
	asm, err := p.Run(context.Background(), "flute", specs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return asm
}

func names(meshes []*kernel.Mesh) []string {
	out := make([]string, len(meshes))
	for i, m := range meshes {
		out[i] = m.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestComponentName(t *testing.T) {
	tests := []struct {
		c     tessellate.Component
		index int
		want  string
	}{
		{tessellate.Final, 0, "head"},
		{tessellate.External, 0, "head_EXTERNAL"},
		{tessellate.Internal, 0, "head_INTERNAL"},
		{tessellate.Cutter, 3, "head_CUTTER_3"},
	}
	for _, tt := range tests {
		if got := tessellate.ComponentName("head", tt.c, tt.index); got != tt.want {
			t.Errorf("ComponentName(%v, %d) = %q, want %q", tt.c, tt.index, got, tt.want)
		}
	}
}

func TestParseGranularity(t *testing.T) {
	for _, g := range []tessellate.Granularity{tessellate.Whole, tessellate.Pieces, tessellate.Components} {
		got, err := tessellate.ParseGranularity(g.String())
		if err != nil || got != g {
			t.Errorf("ParseGranularity(%q) = %v, %v", g.String(), got, err)
		}
	}
	if _, err := tessellate.ParseGranularity("voxels"); err == nil {
		t.Error("ParseGranularity(voxels) error = nil, want error")
	}
}

func TestWhole(t *testing.T) {
	k := newKernel()
	asm := build(t, k, tube("head", 40), tube("body", 40))

	meshes, err := tessellate.Tessellate(asm, k, tessellate.Whole)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.Name != "flute" {
		t.Errorf("expected Name %q, got %q", "flute", m.Name)
	}
	if m.IsEmpty() || m.TriangleCount() == 0 {
		t.Fatal("mesh should not be empty")
	}
}

func TestPieces(t *testing.T) {
	k := newKernel()
	asm := build(t, k, tube("head", 40), tube("body", 30))

	meshes, err := tessellate.Tessellate(asm, k, tessellate.Pieces)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if got := names(meshes); !equal(got, []string{"head", "body"}) {
		t.Fatalf("names = %v, want [head body]", got)
	}

	// The body mesh is positioned after the head.
	var zmin float32 = 1e9
	for i := 2; i < len(meshes[1].Vertices); i += 3 {
		if meshes[1].Vertices[i] < zmin {
			zmin = meshes[1].Vertices[i]
		}
	}
	if zmin < 39 {
		t.Errorf("body mesh starts at z=%v, want about 40", zmin)
	}
}

func TestComponents(t *testing.T) {
	k := newKernel()
	asm := build(t, k,
		tube("head", 50, profile.HoleSpec{Position: 15, Diameter: 4}, profile.HoleSpec{Position: 35, Diameter: 4}),
	)

	meshes, err := tessellate.Tessellate(asm, k, tessellate.Components)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	want := []string{"head_EXTERNAL", "head_INTERNAL", "head_CUTTER_1", "head_CUTTER_2"}
	if got := names(meshes); !equal(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for _, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("%s mesh is empty", m.Name)
		}
	}
}

func TestComponentsOfFailedPiece(t *testing.T) {
	k := newKernel()
	bad := tube("foot", 30, profile.HoleSpec{Position: 30, Diameter: 4})
	asm := build(t, k, tube("head", 30), bad)

	pieces, err := tessellate.Tessellate(asm, k, tessellate.Pieces)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if got := names(pieces); !equal(got, []string{"head"}) {
		t.Errorf("pieces = %v, want [head]", got)
	}

	comps, err := tessellate.Tessellate(asm, k, tessellate.Components)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if got := names(comps); !equal(got, []string{"head_EXTERNAL", "head_INTERNAL"}) {
		t.Errorf("components = %v, want head shells only", got)
	}
}

func TestNilAssembly(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel(), tessellate.Whole)
	if err != nil || meshes != nil {
		t.Errorf("Tessellate(nil) = %v, %v; want nil, nil", meshes, err)
	}
}
