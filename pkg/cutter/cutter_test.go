package cutter

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/aulos/pkg/kernel/sdfx"
	"github.com/chazu/aulos/pkg/profile"
)

func tubeSpec(holes ...profile.HoleSpec) profile.PieceSpec {
	return profile.PieceSpec{
		Name:     "body",
		Internal: profile.Profile{{Position: 0, Diameter: 10}, {Position: 50, Diameter: 10}},
		External: profile.Profile{{Position: 0, Diameter: 14}, {Position: 50, Diameter: 14}},
		Holes:    holes,
	}
}

func TestParseTaperDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    TaperDirection
		wantErr bool
	}{
		{"", WidenInward, false},
		{"widen-inward", WidenInward, false},
		{"Widen-Outward", WidenOutward, false},
		{"outward", WidenOutward, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTaperDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTaperDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTaperDirection(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if WidenOutward.String() != "widen-outward" {
		t.Errorf("String() = %q", WidenOutward.String())
	}
}

func TestGeometry(t *testing.T) {
	tan5 := math.Tan(5 * math.Pi / 180)
	tan30 := math.Tan(30 * math.Pi / 180)
	// Bore radius 5, outer radius 7, margin 2.
	tests := []struct {
		name      string
		dir       TaperDirection
		hole      profile.HoleSpec
		wantStart float64
		wantInner float64
		wantBore  float64
		wantFar   float64
		wantTaper bool
	}{
		{"straight", WidenInward, profile.HoleSpec{Position: 25, Diameter: 4}, 3, 2, 2, 2, false},
		{"undercut", WidenInward, profile.HoleSpec{Position: 25, Diameter: 4, TaperAngle: 5}, 3, 2 + 4*tan5, 2 + 2*tan5, 2 - 2*tan5, true},
		{"flare", WidenOutward, profile.HoleSpec{Position: 25, Diameter: 4, TaperAngle: 5}, 3, 2 - 4*tan5, 2 - 2*tan5, 2 + 2*tan5, true},
		{"flare closing inside the bore", WidenOutward, profile.HoleSpec{Position: 25, Diameter: 4, TaperAngle: 30},
			(7 - 2/tan30 + 5) / 2, (2 - 2*tan30) / 2, 2 - 2*tan30, 2 + 2*tan30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Generator{Margin: 2, Direction: tt.dir}
			geo, err := g.Geometry(tt.hole, 5, 7)
			if err != nil {
				t.Fatalf("Geometry() error = %v", err)
			}
			if math.Abs(geo.Start-tt.wantStart) > 1e-12 {
				t.Errorf("Start = %v, want %v", geo.Start, tt.wantStart)
			}
			if math.Abs(geo.End()-9) > 1e-12 {
				t.Errorf("End() = %v, want 9", geo.End())
			}
			if math.Abs(geo.RadiusInner-tt.wantInner) > 1e-12 {
				t.Errorf("RadiusInner = %v, want %v", geo.RadiusInner, tt.wantInner)
			}
			if math.Abs(geo.RadiusBore-tt.wantBore) > 1e-12 {
				t.Errorf("RadiusBore = %v, want %v", geo.RadiusBore, tt.wantBore)
			}
			if math.Abs(geo.RadiusFar-tt.wantFar) > 1e-12 {
				t.Errorf("RadiusFar = %v, want %v", geo.RadiusFar, tt.wantFar)
			}
			if geo.RadiusSurface != 2 {
				t.Errorf("RadiusSurface = %v, want 2", geo.RadiusSurface)
			}
			if geo.Tapered() != tt.wantTaper {
				t.Errorf("Tapered() = %v, want %v", geo.Tapered(), tt.wantTaper)
			}
			if geo.Start >= 5 || geo.End() <= 7 {
				t.Errorf("cutter %v..%v does not cross the wall 5..7", geo.Start, geo.End())
			}
			if !(geo.RadiusInner > 0) {
				t.Errorf("RadiusInner = %v, want > 0", geo.RadiusInner)
			}
		})
	}
}

func TestGeometryStartsOnAxisForNarrowBore(t *testing.T) {
	g := &Generator{Margin: 2}
	geo, err := g.Geometry(profile.HoleSpec{Position: 25, Diameter: 1}, 1, 3)
	if err != nil {
		t.Fatalf("Geometry() error = %v", err)
	}
	if geo.Start != 0 || geo.Length != 5 {
		t.Errorf("cutter spans %v..%v, want 0..5", geo.Start, geo.End())
	}
}

func TestGeometryErrors(t *testing.T) {
	g := &Generator{Margin: 2, Direction: WidenOutward}
	tests := []struct {
		name       string
		hole       profile.HoleSpec
		rInt, rExt float64
	}{
		{"non-positive length", profile.HoleSpec{Position: 25, Diameter: 4}, 0, -5},
		{"taper closes before the bore", profile.HoleSpec{Position: 25, Diameter: 2, TaperAngle: 45}, 5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Geometry(tt.hole, tt.rInt, tt.rExt); !errors.Is(err, profile.ErrInvalidHole) {
				t.Errorf("Geometry() error = %v, want ErrInvalidHole", err)
			}
		})
	}
}

func TestBuildCuttersPierceWall(t *testing.T) {
	k := sdfx.NewWithCells(32)
	for _, seg := range []int{0, 32} {
		g := NewGenerator(k, seg)
		ps := tubeSpec(profile.HoleSpec{Position: 25, Diameter: 4})
		cutters, err := g.BuildCutters(ps, ps.External.RadiusAt)
		if err != nil {
			t.Fatalf("seg=%d: BuildCutters() error = %v", seg, err)
		}
		if len(cutters) != 1 {
			t.Fatalf("seg=%d: %d cutters, want 1", seg, len(cutters))
		}
		c := cutters[0]
		probes := []struct {
			name    string
			x, y, z float64
			want    bool
		}{
			{"bore side", 4, 0, 25, true},
			{"wall", 6, 0, 25, true},
			{"past the surface", 8, 0, 25, true},
			{"beyond margin", 9.5, 0, 25, false},
			{"opposite side", -6, 0, 25, false},
			{"axially outside", 6, 0, 28, false},
		}
		for _, p := range probes {
			if got := k.Contains(c, p.x, p.y, p.z); got != p.want {
				t.Errorf("seg=%d %s: Contains(%v,%v,%v) = %v, want %v", seg, p.name, p.x, p.y, p.z, got, p.want)
			}
		}
		min, max := c.BoundingBox()
		if min[0] > 3.01 || min[0] < 2.99 || max[0] < 9-0.01 {
			t.Errorf("seg=%d: X extent %v..%v, want 3..9", seg, min[0], max[0])
		}
	}
}

func TestBuildCuttersTaperDirection(t *testing.T) {
	k := sdfx.NewWithCells(32)
	ps := tubeSpec(profile.HoleSpec{Position: 25, Diameter: 4, TaperAngle: 10})

	inward := &Generator{Kernel: k, Margin: 2, Direction: WidenInward}
	cs, err := inward.BuildCutters(ps, ps.External.RadiusAt)
	if err != nil {
		t.Fatalf("BuildCutters() error = %v", err)
	}
	// Radius at the bore wall (x = 5) is 2 + 2*tan(10deg), about 2.35.
	if !k.Contains(cs[0], 5, 0, 27.2) {
		t.Error("undercut cutter is not wider at the bore")
	}

	outward := &Generator{Kernel: k, Margin: 2, Direction: WidenOutward}
	cs, err = outward.BuildCutters(ps, ps.External.RadiusAt)
	if err != nil {
		t.Fatalf("BuildCutters() error = %v", err)
	}
	if k.Contains(cs[0], 5, 0, 27.2) {
		t.Error("flared cutter is wider at the bore")
	}
	if !k.Contains(cs[0], 8.5, 0, 27.2) {
		t.Error("flared cutter is not wider past the surface")
	}

	// A steep flare would close before reaching the axis but still opens
	// 1.27 mm wide at the bore.
	steep := tubeSpec(profile.HoleSpec{Position: 25, Diameter: 4, TaperAngle: 20})
	cs, err = outward.BuildCutters(steep, steep.External.RadiusAt)
	if err != nil {
		t.Fatalf("steep flare: BuildCutters() error = %v", err)
	}
	if !k.Contains(cs[0], 5, 0, 26) {
		t.Error("steep flare does not open at the bore")
	}
	if k.Contains(cs[0], 5, 0, 26.5) {
		t.Error("steep flare is wider than 1.27 mm at the bore")
	}
	if !k.Contains(cs[0], 3.5, 0, 25) {
		t.Error("steep flare does not start inside the bore")
	}
	if k.Contains(cs[0], 1, 0, 25) {
		t.Error("steep flare reaches the axis")
	}
}

func TestBuildCuttersRejectsBadHoles(t *testing.T) {
	k := sdfx.NewWithCells(32)
	g := NewGenerator(k, 0)
	tests := []struct {
		name string
		hole profile.HoleSpec
	}{
		{"at first sample", profile.HoleSpec{Position: 0, Diameter: 4}},
		{"past the end", profile.HoleSpec{Position: 51, Diameter: 4}},
		{"zero diameter", profile.HoleSpec{Position: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := tubeSpec(profile.HoleSpec{Position: 10, Diameter: 3}, tt.hole)
			_, err := g.BuildCutters(ps, ps.External.RadiusAt)
			if !errors.Is(err, profile.ErrInvalidHole) {
				t.Errorf("BuildCutters() error = %v, want ErrInvalidHole", err)
			}
		})
	}
}

func TestIntersections(t *testing.T) {
	g := &Generator{Margin: 2}
	ps := tubeSpec(
		profile.HoleSpec{Position: 10, Diameter: 4},
		profile.HoleSpec{Position: 13, Diameter: 4},
		profile.HoleSpec{Position: 30, Diameter: 4},
	)
	geos, err := g.Geometries(ps, ps.External.RadiusAt)
	if err != nil {
		t.Fatalf("Geometries() error = %v", err)
	}
	got := Intersections(geos)
	if len(got) != 1 || got[0] != (Overlap{A: 1, B: 2}) {
		t.Errorf("Intersections() = %v, want [{1 2}]", got)
	}
	if got[0].String() != "cutters 1 and 2 intersect" {
		t.Errorf("String() = %q", got[0].String())
	}
}
