package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/chazu/aulos/pkg/config"
	"github.com/chazu/aulos/pkg/instrument"
	"github.com/chazu/aulos/pkg/kernel/sdfx"
	"github.com/chazu/aulos/pkg/profile"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Revolve.Resolution = 16
	return NewApp(cfg, sdfx.NewWithCells(32), log.New(&buf, "", 0)), &buf
}

// TestE2EFluteExample runs the example script through the whole path:
// engine, validation, pipeline and tessellation.
func TestE2EFluteExample(t *testing.T) {
	app, _ := newTestApp(t)

	source, err := os.ReadFile("../../examples/flute.lisp")
	if err != nil {
		t.Fatalf("failed to read flute.lisp: %v", err)
	}

	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("error (line %d, piece %q): %s", e.Line, e.Piece, e.Message)
		}
		t.FailNow()
	}

	want := []string{"headjoint", "left", "right", "foot"}
	if len(result.Meshes) != len(want) {
		t.Fatalf("expected %d meshes, got %d", len(want), len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.Name != want[i] {
			t.Errorf("mesh %d: name = %q, want %q", i, m.Name, want[i])
		}
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %q: no geometry", m.Name)
		}
		if m.Color != colorPalette[i] {
			t.Errorf("mesh %q: color = %q, want %q", m.Name, m.Color, colorPalette[i])
		}
	}
}

func TestE2EEmptySource(t *testing.T) {
	app, _ := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected one empty-instrument warning, got %v", result.Warnings)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app, _ := newTestApp(t)
	result := app.Evaluate(`(piece "test"`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2EStructuralErrorStops(t *testing.T) {
	app, _ := newTestApp(t)
	source := `
(instrument :resolution 2)
(piece "body"
  :internal (profile (pt 0 10) (pt 50 10))
  :external (profile (pt 0 14) (pt 50 14)))
`
	result := app.Evaluate(source)
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "resolution") {
		t.Fatalf("errors = %v, want one resolution error", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes, got %d", len(result.Meshes))
	}
}

func TestE2EFailedPieceKeepsOthers(t *testing.T) {
	app, logs := newTestApp(t)
	source := `
(def inner (profile (pt 0 10) (pt 50 10)))
(def outer (profile (pt 0 14) (pt 50 14)))
(piece "good" :internal inner :external outer :holes (list (hole 25 4)))
(piece "bad" :internal inner :external outer :holes (list (hole 80 4)))
`
	result := app.Evaluate(source)

	if len(result.Errors) != 1 || result.Errors[0].Piece != "bad" {
		t.Fatalf("errors = %v, want one error for piece bad", result.Errors)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].Name != "good" {
		t.Fatalf("meshes = %d, want only good", len(result.Meshes))
	}
	if !strings.Contains(logs.String(), `piece "bad" failed`) {
		t.Errorf("log = %q, want failure of piece bad", logs.String())
	}
}

func TestE2EWarnings(t *testing.T) {
	app, _ := newTestApp(t)
	source := `
(piece "body"
  :internal (profile (pt 0 10) (pt 50 10))
  :external (profile (pt 0 14) (pt 50 14))
  :holes (list (hole 20 4) (hole 23 4)))
`
	result := app.Evaluate(source)
	if len(result.Errors) > 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	found := 0
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, "cutters 1 and 2 intersect") {
			found++
		}
	}
	if found != 1 {
		t.Errorf("warnings = %v, want the intersection reported once", result.Warnings)
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	var b strings.Builder
	for i := 0; i < len(colorPalette)+1; i++ {
		b.WriteString("(piece \"p")
		b.WriteString(string(rune('a' + i)))
		b.WriteString("\" :internal (profile (pt 0 10) (pt 20 10)) :external (profile (pt 0 14) (pt 20 14)))\n")
	}
	app, _ := newTestApp(t)
	result := app.Evaluate(b.String())
	if len(result.Errors) > 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if len(result.Meshes) != len(colorPalette)+1 {
		t.Fatalf("meshes = %d, want %d", len(result.Meshes), len(colorPalette)+1)
	}
	if result.Meshes[len(colorPalette)].Color != colorPalette[0] {
		t.Errorf("palette did not wrap")
	}
}

func TestPieceFlag(t *testing.T) {
	var p pieceFlag
	if err := p.Set("head=a.json:b.json"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(p) != 1 || p[0].name != "head" || p[0].internal != "a.json" || p[0].external != "b.json" {
		t.Errorf("parsed = %+v", p)
	}
	for _, bad := range []string{"head", "=a:b", "head=a.json", "head=:b.json"} {
		if err := p.Set(bad); err == nil {
			t.Errorf("Set(%q) succeeded, want error", bad)
		}
	}
	if p.String() != "head=a.json:b.json" {
		t.Errorf("String() = %q", p.String())
	}
}

func TestNewKernel(t *testing.T) {
	cfg := config.Default()
	if _, err := newKernel(cfg); err != nil {
		t.Errorf("sdfx kernel: %v", err)
	}
	cfg.Kernel.Backend = "cgal"
	if _, err := newKernel(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func testTube(name string, length float64) profile.PieceSpec {
	return profile.PieceSpec{
		Name:     name,
		Internal: profile.Profile{{Position: 0, Diameter: 10}, {Position: length, Diameter: 10}},
		External: profile.Profile{{Position: 0, Diameter: 14}, {Position: length, Diameter: 14}},
	}
}

func TestBuildForExportInconsistentLengths(t *testing.T) {
	app, logs := newTestApp(t)
	in := instrument.New("flute")
	in.Defaults.Resolution = 16
	head := testTube("head", 20)
	head.TotalLength = profile.Length(20)
	body := testTube("body", 60)
	body.MortiseLength = profile.Length(30)
	in.AddPiece(head)
	in.AddPiece(body)

	asm, offsets, err := buildForExport(context.Background(), app, in)
	if err != nil {
		t.Fatalf("buildForExport() error = %v", err)
	}
	if offsets != nil {
		t.Errorf("offsets = %v, want nil", offsets)
	}
	if len(asm.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(asm.Placements))
	}
	for _, p := range asm.Placements {
		if p.Solid == nil || p.Offset != 0 {
			t.Errorf("placement %q: solid = %v, offset = %v, want a solid at 0", p.Name, p.Solid, p.Offset)
		}
	}
	if !strings.Contains(logs.String(), "exporting pieces unpositioned") {
		t.Errorf("log = %q, want unpositioned export notice", logs.String())
	}
}

func TestBuildForExportPositions(t *testing.T) {
	app, _ := newTestApp(t)
	in := instrument.New("flute")
	in.Defaults.Resolution = 16
	in.AddPiece(testTube("head", 40))
	in.AddPiece(testTube("body", 60))

	_, offsets, err := buildForExport(context.Background(), app, in)
	if err != nil {
		t.Fatalf("buildForExport() error = %v", err)
	}
	if len(offsets) != 2 || offsets[1] != 40 {
		t.Errorf("offsets = %v, want [0 40]", offsets)
	}
}
