package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/config"
	"github.com/chazu/aulos/pkg/engine"
	"github.com/chazu/aulos/pkg/instrument"
	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/kernel/manifold"
	"github.com/chazu/aulos/pkg/kernel/sdfx"
	"github.com/chazu/aulos/pkg/revolve"
	"github.com/chazu/aulos/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App ties the DSL engine, the build pipeline and tessellation together.
// The revolution cache survives between evaluations, so re-evaluating an
// edited script only rebuilds the profiles that changed.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	cache  *revolve.MemoryCache
	logger *log.Logger
}

// MeshData is the JSON-serializable mesh format handed to viewers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Piece   string `json:"piece,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// newKernel returns the backend named by cfg.
func newKernel(cfg config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel.Backend {
	case config.BackendManifold:
		return manifold.New()
	case config.BackendSdfx, "":
		return sdfx.NewWithCells(cfg.Kernel.MeshCells), nil
	default:
		return nil, fmt.Errorf("unknown kernel backend %q", cfg.Kernel.Backend)
	}
}

// NewApp creates an App on kernel k. A nil logger uses log.Default().
func NewApp(cfg config.Config, k kernel.Kernel, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}
	return &App{
		cfg:    cfg,
		engine: engine.NewEngineWithDefaults(cfg.InstrumentDefaults()),
		kernel: k,
		cache:  revolve.NewMemoryCache(),
		logger: logger,
	}
}

// Build runs the pipeline over every piece of in.
func (a *App) Build(ctx context.Context, in *instrument.Instrument) (*assembly.Assembly, error) {
	opts := a.cfg.PieceOptions()
	if in.Defaults.Resolution > 0 {
		opts.Resolution = in.Defaults.Resolution
	}
	p := &assembly.Pipeline{
		Kernel:  a.kernel,
		Cache:   a.cache,
		Options: opts,
		Workers: a.cfg.Pipeline.Workers,
		Logger:  a.logger,
	}
	return p.Run(ctx, in.Name, in.Specs())
}

// Evaluate takes Lisp source and returns one mesh per built piece, plus
// errors and warnings. Pieces that fail are reported and skipped.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into an instrument.
	in, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 2: Structural problems stop everything; piece-level problems
	// only stop that piece and surface through the pipeline.
	for _, e := range instrument.Validate(in) {
		data := EvalErrorData{Piece: e.Piece, Message: e.Message}
		if e.Severity == instrument.SeverityWarning {
			result.Warnings = append(result.Warnings, data)
		} else {
			result.Errors = append(result.Errors, data)
		}
	}
	if len(result.Errors) > 0 || in.PieceCount() == 0 {
		return result
	}
	seen := make(map[string]bool)
	for _, w := range instrument.ValidateAll(in, a.cfg.PieceOptions()).Warnings {
		seen[fmt.Sprintf("piece %q: %s", w.Piece, w.Message)] = true
		result.Warnings = append(result.Warnings, EvalErrorData{Piece: w.Piece, Message: w.Message})
	}

	// Step 3: Build every piece.
	asm, err := a.Build(context.Background(), in)
	if err != nil {
		a.logger.Printf("Build error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, r := range asm.Pieces {
		if r != nil && r.Err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Piece: r.Name, Message: r.Err.Error()})
		}
	}
	for _, w := range asm.Warnings {
		if !seen[w] {
			result.Warnings = append(result.Warnings, EvalErrorData{Message: w})
		}
	}

	// Step 4: Tessellate each placed piece.
	meshes, err := tessellate.Tessellate(asm, a.kernel, tessellate.Pieces)
	if err != nil {
		a.logger.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshData(meshes)
	return result
}

func meshData(meshes []*kernel.Mesh) []MeshData {
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Name:     m.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return out
}
