// Command aulos builds printable solids of a wind instrument from bore
// measurements or an instrument script.
//
//	aulos -script examples/flute.lisp -out out/
//	aulos -dir measurements/ -name traverso -granularity components
//	aulos -piece head=head.json:head_external.json -dxf head.dxf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/unixpickle/essentials"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/config"
	"github.com/chazu/aulos/pkg/engine"
	"github.com/chazu/aulos/pkg/export"
	"github.com/chazu/aulos/pkg/instrument"
	"github.com/chazu/aulos/pkg/loader"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/tessellate"
)

// pieceFlag collects -piece name=internal.json:external.json arguments.
type pieceFlag []pieceArg

type pieceArg struct {
	name, internal, external string
}

func (p *pieceFlag) String() string {
	parts := make([]string, len(*p))
	for i, a := range *p {
		parts[i] = a.name + "=" + a.internal + ":" + a.external
	}
	return strings.Join(parts, ",")
}

func (p *pieceFlag) Set(v string) error {
	name, files, ok := strings.Cut(v, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=internal.json:external.json, got %q", v)
	}
	internal, external, ok := strings.Cut(files, ":")
	if !ok || internal == "" || external == "" {
		return fmt.Errorf("want name=internal.json:external.json, got %q", v)
	}
	*p = append(*p, pieceArg{name: name, internal: internal, external: external})
	return nil
}

func main() {
	var (
		configPath  string
		scriptPath  string
		recordDir   string
		name        string
		outDir      string
		granularity string
		resolution  int
		dxfPath     string
		saveConfig  bool
		pieces      pieceFlag
	)
	flag.StringVar(&configPath, "config", config.DefaultPath(), "configuration file")
	flag.StringVar(&scriptPath, "script", "", "instrument script (.lisp)")
	flag.StringVar(&recordDir, "dir", "", "directory of <piece>.json / <piece>_external.json records")
	flag.Var(&pieces, "piece", "name=internal.json:external.json (repeatable, head first)")
	flag.StringVar(&name, "name", "instrument", "instrument name for record input")
	flag.StringVar(&outDir, "out", "out", "output directory for STL files")
	flag.StringVar(&granularity, "granularity", "pieces", "whole, pieces or components")
	flag.IntVar(&resolution, "resolution", 0, "angular resolution (overrides config)")
	flag.StringVar(&dxfPath, "dxf", "", "also write a profile section drawing to this DXF file")
	flag.BoolVar(&saveConfig, "save-config", false, "write the effective configuration to -config and exit")
	flag.Parse()

	runID := uuid.New().String()[:8]
	logger := log.New(os.Stderr, "aulos "+runID+" ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	essentials.Must(err)
	if resolution > 0 {
		cfg.Revolve.Resolution = resolution
	}
	essentials.Must(cfg.Validate())
	if saveConfig {
		essentials.Must(config.Save(configPath, cfg))
		logger.Printf("wrote %s", configPath)
		return
	}

	g, err := tessellate.ParseGranularity(granularity)
	essentials.Must(err)

	k, err := newKernel(cfg)
	essentials.Must(err)
	app := NewApp(cfg, k, logger)

	in, err := loadInstrument(app, cfg, scriptPath, recordDir, name, pieces)
	if err != nil {
		logger.Fatalf("load: %v", err)
	}
	if resolution > 0 {
		in.Defaults.Resolution = resolution
	}

	res := instrument.ValidateAll(in, cfg.PieceOptions())
	for _, w := range res.Warnings {
		logger.Printf("warning: piece %q: %s", w.Piece, w.Message)
	}
	for _, e := range res.Errors {
		logger.Printf("invalid: %v", e)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Printf("building %q: %d pieces at resolution %d", in.Name, in.PieceCount(), in.Defaults.Resolution)
	asm, offsets, err := buildForExport(ctx, app, in)
	if err != nil {
		logger.Fatalf("build: %v", err)
	}
	if offsets == nil && g == tessellate.Whole {
		logger.Printf("no assembled solid; writing pieces instead")
		g = tessellate.Pieces
	}

	meshes, err := tessellate.Tessellate(asm, k, g)
	if err != nil {
		logger.Fatalf("tessellate: %v", err)
	}
	reports, err := export.SaveAll(outDir, meshes)
	for _, r := range reports {
		logger.Printf("wrote %s (%d triangles, watertight=%v)", r.Path, r.Triangles, r.Watertight)
	}
	if err != nil {
		logger.Fatalf("export: %v", err)
	}

	if dxfPath != "" {
		essentials.Must(export.WriteProfileDXF(dxfPath, in.Specs(), offsets))
		logger.Printf("wrote %s", dxfPath)
	}

	if err := asm.Err(); err != nil {
		logger.Fatalf("%d of %d pieces failed: %v", failed(asm.Pieces), len(asm.Pieces), err)
	}
}

// buildForExport runs the pipeline. When the pieces built but could not be
// positioned, it logs the error and returns them unpositioned with nil
// offsets.
func buildForExport(ctx context.Context, app *App, in *instrument.Instrument) (*assembly.Assembly, []float64, error) {
	asm, err := app.Build(ctx, in)
	switch {
	case errors.Is(err, assembly.ErrAssemblyInconsistent) && asm != nil:
		app.logger.Printf("build: %v; exporting pieces unpositioned", err)
		return asm.Unpositioned(), nil, nil
	case err != nil:
		return nil, nil, err
	}
	return asm, asm.Offsets(), nil
}

// loadInstrument reads the instrument from a script, a record directory
// or explicit record pairs, in that order of preference.
func loadInstrument(app *App, cfg config.Config, script, dir, name string, pieces pieceFlag) (*instrument.Instrument, error) {
	switch {
	case script != "":
		src, err := os.ReadFile(script)
		if err != nil {
			return nil, err
		}
		in, evalErrs, err := app.engine.Evaluate(string(src))
		if err != nil {
			return nil, err
		}
		if len(evalErrs) > 0 {
			return nil, evalError(script, evalErrs)
		}
		return in, nil
	}

	opts := loader.Options{DefaultTaper: cfg.Cutter.DefaultTaper}
	in := instrument.New(name)
	in.Defaults = cfg.InstrumentDefaults()

	switch {
	case dir != "":
		specs, err := loader.LoadDir(dir, opts)
		if err != nil {
			return nil, err
		}
		for _, ps := range specs {
			in.AddPiece(ps)
		}
	case len(pieces) > 0:
		for _, p := range pieces {
			ps, err := loader.LoadPiece(p.name, p.internal, p.external, opts)
			if err != nil {
				return nil, err
			}
			in.AddPiece(ps)
		}
	default:
		return nil, fmt.Errorf("no input: use -script, -dir or -piece")
	}
	return in, nil
}

func evalError(script string, errs []engine.EvalError) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s: %s", script, strings.Join(msgs, "; "))
}

func failed(results []*piece.Result) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
