package assembly

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/profile"
	"github.com/chazu/aulos/pkg/revolve"
)

// DefaultWorkers is the number of pieces built concurrently when
// Pipeline.Workers is unset.
const DefaultWorkers = 4

// Pipeline builds every piece of an instrument and assembles them. Pieces
// are independent and run on a bounded pool of goroutines; the stages of
// one piece run in order on one goroutine. Offsets are computed once every
// piece has finished.
type Pipeline struct {
	Kernel  kernel.Kernel
	Cache   revolve.Cache // shared across pieces; may be nil
	Options piece.Options
	Workers int
	Logger  *log.Logger
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return DefaultWorkers
}

// Run builds and assembles specs under the instrument name. Failed pieces
// do not stop the others; their errors are in the returned Assembly's
// Pieces and Err. Run returns an error only when the context is cancelled
// or the offsets cannot be computed, and in both cases still returns the
// per-piece results.
//
// Cancellation is checked before each piece starts; a piece already
// building runs to completion.
func (p *Pipeline) Run(ctx context.Context, name string, specs []profile.PieceSpec) (*Assembly, error) {
	results := make([]*piece.Result, len(specs))
	b := piece.NewBuilder(p.Kernel, p.Cache, p.Options)

	sem := make(chan struct{}, p.workers())
	var wg sync.WaitGroup
	for i, spec := range specs {
		select {
		case <-ctx.Done():
			results[i] = &piece.Result{Name: spec.Name, Spec: spec, Err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, spec profile.PieceSpec) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results[i] = &piece.Result{Name: spec.Name, Spec: spec, Err: err}
				return
			}
			results[i] = b.Build(spec)
		}(i, spec)
	}
	wg.Wait()

	asm := &Assembly{Name: name, Pieces: results}
	for _, r := range results {
		for _, w := range r.Warnings {
			p.logger().Printf("warning: %s", w)
			asm.Warnings = append(asm.Warnings, w)
		}
		if r.Err != nil {
			p.logger().Printf("piece %q failed: %v", r.Name, r.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return asm, fmt.Errorf("assembly %q: %w", name, err)
	}

	placedSpecs := make([]profile.PieceSpec, len(results))
	solids := make([]kernel.Solid, len(results))
	for i, r := range results {
		placedSpecs[i] = r.Spec
		solids[i] = r.Final
	}
	placed, err := Assemble(p.Kernel, placedSpecs, solids)
	if err != nil {
		p.logger().Printf("assembly %q: %v", name, err)
		return asm, fmt.Errorf("assembly %q: %w", name, err)
	}
	asm.Placements = placed.Placements
	asm.Solid = placed.Solid
	return asm, nil
}
