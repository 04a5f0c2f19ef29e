// Package assembly places independently built pieces on a shared axis.
//
// Pieces are ordered head to foot. The first piece sits at offset 0; each
// following piece starts where the previous one ends, pulled back by its
// own mortise length when both the previous piece's total length and this
// piece's mortise length are known:
//
//	offset[i] = offset[i-1] + totalLength[i-1] - mortiseLength[i]
//
// Without that metadata the pieces abut, using the previous piece's
// largest external position as the increment. All pieces stay coaxial.
package assembly

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/profile"
)

// ErrAssemblyInconsistent is returned when length metadata cannot produce
// a non-decreasing set of offsets.
var ErrAssemblyInconsistent = errors.New("assembly inconsistent")

// Placement is one piece positioned on the instrument axis.
type Placement struct {
	Name   string
	Spec   profile.PieceSpec
	Offset float64      // axial translation, mm
	Solid  kernel.Solid // positioned final solid; nil when the piece failed
}

// Assembly is the ordered set of placed pieces plus their union.
type Assembly struct {
	Name       string
	Placements []Placement
	Solid      kernel.Solid    // union of every positioned solid; nil when none
	Pieces     []*piece.Result // per-piece artefacts, unpositioned; set by Pipeline
	Warnings   []string
}

// Offsets returns the axial offset of every piece.
func Offsets(specs []profile.PieceSpec) ([]float64, error) {
	for _, s := range specs {
		if err := checkLengths(s); err != nil {
			return nil, err
		}
	}
	offsets := make([]float64, len(specs))
	for i := 1; i < len(specs); i++ {
		prev, cur := specs[i-1], specs[i]
		var inc float64
		if prev.TotalLength != nil && cur.MortiseLength != nil {
			inc = *prev.TotalLength - *cur.MortiseLength
		} else {
			if len(prev.External) == 0 {
				return nil, fmt.Errorf("%w: piece %q has no length metadata and no external profile",
					ErrAssemblyInconsistent, prev.Name)
			}
			inc = prev.External.End()
		}
		if inc < 0 || math.IsNaN(inc) {
			return nil, fmt.Errorf("%w: piece %q would start %.4f mm before piece %q",
				ErrAssemblyInconsistent, cur.Name, -inc, prev.Name)
		}
		offsets[i] = offsets[i-1] + inc
	}
	return offsets, nil
}

func checkLengths(s profile.PieceSpec) error {
	if s.TotalLength != nil && (*s.TotalLength < 0 || math.IsNaN(*s.TotalLength) || math.IsInf(*s.TotalLength, 0)) {
		return fmt.Errorf("%w: piece %q total length %v", ErrAssemblyInconsistent, s.Name, *s.TotalLength)
	}
	if s.MortiseLength == nil {
		return nil
	}
	m := *s.MortiseLength
	if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: piece %q mortise length %v", ErrAssemblyInconsistent, s.Name, m)
	}
	if s.TotalLength != nil && m > *s.TotalLength {
		return fmt.Errorf("%w: piece %q mortise length %.4f mm exceeds total length %.4f mm",
			ErrAssemblyInconsistent, s.Name, m, *s.TotalLength)
	}
	return nil
}

// Assemble positions solids[i] at the offset of specs[i] and unions the
// results. A nil solid marks a failed piece: it keeps its placement but
// contributes nothing to the union.
func Assemble(k kernel.Kernel, specs []profile.PieceSpec, solids []kernel.Solid) (*Assembly, error) {
	if len(specs) != len(solids) {
		return nil, fmt.Errorf("assembly: %d pieces but %d solids", len(specs), len(solids))
	}
	offsets, err := Offsets(specs)
	if err != nil {
		return nil, err
	}

	asm := &Assembly{Placements: make([]Placement, len(specs))}
	var placed []kernel.Solid
	for i, spec := range specs {
		p := Placement{Name: spec.Name, Spec: spec, Offset: offsets[i]}
		if solids[i] != nil {
			p.Solid = k.Translate(solids[i], 0, 0, offsets[i])
			placed = append(placed, p.Solid)
		}
		asm.Placements[i] = p
	}
	if len(placed) > 0 {
		asm.Solid, err = k.Union(placed...)
		if err != nil {
			return nil, fmt.Errorf("assembly: union: %w", err)
		}
	}
	return asm, nil
}

// Offsets returns the offset of every placement in order.
func (a *Assembly) Offsets() []float64 {
	out := make([]float64, len(a.Placements))
	for i, p := range a.Placements {
		out[i] = p.Offset
	}
	return out
}

// Placement returns the placement named name.
func (a *Assembly) Placement(name string) (Placement, bool) {
	for _, p := range a.Placements {
		if p.Name == name {
			return p, true
		}
	}
	return Placement{}, false
}

// Unpositioned returns a copy of a that places every built piece at
// offset 0, for use when the offsets could not be computed. The copy has
// no union solid.
func (a *Assembly) Unpositioned() *Assembly {
	out := &Assembly{
		Name:       a.Name,
		Pieces:     a.Pieces,
		Warnings:   a.Warnings,
		Placements: make([]Placement, 0, len(a.Pieces)),
	}
	for _, r := range a.Pieces {
		if r == nil {
			continue
		}
		out.Placements = append(out.Placements, Placement{Name: r.Name, Spec: r.Spec, Solid: r.Final})
	}
	return out
}

// Err joins the errors of every failed piece, or returns nil.
func (a *Assembly) Err() error {
	var errs []error
	for _, r := range a.Pieces {
		if r != nil && r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
