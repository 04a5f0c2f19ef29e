// Package tessellate turns an assembly into named triangle meshes using a
// geometry kernel. One mesh is produced per solid at the requested
// granularity.
package tessellate

import (
	"fmt"
	"strings"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/kernel"
)

// Granularity selects which solids become meshes.
type Granularity int

const (
	// Whole is one mesh for the assembled instrument.
	Whole Granularity = iota
	// Pieces is one positioned mesh per successfully built piece.
	Pieces
	// Components is one positioned mesh per external shell, internal
	// shell and cutter of every piece.
	Components
)

func (g Granularity) String() string {
	switch g {
	case Whole:
		return "whole"
	case Pieces:
		return "pieces"
	case Components:
		return "components"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity parses "whole", "pieces" or "components".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "whole", "assembly":
		return Whole, nil
	case "pieces", "piece":
		return Pieces, nil
	case "components", "component":
		return Components, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

// Component identifies one part of a piece.
type Component int

const (
	Final Component = iota
	External
	Internal
	Cutter
)

// ComponentName returns the stable export name of a component:
// "<piece>", "<piece>_EXTERNAL", "<piece>_INTERNAL" or
// "<piece>_CUTTER_<index>" with a 1-based index.
func ComponentName(piece string, c Component, index int) string {
	switch c {
	case External:
		return piece + "_EXTERNAL"
	case Internal:
		return piece + "_INTERNAL"
	case Cutter:
		return fmt.Sprintf("%s_CUTTER_%d", piece, index)
	default:
		return piece
	}
}

// Target is a named solid ready for tessellation.
type Target struct {
	Name  string
	Solid kernel.Solid
}

// Targets lists the solids of asm at granularity g, positioned on the
// shared axis. Missing solids (failed pieces, failed stages) are skipped.
func Targets(asm *assembly.Assembly, k kernel.Kernel, g Granularity) ([]Target, error) {
	if asm == nil {
		return nil, nil
	}
	switch g {
	case Whole:
		if asm.Solid == nil {
			return nil, fmt.Errorf("tessellate: assembly %q has no solid", asm.Name)
		}
		return []Target{{Name: asm.Name, Solid: asm.Solid}}, nil

	case Pieces:
		var out []Target
		for _, p := range asm.Placements {
			if p.Solid != nil {
				out = append(out, Target{Name: ComponentName(p.Name, Final, 0), Solid: p.Solid})
			}
		}
		return out, nil

	case Components:
		var out []Target
		for i, r := range asm.Pieces {
			if r == nil {
				continue
			}
			var offset float64
			if i < len(asm.Placements) {
				offset = asm.Placements[i].Offset
			}
			place := func(s kernel.Solid) kernel.Solid {
				if offset == 0 {
					return s
				}
				return k.Translate(s, 0, 0, offset)
			}
			if r.External != nil {
				out = append(out, Target{Name: ComponentName(r.Name, External, 0), Solid: place(r.External)})
			}
			if r.Internal != nil {
				out = append(out, Target{Name: ComponentName(r.Name, Internal, 0), Solid: place(r.Internal)})
			}
			for j, c := range r.Cutters {
				out = append(out, Target{Name: ComponentName(r.Name, Cutter, j+1), Solid: place(c)})
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("tessellate: unknown granularity %v", g)
	}
}

// Tessellate produces one named mesh per target of asm at granularity g.
// The tessellator is read-only and never mutates the assembly.
func Tessellate(asm *assembly.Assembly, k kernel.Kernel, g Granularity) ([]*kernel.Mesh, error) {
	targets, err := Targets(asm, k, g)
	if err != nil {
		return nil, err
	}
	meshes := make([]*kernel.Mesh, 0, len(targets))
	for _, t := range targets {
		mesh, err := k.ToMesh(t.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", t.Name, err)
		}
		mesh.Name = t.Name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
