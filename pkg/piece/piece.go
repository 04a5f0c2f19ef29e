// Package piece turns one PieceSpec into a hollow, perforated solid.
//
// The stages run strictly in order: sanitize, validate, revolve both
// profiles, build cutters, subtract the bore, subtract each cutter. A
// failing stage stops the piece but leaves every solid built before it
// in the Result for inspection.
package piece

import (
	"errors"
	"fmt"

	"github.com/chazu/aulos/pkg/cutter"
	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/profile"
	"github.com/chazu/aulos/pkg/revolve"
)

// booleanErr makes sure err carries kernel.ErrBooleanFailed.
func booleanErr(op string, err error) error {
	if errors.Is(err, kernel.ErrBooleanFailed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, kernel.ErrBooleanFailed, err)
}

// Hollow subtracts the internal solid from the external one.
func Hollow(k kernel.Kernel, external, internal kernel.Solid) (kernel.Solid, error) {
	if external == nil || internal == nil {
		return nil, fmt.Errorf("hollow: %w: missing solid", kernel.ErrBooleanFailed)
	}
	s, err := k.Difference(external, internal)
	if err != nil {
		return nil, booleanErr("hollow", err)
	}
	return s, nil
}

// Perforate subtracts the cutters from hollow one at a time. Subtraction
// order does not change the result for disjoint cutters.
func Perforate(k kernel.Kernel, hollow kernel.Solid, cutters []kernel.Solid) (kernel.Solid, error) {
	s := hollow
	for i, c := range cutters {
		next, err := k.Difference(s, c)
		if err != nil {
			return nil, booleanErr(fmt.Sprintf("cutter %d", i+1), err)
		}
		s = next
	}
	return s, nil
}

// Assemble returns (external - internal) - cutters for ps.
func Assemble(k kernel.Kernel, ps profile.PieceSpec, external, internal kernel.Solid, cutters []kernel.Solid) (kernel.Solid, error) {
	hollow, err := Hollow(k, external, internal)
	if err != nil {
		return nil, fmt.Errorf("piece %q: %w", ps.Name, err)
	}
	final, err := Perforate(k, hollow, cutters)
	if err != nil {
		return nil, fmt.Errorf("piece %q: %w", ps.Name, err)
	}
	return final, nil
}

// Result holds every artefact built for one piece. Solids after the
// failing stage are nil; Err records the failure.
type Result struct {
	Name     string
	Spec     profile.PieceSpec // sanitized when sanitation succeeded, raw otherwise
	External kernel.Solid
	Internal kernel.Solid
	Cutters  []kernel.Solid
	Geometry []cutter.Geometry
	Hollow   kernel.Solid
	Final    kernel.Solid
	Warnings []string
	Err      error
}

// Failed reports whether the piece has no final solid.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Options configures a Builder.
type Options struct {
	Resolution int // angular resolution for profiles and cutters
	Margin     float64
	Direction  cutter.TaperDirection
	Sanitizer  profile.Sanitizer
}

// Builder runs the per-piece stages on one kernel.
type Builder struct {
	Kernel     kernel.Kernel
	Revolver   *revolve.Builder
	Cutters    *cutter.Generator
	Sanitizer  profile.Sanitizer
	Resolution int
}

// NewBuilder returns a Builder on k. cache may be nil.
func NewBuilder(k kernel.Kernel, cache revolve.Cache, opts Options) *Builder {
	return &Builder{
		Kernel:   k,
		Revolver: revolve.NewBuilder(k, cache),
		Cutters: &cutter.Generator{
			Kernel:    k,
			Margin:    opts.Margin,
			Direction: opts.Direction,
			Segments:  opts.Resolution,
		},
		Sanitizer:  opts.Sanitizer,
		Resolution: opts.Resolution,
	}
}

// Build runs every stage for ps. It never returns nil.
func (b *Builder) Build(ps profile.PieceSpec) *Result {
	res := &Result{Name: ps.Name, Spec: ps}

	spec, err := ps.Sanitized(b.Sanitizer)
	if err != nil {
		res.Err = err
		return res
	}
	res.Spec = spec
	if err := spec.Validate(); err != nil {
		res.Err = err
		return res
	}

	res.External, err = b.Revolver.BuildSolid(spec.External, b.Resolution)
	if err != nil {
		res.Err = fmt.Errorf("piece %q: external: %w", spec.Name, err)
		return res
	}
	res.Internal, err = b.Revolver.BuildSolid(spec.Internal, b.Resolution)
	if err != nil {
		res.Err = fmt.Errorf("piece %q: internal: %w", spec.Name, err)
		return res
	}

	res.Geometry, err = b.Cutters.Geometries(spec, spec.External.RadiusAt)
	if err != nil {
		res.Err = err
		return res
	}
	for _, o := range cutter.Intersections(res.Geometry) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("piece %q: %s", spec.Name, o))
	}
	for _, geo := range res.Geometry {
		c, err := b.Cutters.Solid(geo)
		if err != nil {
			res.Err = fmt.Errorf("piece %q: %w", spec.Name, err)
			return res
		}
		res.Cutters = append(res.Cutters, c)
	}

	res.Hollow, err = Hollow(b.Kernel, res.External, res.Internal)
	if err != nil {
		res.Err = fmt.Errorf("piece %q: %w", spec.Name, err)
		return res
	}
	res.Final, err = Perforate(b.Kernel, res.Hollow, res.Cutters)
	if err != nil {
		res.Err = fmt.Errorf("piece %q: %w", spec.Name, err)
		return res
	}
	return res
}
