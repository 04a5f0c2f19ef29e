// Package revolve builds solids of revolution from sanitized profiles.
//
// The profile's (position, radius) pairs form the generating curve in a
// half-plane containing the Z axis; the kernel sweeps it through 360
// degrees in a fixed number of equal angular steps.
package revolve

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/aulos/pkg/kernel"
	"github.com/chazu/aulos/pkg/profile"
)

// MinResolution is the smallest angular resolution that encloses volume.
const MinResolution = 3

// ErrInvalidResolution is returned for angular resolutions below
// MinResolution.
var ErrInvalidResolution = errors.New("invalid angular resolution")

// Builder sweeps profiles into solids on a kernel, optionally through a
// shared cache. A Builder is safe for concurrent use when its Cache is.
type Builder struct {
	Kernel kernel.Kernel
	Cache  Cache // may be nil
}

// NewBuilder returns a Builder on k using cache (which may be nil).
func NewBuilder(k kernel.Kernel, cache Cache) *Builder {
	return &Builder{Kernel: k, Cache: cache}
}

// BuildSolid returns the solid of revolution of p at the given angular
// resolution. p must already be sanitized. Returned solids are never
// modified afterwards, so solids at different resolutions can be compared
// side by side.
func (b *Builder) BuildSolid(p profile.Profile, resolution int) (kernel.Solid, error) {
	if resolution < MinResolution {
		return nil, fmt.Errorf("%w: %d, need at least %d", ErrInvalidResolution, resolution, MinResolution)
	}
	if err := CheckSweepable(p); err != nil {
		return nil, err
	}

	id := p.Hash()
	if b.Cache != nil {
		if s, ok := b.Cache.Get(id, resolution); ok {
			return s, nil
		}
	}

	s, err := b.Kernel.Revolve(p.Generatrix(), resolution)
	if err != nil {
		return nil, fmt.Errorf("revolve: %w", err)
	}
	if b.Cache != nil {
		b.Cache.Put(id, resolution, s)
	}
	return s, nil
}

// CheckSweepable reports whether p can be swept into a closed solid: at
// least two finite points, strictly increasing positions, non-negative
// diameters, and zero diameters only at the first or last point.
func CheckSweepable(p profile.Profile) error {
	if len(p) < 2 {
		return fmt.Errorf("%w: %d point(s), need at least 2", profile.ErrInvalidProfile, len(p))
	}
	last := len(p) - 1
	nonZero := 0
	for i, pt := range p {
		if math.IsNaN(pt.Diameter) || math.IsInf(pt.Diameter, 0) || math.IsInf(pt.Position, 0) {
			return fmt.Errorf("%w: point %d is not finite", profile.ErrInvalidProfile, i)
		}
		if pt.Diameter < 0 {
			return fmt.Errorf("%w: point %d has negative diameter %.4f", profile.ErrInvalidProfile, i, pt.Diameter)
		}
		if i > 0 && !(pt.Position > p[i-1].Position) {
			return fmt.Errorf("%w: positions not increasing at point %d; sanitize first",
				profile.ErrDegenerateProfile, i)
		}
		if pt.Diameter == 0 {
			if i != 0 && i != last {
				return fmt.Errorf("%w: zero radius at interior point %d (%.4f mm)",
					profile.ErrDegenerateProfile, i, pt.Position)
			}
			continue
		}
		nonZero++
	}
	if nonZero == 0 {
		return fmt.Errorf("%w: every radius is zero", profile.ErrDegenerateProfile)
	}
	return nil
}
