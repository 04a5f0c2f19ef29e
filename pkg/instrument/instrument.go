// Package instrument holds the ordered set of pieces that make up one
// instrument, as produced by the loader or the DSL engine.
package instrument

import (
	"fmt"

	"github.com/chazu/aulos/pkg/profile"
)

// DefaultResolution is the default angular resolution of swept solids.
const DefaultResolution = 64

// Defaults contains instrument-wide settings.
type Defaults struct {
	Resolution int     `json:"resolution"`  // angular steps per revolution
	TaperAngle float64 `json:"taper_angle"` // degrees, applied to holes without one
	Units      string  `json:"units"`       // "mm" (only option)
}

// Instrument is an ordered list of pieces, head first. Each evaluation of
// a script or set of records produces a new Instrument.
type Instrument struct {
	Name      string              `json:"name"`
	Pieces    []profile.PieceSpec `json:"pieces"`
	NameIndex map[string]int      `json:"name_index"`
	Defaults  Defaults            `json:"defaults"`
	Version   uint64              `json:"version"`
}

// New creates an empty Instrument with default settings.
func New(name string) *Instrument {
	return &Instrument{
		Name:      name,
		NameIndex: make(map[string]int),
		Defaults: Defaults{
			Resolution: DefaultResolution,
			Units:      "mm",
		},
	}
}

// AddPiece appends a piece. It does not check for duplicate names;
// Validate reports them.
func (in *Instrument) AddPiece(ps profile.PieceSpec) {
	in.Pieces = append(in.Pieces, ps)
	if ps.Name != "" {
		if _, ok := in.NameIndex[ps.Name]; !ok {
			in.NameIndex[ps.Name] = len(in.Pieces) - 1
		}
	}
}

// Lookup returns the piece with the given name, or nil.
func (in *Instrument) Lookup(name string) *profile.PieceSpec {
	i, ok := in.NameIndex[name]
	if !ok || i < 0 || i >= len(in.Pieces) {
		return nil
	}
	return &in.Pieces[i]
}

// MustLookup returns the piece with the given name, or panics.
func (in *Instrument) MustLookup(name string) *profile.PieceSpec {
	p := in.Lookup(name)
	if p == nil {
		panic(fmt.Sprintf("instrument: no piece named %q", name))
	}
	return p
}

// PieceCount returns the number of pieces.
func (in *Instrument) PieceCount() int {
	return len(in.Pieces)
}

// Specs returns a copy of the pieces in order.
func (in *Instrument) Specs() []profile.PieceSpec {
	out := make([]profile.PieceSpec, len(in.Pieces))
	copy(out, in.Pieces)
	return out
}
