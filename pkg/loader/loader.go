// Package loader decodes the per-piece measurement records produced by the
// bore measuring tools into PieceSpecs.
//
// Each piece has two JSON records: the internal (bore) record, which also
// carries the tone holes and optional length metadata, and the external
// record. Hole data arrives as parallel position/diameter arrays.
package loader

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/chazu/aulos/pkg/profile"
)

// Sentinel errors for malformed records.
var (
	ErrMissingField = errors.New("missing field")
	ErrMismatch     = errors.New("mismatched hole arrays")
)

// Measurement is one sample of a record.
type Measurement struct {
	Position *float64 `json:"position"`
	Diameter *float64 `json:"diameter"`
}

// Record is one decoded JSON measurement file.
type Record struct {
	Part          string        `json:"Part,omitempty"`
	Measurements  []Measurement `json:"measurements"`
	NumberOfHoles *int          `json:"Number of holes,omitempty"`
	HolesPosition []float64     `json:"Holes position,omitempty"`
	HolesDiameter []float64     `json:"Holes diameter,omitempty"`
	TotalLength   *float64      `json:"Total length,omitempty"`
	MortiseLength *float64      `json:"Mortise length,omitempty"`
}

// Options control how records become pieces.
type Options struct {
	DefaultTaper float64 // degrees, applied to every hole
}

// ReadRecord decodes one record from r.
func ReadRecord(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	if rec.Measurements == nil {
		return nil, errors.Wrap(ErrMissingField, "measurements")
	}
	return &rec, nil
}

// ReadRecordFile decodes the record stored at path.
func ReadRecordFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open record")
	}
	defer f.Close()
	rec, err := ReadRecord(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rec, nil
}

// Profile converts the record's measurements, in file order.
func (r *Record) Profile() (profile.Profile, error) {
	out := make(profile.Profile, 0, len(r.Measurements))
	for i, m := range r.Measurements {
		if m.Position == nil {
			return nil, errors.Wrapf(ErrMissingField, "measurement %d: position", i+1)
		}
		if m.Diameter == nil {
			return nil, errors.Wrapf(ErrMissingField, "measurement %d: diameter", i+1)
		}
		out = append(out, profile.Point{Position: *m.Position, Diameter: *m.Diameter})
	}
	return out, nil
}

// Holes pairs the parallel hole arrays. When "Number of holes" is present
// only that many holes are read; the arrays must hold at least that many.
func (r *Record) Holes(taper float64) ([]profile.HoleSpec, error) {
	if len(r.HolesPosition) != len(r.HolesDiameter) {
		return nil, errors.Wrapf(ErrMismatch, "%d positions, %d diameters",
			len(r.HolesPosition), len(r.HolesDiameter))
	}
	n := len(r.HolesPosition)
	if r.NumberOfHoles != nil {
		if *r.NumberOfHoles < 0 || *r.NumberOfHoles > n {
			return nil, errors.Wrapf(ErrMismatch, "Number of holes is %d, arrays hold %d",
				*r.NumberOfHoles, n)
		}
		n = *r.NumberOfHoles
	}
	holes := make([]profile.HoleSpec, n)
	for i := range holes {
		holes[i] = profile.HoleSpec{
			Position:   r.HolesPosition[i],
			Diameter:   r.HolesDiameter[i],
			TaperAngle: taper,
		}
	}
	return holes, nil
}

// Piece builds a PieceSpec from its two records. Length metadata is read
// from the internal record, then the external one. An empty name falls
// back to the internal record's Part.
func Piece(name string, internal, external *Record, opts Options) (profile.PieceSpec, error) {
	if name == "" {
		name = internal.Part
	}
	if math.IsNaN(opts.DefaultTaper) || math.Abs(opts.DefaultTaper) >= 90 {
		return profile.PieceSpec{}, errors.Errorf("piece %q: default taper %v out of range", name, opts.DefaultTaper)
	}
	in, err := internal.Profile()
	if err != nil {
		return profile.PieceSpec{}, errors.Wrapf(err, "piece %q: internal record", name)
	}
	ex, err := external.Profile()
	if err != nil {
		return profile.PieceSpec{}, errors.Wrapf(err, "piece %q: external record", name)
	}
	holes, err := internal.Holes(opts.DefaultTaper)
	if err != nil {
		return profile.PieceSpec{}, errors.Wrapf(err, "piece %q: internal record", name)
	}
	ps := profile.PieceSpec{
		Name:          name,
		Internal:      in,
		External:      ex,
		Holes:         holes,
		TotalLength:   firstLength(internal.TotalLength, external.TotalLength),
		MortiseLength: firstLength(internal.MortiseLength, external.MortiseLength),
	}
	return ps, nil
}

func firstLength(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return profile.Length(*v)
		}
	}
	return nil
}

// DecodePiece reads both records and builds the piece.
func DecodePiece(name string, internal, external io.Reader, opts Options) (profile.PieceSpec, error) {
	in, err := ReadRecord(internal)
	if err != nil {
		return profile.PieceSpec{}, errors.Wrap(err, "internal record")
	}
	ex, err := ReadRecord(external)
	if err != nil {
		return profile.PieceSpec{}, errors.Wrap(err, "external record")
	}
	return Piece(name, in, ex, opts)
}

// LoadPiece reads the two record files of one piece.
func LoadPiece(name, internalPath, externalPath string, opts Options) (profile.PieceSpec, error) {
	in, err := ReadRecordFile(internalPath)
	if err != nil {
		return profile.PieceSpec{}, err
	}
	ex, err := ReadRecordFile(externalPath)
	if err != nil {
		return profile.PieceSpec{}, err
	}
	return Piece(name, in, ex, opts)
}

// ExternalSuffix marks the external record of a piece: head.json pairs
// with head_external.json.
const ExternalSuffix = "_external"

// PieceOrder is the head-to-foot order of the usual flute pieces. Other
// pieces follow in name order.
var PieceOrder = []string{"headjoint", "left", "right", "foot"}

// LoadDir loads every complete record pair in dir, head first.
func LoadDir(dir string, opts Options) ([]profile.PieceSpec, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	names := make(map[string]bool)
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".json")
		if strings.HasSuffix(base, ExternalSuffix) {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, base+ExternalSuffix+".json")); err == nil {
			names[base] = true
		}
	}
	if len(names) == 0 {
		return nil, errors.Errorf("%s: no record pairs found", dir)
	}

	ordered := make([]string, 0, len(names))
	for _, n := range PieceOrder {
		if names[n] {
			ordered = append(ordered, n)
			delete(names, n)
		}
	}
	rest := make([]string, 0, len(names))
	for n := range names {
		rest = append(rest, n)
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	specs := make([]profile.PieceSpec, 0, len(ordered))
	for _, n := range ordered {
		ps, err := LoadPiece(n,
			filepath.Join(dir, n+".json"),
			filepath.Join(dir, n+ExternalSuffix+".json"), opts)
		if err != nil {
			return nil, err
		}
		specs = append(specs, ps)
	}
	return specs, nil
}
