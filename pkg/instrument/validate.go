package instrument

import (
	"fmt"
	"math"

	"github.com/chazu/aulos/pkg/assembly"
	"github.com/chazu/aulos/pkg/cutter"
	"github.com/chazu/aulos/pkg/piece"
	"github.com/chazu/aulos/pkg/profile"
	"github.com/chazu/aulos/pkg/revolve"
)

// ThinWall is the wall thickness, in mm, below which a warning is issued.
const ThinWall = 1.0

// ValidationSeverity indicates whether a validation finding blocks
// building or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks building the piece
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. Err, when set,
// is the taxonomy error behind it.
type ValidationError struct {
	Piece    string // which piece has the problem (empty if instrument-level)
	Message  string
	Severity ValidationSeverity
	Err      error
}

func (e ValidationError) Error() string {
	if e.Piece == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] piece %q: %s", e.Severity, e.Piece, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Piece   string
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs the Tier 1 structural checks and returns the findings. An
// empty slice means the instrument is structurally valid. Validate never
// mutates the instrument.
func Validate(in *Instrument) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDefaults(in)...)
	errs = append(errs, validateNames(in)...)
	errs = append(errs, validateProfiles(in)...)
	errs = append(errs, validateLengths(in)...)
	return errs
}

// ValidateAll runs every tier: structural (Tier 1), geometric on the
// sanitized profiles (Tier 2) and advisory checks (Tier 3). Cutters are
// resolved with the margin and taper direction the pipeline will use.
func ValidateAll(in *Instrument, opts piece.Options) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(in) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{Piece: e.Piece, Message: e.Message})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	gen := &cutter.Generator{Margin: opts.Margin, Direction: opts.Direction}
	for _, ps := range in.Pieces {
		sanitized, err := ps.Sanitized(opts.Sanitizer)
		if err != nil {
			result.Errors = append(result.Errors, pieceError(ps.Name, err))
			continue
		}
		errs, warnings := validateGeometry(sanitized, gen)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result
}

func pieceError(name string, err error) ValidationError {
	return ValidationError{Piece: name, Message: err.Error(), Severity: SeverityError, Err: err}
}

func validateDefaults(in *Instrument) []ValidationError {
	var errs []ValidationError
	if in.Defaults.Resolution < revolve.MinResolution {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("resolution %d is below %d", in.Defaults.Resolution, revolve.MinResolution),
			Severity: SeverityError,
			Err:      revolve.ErrInvalidResolution,
		})
	}
	if math.Abs(in.Defaults.TaperAngle) >= 90 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("default taper angle %.2f° must be within (-90°, 90°)", in.Defaults.TaperAngle),
			Severity: SeverityError,
			Err:      profile.ErrInvalidHole,
		})
	}
	if len(in.Pieces) == 0 {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("instrument %q has no pieces", in.Name),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateNames checks that every piece is named, names are unique and
// NameIndex points at the right pieces.
func validateNames(in *Instrument) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)
	for i, ps := range in.Pieces {
		if ps.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("piece %d has no name", i+1),
				Severity: SeverityError,
			})
			continue
		}
		seen[ps.Name]++
	}
	for name, n := range seen {
		if n > 1 {
			errs = append(errs, ValidationError{
				Piece:    name,
				Message:  fmt.Sprintf("duplicate name %q assigned to %d pieces", name, n),
				Severity: SeverityError,
			})
		}
	}
	for name, i := range in.NameIndex {
		if i < 0 || i >= len(in.Pieces) || in.Pieces[i].Name != name {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references no piece", name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateProfiles(in *Instrument) []ValidationError {
	var errs []ValidationError
	for _, ps := range in.Pieces {
		for _, side := range []struct {
			label string
			p     profile.Profile
		}{{"internal", ps.Internal}, {"external", ps.External}} {
			if len(side.p) < 2 {
				errs = append(errs, ValidationError{
					Piece:    ps.Name,
					Message:  fmt.Sprintf("%s profile has %d point(s), need at least 2", side.label, len(side.p)),
					Severity: SeverityError,
					Err:      profile.ErrInvalidProfile,
				})
			}
		}
	}
	return errs
}

func validateLengths(in *Instrument) []ValidationError {
	var errs []ValidationError
	if _, err := assembly.Offsets(in.Pieces); err != nil {
		errs = append(errs, ValidationError{
			Message:  err.Error(),
			Severity: SeverityError,
			Err:      err,
		})
	}
	return errs
}

// validateGeometry runs the Tier 2 and Tier 3 checks on one sanitized
// piece.
func validateGeometry(ps profile.PieceSpec, gen *cutter.Generator) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	if err := ps.Validate(); err != nil {
		return append(errs, pieceError(ps.Name, err)), nil
	}

	warnings = append(warnings, thinWalls(ps)...)

	for i, h := range ps.Holes {
		bore := 2 * ps.Internal.RadiusAt(h.Position)
		if h.Diameter >= bore {
			warnings = append(warnings, ValidationWarning{
				Piece:   ps.Name,
				Message: fmt.Sprintf("hole %d diameter %.2f mm is not smaller than the bore (%.2f mm)", i+1, h.Diameter, bore),
			})
		}
	}

	geos, err := gen.Geometries(ps, ps.External.RadiusAt)
	if err != nil {
		return append(errs, pieceError(ps.Name, err)), warnings
	}
	for _, o := range cutter.Intersections(geos) {
		warnings = append(warnings, ValidationWarning{Piece: ps.Name, Message: o.String()})
	}
	return errs, warnings
}

// thinWalls warns once for the thinnest wall below ThinWall.
func thinWalls(ps profile.PieceSpec) []ValidationWarning {
	lo := math.Max(ps.Internal.Start(), ps.External.Start())
	hi := math.Min(ps.Internal.End(), ps.External.End())
	minWall, at := math.Inf(1), 0.0
	for _, z := range append(ps.Internal.Positions(), ps.External.Positions()...) {
		if z < lo || z > hi {
			continue
		}
		if w := ps.External.RadiusAt(z) - ps.Internal.RadiusAt(z); w < minWall {
			minWall, at = w, z
		}
	}
	if minWall < ThinWall {
		return []ValidationWarning{{
			Piece:   ps.Name,
			Message: fmt.Sprintf("wall is %.2f mm thick at %.2f mm", minWall, at),
		}}
	}
	return nil
}
