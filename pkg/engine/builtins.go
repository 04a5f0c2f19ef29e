package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/aulos/pkg/instrument"
	"github.com/chazu/aulos/pkg/profile"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites instrument source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot clash with user variables.
//  2. Kebab-case identifiers become snake case (total-length ->
//     total_length); zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
			continue
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipQuoted returns the index just past the literal starting at b[i].
func skipQuoted(b []byte, i int, quote byte, escapes bool) int {
	j := i + 1
	for j < len(b) && b[j] != quote {
		if escapes && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Sexp wrappers for Go values passed between builtins
// ---------------------------------------------------------------------------

type sexpPoint struct {
	pt profile.Point
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g)", p.pt.Position, p.pt.Diameter)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

type sexpProfile struct {
	p profile.Profile
}

func (p *sexpProfile) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(profile %d points)", len(p.p))
}
func (p *sexpProfile) Type() *zygo.RegisteredType { return nil }

// sexpHole carries a hole and whether its taper was given explicitly.
type sexpHole struct {
	spec     profile.HoleSpec
	explicit bool
}

func (h *sexpHole) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(hole %g %g)", h.spec.Position, h.spec.Diameter)
}
func (h *sexpHole) Type() *zygo.RegisteredType { return nil }

type sexpPieceRef struct {
	name string
}

func (r *sexpPieceRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(piece %q)", r.name)
}
func (r *sexpPieceRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// only rejects keywords outside allowed.
func (a kwArgs) only(fn string, allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, name := range allowed {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: unknown keyword :%s", fn, k)
		}
	}
	return nil
}

// float returns the numeric keyword value, if present.
func (a kwArgs) float(fn, key string) (float64, bool, error) {
	v, ok := a.kw[key]
	if !ok {
		return 0, false, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return f, true, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toProfile(s zygo.Sexp) (profile.Profile, error) {
	if p, ok := s.(*sexpProfile); ok {
		return p.p.Clone(), nil
	}
	return nil, fmt.Errorf("expected profile, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flatten expands list and array arguments one level.
func flatten(args []zygo.Sexp) []zygo.Sexp {
	var out []zygo.Sexp
	for _, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err == nil {
				out = append(out, items...)
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Instrument builder
// ---------------------------------------------------------------------------

type holeRef struct {
	piece, hole int
}

// builder collects pieces into an Instrument during one evaluation.
type builder struct {
	in *instrument.Instrument
	// holes without an explicit taper; they take the instrument's default
	// once evaluation ends, so (instrument :taper ...) may come last.
	untapered []holeRef
}

func newBuilder(in *instrument.Instrument) *builder {
	return &builder{in: in}
}

func (b *builder) finish() {
	for _, r := range b.untapered {
		b.in.Pieces[r.piece].Holes[r.hole].TaperAngle = b.in.Defaults.TaperAngle
	}
	b.untapered = nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the instrument DSL into a zygomys environment.
// Source code must be preprocessed with preprocessSource() first.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (pt 7.0 19.0) -> position, diameter
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pt requires a position and a diameter, got %d arguments", len(args))
		}
		pos, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: position: %w", err)
		}
		dia, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pt: diameter: %w", err)
		}
		return &sexpPoint{pt: profile.Point{Position: pos, Diameter: dia}}, nil
	})

	// (profile (pt 0 19) (pt 7 19) ...) or (profile (list ...))
	env.AddFunction("profile", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var p profile.Profile
		for i, a := range flatten(args) {
			pt, ok := a.(*sexpPoint)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("profile: point %d: expected pt, got %T (%s)",
					i+1, a, a.SexpString(nil))
			}
			p = append(p, pt.pt)
		}
		return &sexpProfile{p: p}, nil
	})

	// (hole 100 10 :taper 5)
	env.AddFunction("hole", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("hole", "taper"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("hole requires a position and a diameter")
		}
		pos, err := toFloat64(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: position: %w", err)
		}
		dia, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: diameter: %w", err)
		}
		taper, explicit, err := pa.float("hole", "taper")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpHole{
			spec:     profile.HoleSpec{Position: pos, Diameter: dia, TaperAngle: taper},
			explicit: explicit,
		}, nil
	})

	// (piece "headjoint" :internal p :external p :holes (list ...)
	//        :total-length 218.8 :mortise-length 22)
	env.AddFunction("piece", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("piece", "internal", "external", "holes", "total-length", "mortise-length"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("piece requires a name argument")
		}
		pieceName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("piece: name: %w", err)
		}
		if b.in.Lookup(pieceName) != nil {
			return zygo.SexpNull, fmt.Errorf("piece: %q already defined", pieceName)
		}

		ps := profile.PieceSpec{Name: pieceName}
		for _, side := range []struct {
			key string
			dst *profile.Profile
		}{{"internal", &ps.Internal}, {"external", &ps.External}} {
			v, ok := pa.kw[side.key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("piece %q: missing :%s profile", pieceName, side.key)
			}
			p, err := toProfile(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("piece %q: %s: %w", pieceName, side.key, err)
			}
			*side.dst = p
		}

		var untapered []int
		if v, ok := pa.kw["holes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("piece %q: holes: %w", pieceName, err)
			}
			for i, item := range items {
				h, ok := item.(*sexpHole)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("piece %q: hole %d: expected hole, got %T (%s)",
						pieceName, i+1, item, item.SexpString(nil))
				}
				if !h.explicit {
					untapered = append(untapered, len(ps.Holes))
				}
				ps.Holes = append(ps.Holes, h.spec)
			}
		}

		if v, ok, err := pa.float("piece", "total-length"); err != nil {
			return zygo.SexpNull, err
		} else if ok {
			ps.TotalLength = profile.Length(v)
		}
		if v, ok, err := pa.float("piece", "mortise-length"); err != nil {
			return zygo.SexpNull, err
		} else if ok {
			ps.MortiseLength = profile.Length(v)
		}

		b.in.AddPiece(ps)
		idx := b.in.PieceCount() - 1
		for _, h := range untapered {
			b.untapered = append(b.untapered, holeRef{piece: idx, hole: h})
		}
		return &sexpPieceRef{name: pieceName}, nil
	})

	// (instrument "flute" :resolution 64 :taper 5)
	env.AddFunction("instrument", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("instrument", "resolution", "taper"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) > 1 {
			return zygo.SexpNull, fmt.Errorf("instrument takes at most one name argument")
		}
		if len(pa.positional) == 1 {
			n, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instrument: name: %w", err)
			}
			b.in.Name = n
		}
		if v, ok, err := pa.float("instrument", "resolution"); err != nil {
			return zygo.SexpNull, err
		} else if ok {
			if v != float64(int(v)) {
				return zygo.SexpNull, fmt.Errorf("instrument: resolution must be an integer, got %g", v)
			}
			b.in.Defaults.Resolution = int(v)
		}
		if v, ok, err := pa.float("instrument", "taper"); err != nil {
			return zygo.SexpNull, err
		} else if ok {
			b.in.Defaults.TaperAngle = v
		}
		return &zygo.SexpStr{S: b.in.Name}, nil
	})
}
