package export

import (
	"github.com/pkg/errors"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"

	"github.com/chazu/aulos/pkg/profile"
)

// Layer names of the profile drawing.
const (
	LayerAxis     = "AXIS"
	LayerExternal = "EXTERNAL"
	LayerInternal = "INTERNAL"
	LayerHoles    = "HOLES"
)

// WriteProfileDXF draws a longitudinal section of the pieces: the axis
// along X, both profiles mirrored about it and each hole as a pair of
// lines across the upper wall. offsets[i] shifts piece i along X; nil
// draws every piece at zero.
func WriteProfileDXF(path string, pieces []profile.PieceSpec, offsets []float64) error {
	if offsets != nil && len(offsets) != len(pieces) {
		return errors.Errorf("profile dxf: %d offsets for %d pieces", len(offsets), len(pieces))
	}
	d := dxf.NewDrawing()
	layers := []struct {
		name string
		c    color.ColorNumber
	}{
		{LayerAxis, color.Cyan},
		{LayerExternal, color.Blue},
		{LayerInternal, color.Red},
		{LayerHoles, color.Green},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.c, dxf.DefaultLineType, false); err != nil {
			return errors.Wrapf(err, "profile dxf: layer %s", l.name)
		}
	}

	lo, hi, seen := 0.0, 0.0, false
	for i, ps := range pieces {
		dz := 0.0
		if offsets != nil {
			dz = offsets[i]
		}
		if err := drawProfile(d, LayerExternal, ps.External, dz); err != nil {
			return errors.Wrapf(err, "profile dxf: piece %q", ps.Name)
		}
		if err := drawProfile(d, LayerInternal, ps.Internal, dz); err != nil {
			return errors.Wrapf(err, "profile dxf: piece %q", ps.Name)
		}
		if err := drawHoles(d, ps, dz); err != nil {
			return errors.Wrapf(err, "profile dxf: piece %q", ps.Name)
		}
		for _, p := range []profile.Profile{ps.Internal, ps.External} {
			if len(p) == 0 {
				continue
			}
			s, e := p.Start()+dz, p.End()+dz
			if !seen || s < lo {
				lo = s
			}
			if !seen || e > hi {
				hi = e
			}
			seen = true
		}
	}

	d.ChangeLayer(LayerAxis)
	if _, err := d.Line(lo, 0, 0, hi, 0, 0); err != nil {
		return errors.Wrap(err, "profile dxf: axis")
	}
	return errors.Wrapf(d.SaveAs(path), "profile dxf: save %s", path)
}

func drawProfile(d *dxf.Drawing, layer string, p profile.Profile, dz float64) error {
	d.ChangeLayer(layer)
	for i := 1; i < len(p); i++ {
		a, b := p[i-1], p[i]
		for _, sign := range []float64{1, -1} {
			if _, err := d.Line(a.Position+dz, sign*a.Radius(), 0, b.Position+dz, sign*b.Radius(), 0); err != nil {
				return err
			}
		}
	}
	return nil
}

func drawHoles(d *dxf.Drawing, ps profile.PieceSpec, dz float64) error {
	d.ChangeLayer(LayerHoles)
	for _, h := range ps.Holes {
		r := h.Diameter / 2
		inner := ps.Internal.RadiusAt(h.Position)
		outer := ps.External.RadiusAt(h.Position)
		for _, x := range []float64{h.Position - r, h.Position + r} {
			if _, err := d.Line(x+dz, inner, 0, x+dz, outer, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
