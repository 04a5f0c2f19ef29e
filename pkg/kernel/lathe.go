package kernel

import (
	"fmt"
	"math"
)

// LatheMesh builds the faceted surface of revolution of a generatrix as an
// indexed, closed, outward-oriented triangle mesh. Each generatrix point
// becomes a ring of segments vertices at angles 2*pi*k/segments; a point
// with zero radius becomes a single apex and is allowed only at either
// end. Ends with a non-zero radius are closed by a flat cap fan.
//
// The triangle count is 2*segments per ring gap plus segments per cap or
// apex, so it grows strictly with segments.
func LatheMesh(generatrix [][2]float64, segments int) (*Mesh, error) {
	if segments < 3 {
		return nil, fmt.Errorf("lathe: %d segments, need at least 3", segments)
	}
	if len(generatrix) < 2 {
		return nil, fmt.Errorf("lathe: %d generatrix point(s), need at least 2", len(generatrix))
	}
	last := len(generatrix) - 1
	for i, g := range generatrix {
		if g[0] < 0 || math.IsNaN(g[0]) || math.IsNaN(g[1]) {
			return nil, fmt.Errorf("lathe: point %d has invalid radius %v", i, g[0])
		}
		if g[0] == 0 && i != 0 && i != last {
			return nil, fmt.Errorf("lathe: zero radius at interior point %d", i)
		}
		if i > 0 && g[1] <= generatrix[i-1][1] {
			return nil, fmt.Errorf("lathe: positions not increasing at point %d", i)
		}
	}
	if generatrix[0][0] == 0 && generatrix[last][0] == 0 && last == 1 {
		return nil, fmt.Errorf("lathe: generatrix lies on the axis")
	}

	m := &Mesh{}
	addVertex := func(x, y, z float64) uint32 {
		m.Vertices = append(m.Vertices, float32(x), float32(y), float32(z))
		return uint32(len(m.Vertices)/3 - 1)
	}
	tri := func(a, b, c uint32) {
		m.Indices = append(m.Indices, a, b, c)
	}

	cos := make([]float64, segments)
	sin := make([]float64, segments)
	for k := 0; k < segments; k++ {
		theta := 2 * math.Pi * float64(k) / float64(segments)
		cos[k], sin[k] = math.Cos(theta), math.Sin(theta)
	}

	// rings[i] holds the vertex indices of point i; an apex repeats one
	// index for every k.
	rings := make([][]uint32, len(generatrix))
	for i, g := range generatrix {
		r, z := g[0], g[1]
		ring := make([]uint32, segments)
		if r == 0 {
			apex := addVertex(0, 0, z)
			for k := range ring {
				ring[k] = apex
			}
		} else {
			for k := range ring {
				ring[k] = addVertex(r*cos[k], r*sin[k], z)
			}
		}
		rings[i] = ring
	}

	for i := 0; i < last; i++ {
		lo, hi := rings[i], rings[i+1]
		loApex := generatrix[i][0] == 0
		hiApex := generatrix[i+1][0] == 0
		for k := 0; k < segments; k++ {
			k1 := (k + 1) % segments
			a, b, c, d := lo[k], lo[k1], hi[k1], hi[k]
			switch {
			case loApex:
				tri(a, c, d)
			case hiApex:
				tri(a, b, c)
			default:
				tri(a, b, c)
				tri(a, c, d)
			}
		}
	}

	if generatrix[0][0] != 0 {
		center := addVertex(0, 0, generatrix[0][1])
		ring := rings[0]
		for k := 0; k < segments; k++ {
			tri(center, ring[(k+1)%segments], ring[k])
		}
	}
	if generatrix[last][0] != 0 {
		center := addVertex(0, 0, generatrix[last][1])
		ring := rings[last]
		for k := 0; k < segments; k++ {
			tri(center, ring[k], ring[(k+1)%segments])
		}
	}

	m.Normals = ComputeNormals(m.Vertices, m.Indices)
	return m, nil
}
