// Package weighting implements the FDK cosine-weighting stage (spec
// §4.2): every detector pixel is scaled by the cosine-like factor that
// compensates for ray divergence before ramp filtering.
package weighting

import (
	"github.com/chewxy/math32"

	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/gpu"
)

// Map is the precomputed per-pixel weight, identical for every projection
// under a fixed detector geometry, so it is built once (the same
// hoist-the-rotation-invariant-part-out-of-the-hot-path shape as the
// cached filter kernel in §4.3) and reused across the whole run.
type Map struct {
	width  int
	height int
	w      []float32 // row-major, height x width
}

// NewMap precomputes the weight map for detector d.
func NewMap(d geometry.Detector) Map {
	dsd := d.DSD()
	hMin := d.DeltaS*d.LPxRow - float32(d.NRow)*d.LPxRow/2
	vMin := d.DeltaT*d.LPxCol - float32(d.NCol)*d.LPxCol/2

	w := make([]float32, d.NRow*d.NCol)
	for t := 0; t < d.NCol; t++ {
		vT := d.LPxCol/2 + float32(t)*d.LPxCol + vMin
		for s := 0; s < d.NRow; s++ {
			hS := d.LPxRow/2 + float32(s)*d.LPxRow + hMin
			w[t*d.NRow+s] = dsd / math32.Sqrt(dsd*dsd+hS*hS+vT*vT)
		}
	}
	return Map{width: d.NRow, height: d.NCol, w: w}
}

// At returns the weight for detector coordinate (s,t).
func (m Map) At(s, t int) float32 {
	return m.w[t*m.width+s]
}

// Apply scales every pixel of buf by the weight map in place.
func (m Map) Apply(buf gpu.Buffer2D) {
	for t := 0; t < m.height; t++ {
		row := buf.Row(t)
		base := t * m.width
		for s := 0; s < m.width; s++ {
			row[s] *= m.w[base+s]
		}
	}
}
