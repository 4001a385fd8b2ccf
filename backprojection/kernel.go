// Package backprojection implements the FDK back-projection kernel and its
// per-device worker lifecycle (spec §4.4): per-voxel coordinate transform,
// perspective projection onto the detector, bilinear interpolation, and
// weighted accumulation across all projections.
package backprojection

import (
	"github.com/chewxy/math32"

	"github.com/gocbct/fdkrecon/gpu"
)

// centeredCoord maps a zero-based axis index i, out of dim total samples
// of physical size vx, to the physical coordinate of its voxel center:
// -(dim*vx/2) + vx/2 + i*vx. Used identically for x, y and z (spec §4.4).
func centeredCoord(i, dim int, vx float32) float32 {
	return -(float32(dim) * vx / 2) + vx/2 + float32(i)*vx
}

// bilinear samples buf at fractional detector pixel coordinates (h, v)
// using floor/ceil corners weighted by the opposite-axis fraction; any
// corner outside [0,width)x[0,height) contributes zero (spec §4.4,
// §8 property 8 — no NaN, no wrap on out-of-range samples).
func bilinear(buf gpu.Buffer2D, h, v float32) float32 {
	width, height := buf.Width(), buf.Height()

	s0 := int(math32.Floor(h))
	s1 := int(math32.Ceil(h))
	t0 := int(math32.Floor(v))
	t1 := int(math32.Ceil(v))

	ws := h - float32(s0)
	wt := v - float32(t0)

	var sum float32
	sum += sample(buf, s0, t0, width, height) * (1 - ws) * (1 - wt)
	sum += sample(buf, s1, t0, width, height) * ws * (1 - wt)
	sum += sample(buf, s0, t1, width, height) * (1 - ws) * wt
	sum += sample(buf, s1, t1, width, height) * ws * wt
	return sum
}

func sample(buf gpu.Buffer2D, s, t, width, height int) float32 {
	if s < 0 || s >= width || t < 0 || t >= height {
		return 0
	}
	return buf.Row(t)[s]
}

// voxelParams is the per-kernel-invocation geometry needed to accumulate
// one projection's contribution into one sub-volume.
type voxelParams struct {
	dimX, dimY, dimZ int // full volume dimensions
	lvxX, lvxY, lvxZ float32
	dso, dsd         float32
	pixelOf          func(hMM, vMM float32) (sPixel, tPixel float32)
}

// accumulate adds this projection's contribution to every voxel of sub,
// reading from proj and writing into sub in place (spec §4.4's per-voxel
// loop). zOffset is the sub-volume's global z starting index.
func accumulate(sub gpu.Buffer3D, zOffset int, proj gpu.Buffer2D, sinPhi, cosPhi float32, p voxelParams) {
	dimXLocal, dimYLocal, dimZLocal := sub.DimX(), sub.DimY(), sub.DimZ()

	for k := 0; k < dimXLocal; k++ {
		x := centeredCoord(k, p.dimX, p.lvxX)
		for l := 0; l < dimYLocal; l++ {
			y := centeredCoord(l, p.dimY, p.lvxY)

			s := x*cosPhi + y*sinPhi
			tcoord := -x*sinPhi + y*cosPhi
			factor := p.dsd / (s - p.dso)
			u := p.dso / (s - p.dso)
			// The 0.5 factor is kept verbatim from the original kernel; its
			// derivation is not documented there (see DESIGN.md).
			weight := 0.5 * u * u

			h := tcoord * factor

			for m := 0; m < dimZLocal; m++ {
				z := centeredCoord(m+zOffset, p.dimZ, p.lvxZ)
				v := z * factor

				sPixel, tPixel := p.pixelOf(h, v)
				det := bilinear(proj, sPixel, tPixel)

				sub.Set(k, l, m, sub.At(k, l, m)+weight*det)
			}
		}
	}
}
