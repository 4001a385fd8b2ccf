package backprojection

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/require"

	"github.com/gocbct/fdkrecon/geometry"
	"github.com/gocbct/fdkrecon/gpu"
	"github.com/gocbct/fdkrecon/gpu/gocvbackend"
	"github.com/gocbct/fdkrecon/gpu/tensorbackend"
)

func testVoxelParams(d geometry.Detector, vol geometry.Volume) voxelParams {
	return voxelParams{
		dimX: vol.DimX, dimY: vol.DimY, dimZ: vol.DimZ,
		lvxX: vol.LVxX, lvxY: vol.LVxY, lvxZ: vol.LVxZ,
		dso: d.DSO, dsd: d.DSD(),
		pixelOf: detectorPixelMapper(d),
	}
}

func newSubVolume(t *testing.T, dimX, dimY, dimZ int) gpu.Buffer3D {
	buf, err := tensorbackend.NewBuffer3D(0, dimX, dimY, dimZ)
	require.NoError(t, err)
	return buf
}

func flatten(t *testing.T, buf gpu.Buffer3D) []float32 {
	out := make([]float32, buf.DimX()*buf.DimY()*buf.DimZ())
	i := 0
	for k := 0; k < buf.DimX(); k++ {
		for l := 0; l < buf.DimY(); l++ {
			for m := 0; m < buf.DimZ(); m++ {
				out[i] = buf.At(k, l, m)
				i++
			}
		}
	}
	return out
}

// TestBackProjectionLinearity is spec §8 property 7: for any scalar alpha
// and projections P, Q, back-projecting (alpha*P + Q) equals
// alpha*BP(P) + BP(Q) within floating roundoff.
func TestBackProjectionLinearity(t *testing.T) {
	t.Parallel()

	d := geometry.Detector{
		NRow: 8, NCol: 8,
		LPxRow: 1.0, LPxCol: 1.0,
		DSO: 100, DOD: 100,
		NProj: 1,
	}
	vol := geometry.CalculateVolumeGeometry(d)
	params := testVoxelParams(d, vol)

	const alpha = float32(2.5)
	sinPhi, cosPhi := math32.Sin(0.3), math32.Cos(0.3)

	p := testProjBuffer(t, d.NRow, d.NCol, func(s, t int) float32 { return float32(s+t) * 0.1 })
	q := testProjBuffer(t, d.NRow, d.NCol, func(s, t int) float32 { return float32(s*t) * 0.05 })
	combined := testProjBuffer(t, d.NRow, d.NCol, func(s, t int) float32 {
		return alpha*(float32(s+t)*0.1) + float32(s*t)*0.05
	})
	defer p.Release()
	defer q.Release()
	defer combined.Release()

	dimZ := 4
	bpP := newSubVolume(t, vol.DimX, vol.DimY, dimZ)
	bpQ := newSubVolume(t, vol.DimX, vol.DimY, dimZ)
	bpCombined := newSubVolume(t, vol.DimX, vol.DimY, dimZ)
	defer bpP.Release()
	defer bpQ.Release()
	defer bpCombined.Release()

	accumulate(bpP, 0, p, sinPhi, cosPhi, params)
	accumulate(bpQ, 0, q, sinPhi, cosPhi, params)
	accumulate(bpCombined, 0, combined, sinPhi, cosPhi, params)

	fp := flatten(t, bpP)
	fq := flatten(t, bpQ)
	fc := flatten(t, bpCombined)

	for i := range fc {
		want := alpha*fp[i] + fq[i]
		require.InDelta(t, float64(want), float64(fc[i]), 1e-3)
	}
}
