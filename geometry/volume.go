package geometry

import "github.com/chewxy/math32"

// Volume is the derived reconstruction volume geometry (spec §3).
type Volume struct {
	DimX, DimY, DimZ int
	LVxX, LVxY, LVxZ float32 // voxel size, mm
}

// HeightMM returns dim_z * l_vx_z, the physical height of the volume along
// the rotation axis (spec §4.1 step 2).
func (v Volume) HeightMM() float32 {
	return float32(v.DimZ) * v.LVxZ
}

// BytesPerVolume returns dim_x*dim_y*dim_z*sizeof(float32) (spec §4.1 step 2).
func (v Volume) BytesPerVolume() uint64 {
	const sizeofFloat32 = 4
	return uint64(v.DimX) * uint64(v.DimY) * uint64(v.DimZ) * sizeofFloat32
}

// CalculateVolumeGeometry derives the reconstruction volume dimensions and
// voxel size from detector geometry, per spec §3's formulae:
//
//	r = |d_so| * sin(alpha), alpha = atan(((n_row*l_px_row)/2 + |Δs|) / d_sd)
//	dim_x = dim_y = floor(2r / l_vx_x)
//	l_vx_x = l_vx_y = l_vx_z = r / (((n_row*l_px_row)/2 + |Δs|) / l_px_row)
//	dim_z = floor(((n_col*l_px_col)/2 + |Δt|) * (|d_so|/d_sd) * (2/l_vx_z))
//
// This is a pure function: the same Detector value always yields the same
// Volume, bit-exact, which is what spec §8 property 1 verifies.
func CalculateVolumeGeometry(d Detector) Volume {
	dsd := d.DSD()
	halfRowSpanMM := float32(d.NRow) * d.LPxRow / 2
	deltaSMM := math32.Abs(d.DeltaSMM())

	alpha := math32.Atan((halfRowSpanMM + deltaSMM) / dsd)
	r := math32.Abs(d.DSO) * math32.Sin(alpha)

	lVx := r / ((halfRowSpanMM + deltaSMM) / d.LPxRow)

	dimXY := int(math32.Floor(2 * r / lVx))

	halfColSpanMM := float32(d.NCol) * d.LPxCol / 2
	deltaTMM := math32.Abs(d.DeltaTMM())
	dimZ := int(math32.Floor((halfColSpanMM + deltaTMM) * (math32.Abs(d.DSO) / dsd) * (2 / lVx)))

	return Volume{
		DimX: dimXY, DimY: dimXY, DimZ: dimZ,
		LVxX: lVx, LVxY: lVx, LVxZ: lVx,
	}
}
