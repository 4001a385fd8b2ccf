package geometry

import "github.com/gocbct/fdkrecon/internal/logging"

// ROI shrinks a Volume to an axis-aligned sub-box (spec §3). Bounds are
// voxel indices, exclusive of X2/Y2/Z2 (x1 <= x < x2, and so on).
type ROI struct {
	X1, X2 int
	Y1, Y2 int
	Z1, Z2 int
}

// valid reports whether the ROI's bounds are ordered and do not expand the
// volume, per spec §3: "xi<xj and resulting dimensions ≤ original".
func (r ROI) valid(v Volume) bool {
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 || r.Z1 >= r.Z2 {
		return false
	}
	if r.X2-r.X1 > v.DimX || r.Y2-r.Y1 > v.DimY || r.Z2-r.Z1 > v.DimZ {
		return false
	}
	if r.X1 < 0 || r.Y1 < 0 || r.Z1 < 0 {
		return false
	}
	if r.X2 > v.DimX || r.Y2 > v.DimY || r.Z2 > v.DimZ {
		return false
	}
	return true
}

// ApplyROI shrinks v's dimensions to the extent of r (X2-X1, Y2-Y1,
// Z2-Z1); voxel sizes are unchanged. Volume carries no origin, so the
// ROI's position is not kept: the reduced volume stays centred on the
// rotation axis like the full one. An invalid ROI (low >=
// high, or bounds that would expand the volume) is a recoverable anomaly
// per spec §7: it is logged at Warn and the original volume is returned
// unchanged, never an error.
func ApplyROI(v Volume, r ROI) Volume {
	if !r.valid(v) {
		logging.Log.Warn().
			Interface("roi", r).
			Interface("volume", v).
			Msg("geometry: ROI ignored, bounds invalid or would expand the volume")
		return v
	}
	out := v
	out.DimX = r.X2 - r.X1
	out.DimY = r.Y2 - r.Y1
	out.DimZ = r.Z2 - r.Z1
	return out
}
