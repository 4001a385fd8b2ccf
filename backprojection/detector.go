package backprojection

import "github.com/gocbct/fdkrecon/geometry"

// detectorPixelMapper returns the function converting a detector-plane
// coordinate in millimetres (h, v) to fractional detector pixel
// coordinates (s, t), the inverse of the weighting stage's
// pixel-to-millimetre mapping (spec §4.2's h_s/v_t, spec §4.4's "h, v ...
// converted to pixel coord").
func detectorPixelMapper(d geometry.Detector) func(hMM, vMM float32) (sPixel, tPixel float32) {
	hMin := d.DeltaS*d.LPxRow - float32(d.NRow)*d.LPxRow/2
	vMin := d.DeltaT*d.LPxCol - float32(d.NCol)*d.LPxCol/2

	return func(hMM, vMM float32) (float32, float32) {
		s := (hMM - d.LPxRow/2 - hMin) / d.LPxRow
		t := (vMM - d.LPxCol/2 - vMin) / d.LPxCol
		return s, t
	}
}
