// Package filtering implements the FDK ramp-filter construction and
// per-projection frequency-domain filtering stage (spec §4.3).
package filtering

import (
	"github.com/chewxy/math32"

	"github.com/gocbct/fdkrecon/geometry"
)

// Kernel is the cached frequency-domain ramp filter, built once per device
// and read-only for the remainder of the run (spec §9 "per-device filter
// kernel K: built once ... then read-only").
type Kernel struct {
	L   int
	Mag []float32 // length L/2+1, tau*|FFT(r)|, magnitude at bin i
}

// FilterLength returns L = 2*2^ceil(log2(nCol)), the next power of two of
// the detector column count, doubled for zero-padding (spec §3).
func FilterLength(nCol int) int {
	p := 1
	for p < nCol {
		p <<= 1
	}
	return 2 * p
}

// spatialKernel builds the length-L discrete ramp-filter kernel r[j] (spec
// §4.3), indexed so array position i holds r(i) for i in [0, L/2] and
// position L-j holds r(-j) = r(j) for the mirrored negative half.
func spatialKernel(L int, tau float32) []float32 {
	r := make([]float32, L)
	tau2 := tau * tau
	r[0] = (1.0 / 8.0) / tau2
	for j := 1; j <= L/2; j++ {
		var v float32
		if j%2 != 0 {
			v = -1.0 / (2 * float32(j*j) * math32.Pi * math32.Pi * tau2)
		}
		r[j] = v
		if j != L/2 {
			r[L-j] = v
		}
	}
	return r
}

// BuildKernel constructs the ramp filter for detector d. tau is the
// detector row pitch l_px_row.
func BuildKernel(d geometry.Detector) Kernel {
	L := FilterLength(d.NCol)
	re := spatialKernel(L, d.LPxRow)
	im := make([]float32, L)
	complexFFT(re, im, false)

	mag := make([]float32, L/2+1)
	for i := range mag {
		mag[i] = d.LPxRow * math32.Sqrt(re[i]*re[i]+im[i]*im[i])
	}
	return Kernel{L: L, Mag: mag}
}

// magnitudeAt returns the filter magnitude for full-spectrum bin i,
// exploiting the conjugate symmetry of a real-valued spatial kernel so
// only the first L/2+1 magnitudes need be stored.
func (k Kernel) magnitudeAt(i int) float32 {
	if i > k.L/2 {
		i = k.L - i
	}
	return k.Mag[i]
}
