package filtering

import "github.com/chewxy/math32"

// complexFFT performs an in-place iterative radix-2 Cooley-Tukey transform
// on parallel real/imaginary float32 slices of length n, n a power of two.
// inverse selects the sign of the twiddle angle; unlike a textbook inverse
// FFT this does not divide by n — the filtering stage folds that scaling
// into its crop-and-normalize step (spec §4.3 step 5), keeping the
// butterfly pass separate from normalization.
//
// Both real and imaginary lanes are carried through every butterfly stage,
// so this is a general complex transform, not just a real-input one — the
// ramp filter scales the genuine complex spectrum of each row (spec §4.3
// steps 2-4).
func complexFFT(re, im []float32, inverse bool) {
	n := len(re)
	if n <= 1 {
		return
	}

	for i, j := 0, 0; i < n; i++ {
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
		m := n >> 1
		for ; m >= 1 && j >= m; m >>= 1 {
			j -= m
		}
		j += m
	}

	sign := float32(-1)
	if inverse {
		sign = 1
	}

	for length := 2; length <= n; length <<= 1 {
		angle := sign * 2 * math32.Pi / float32(length)
		wRe, wIm := math32.Cos(angle), math32.Sin(angle)
		half := length / 2
		for i := 0; i < n; i += length {
			curRe, curIm := float32(1), float32(0)
			for j := 0; j < half; j++ {
				uRe, uIm := re[i+j], im[i+j]
				vRe := re[i+j+half]*curRe - im[i+j+half]*curIm
				vIm := re[i+j+half]*curIm + im[i+j+half]*curRe

				re[i+j] = uRe + vRe
				im[i+j] = uIm + vIm
				re[i+j+half] = uRe - vRe
				im[i+j+half] = uIm - vIm

				nextRe := curRe*wRe - curIm*wIm
				nextIm := curRe*wIm + curIm*wRe
				curRe, curIm = nextRe, nextIm
			}
		}
	}
}
