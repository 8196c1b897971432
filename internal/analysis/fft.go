package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k| for k in [0, n/2) of the real signal data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	coeffs := fft.FFTReal(data)
	ps := make([]float64, len(coeffs)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}

	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// component of a signal sampled every dt seconds, or 0 when there is none.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 4 || dt <= 0 {
		return 0
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	if len(ps) < 2 {
		return 0
	}
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	if ps[best] == 0 {
		return 0
	}
	return float64(best) / (float64(len(data)) * dt)
}
