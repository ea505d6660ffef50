package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp.
// Handles non-power-of-2 sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// Magnitude computes the magnitude spectrum of a real signal, keeping
// positive frequencies only (DC through Nyquist).
func (f *FFT) Magnitude(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := fft.FFTReal(x)
	freqBins := len(spectrum)/2 + 1

	magnitude := make([]float64, freqBins)
	for i := 0; i < freqBins; i++ {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}

	return magnitude
}
