package spectral

import (
	"math"
)

// MelScale provides mel frequency conversion utilities for MFCC computation
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates a triangular mel-scale filter bank over the
// positive-frequency bins of an FFT of the given size
func (ms *MelScale) CreateMelFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	// Equally spaced points on the mel scale, converted back to bins
	melPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}

	binPoints := make([]int, len(melPoints))
	for i, mel := range melPoints {
		hz := ms.MelToHz(mel)
		binPoints[i] = int(math.Floor((float64(fftSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(binPoints[i], fftSize/2)
	}

	numBins := fftSize/2 + 1
	filterBank := make([][]float64, numFilters)

	for i := range filterBank {
		filterBank[i] = make([]float64, numBins)

		left := binPoints[i]
		center := binPoints[i+1]
		right := binPoints[i+2]

		for bin := left; bin < center && bin < numBins; bin++ {
			if center > left {
				filterBank[i][bin] = float64(bin-left) / float64(center-left)
			}
		}
		for bin := center; bin <= right && bin < numBins; bin++ {
			if right > center {
				filterBank[i][bin] = float64(right-bin) / float64(right-center)
			}
		}
	}

	return filterBank
}

// ApplyFilterBank applies a filter bank to a power spectrum, producing one
// energy value per filter
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for bin := 0; bin < len(filter) && bin < len(powerSpectrum); bin++ {
			sum += powerSpectrum[bin] * filter[bin]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}
