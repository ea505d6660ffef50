package spectral

// SpectralRolloff computes the frequency below which a fixed fraction of the
// total spectral energy is contained
type SpectralRolloff struct {
	sampleRate int
	threshold  float64
}

// NewSpectralRolloff creates a rolloff calculator with the given energy
// threshold (typical: 0.85)
func NewSpectralRolloff(sampleRate int, threshold float64) *SpectralRolloff {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &SpectralRolloff{
		sampleRate: sampleRate,
		threshold:  threshold,
	}
}

// Compute calculates the rolloff frequency in Hz for a magnitude spectrum
func (sr *SpectralRolloff) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	totalEnergy := 0.0
	for _, mag := range spectrum {
		totalEnergy += mag * mag
	}

	if totalEnergy == 0 {
		return 0.0
	}

	target := totalEnergy * sr.threshold
	cumulative := 0.0

	for i, mag := range spectrum {
		cumulative += mag * mag
		if cumulative >= target {
			return float64(i) * float64(sr.sampleRate) / float64((len(spectrum)-1)*2)
		}
	}

	return float64(sr.sampleRate) / 2.0
}
