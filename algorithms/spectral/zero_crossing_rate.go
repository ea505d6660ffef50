package spectral

// ZeroCrossingRate calculates zero crossing rate. High ZCR indicates noisy or
// sharp transient content, low ZCR indicates tonal/resonant content.
type ZeroCrossingRate struct {
	sampleRate int
}

// NewZeroCrossingRate creates a new zero crossing rate calculator
func NewZeroCrossingRate(sampleRate int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		sampleRate: sampleRate,
	}
}

// Compute calculates ZCR for a single frame as crossings per second
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := countCrossings(frame)

	frameDuration := float64(len(frame)) / float64(zcr.sampleRate)
	return float64(crossings) / frameDuration
}

// ComputeNormalized calculates ZCR normalized to [0, 1] by the maximum
// possible crossings (alternating signal)
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := countCrossings(frame)

	maxCrossings := len(frame) - 1
	return float64(crossings) / float64(maxCrossings)
}

func countCrossings(frame []float64) int {
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) || (frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}
	return crossings
}
