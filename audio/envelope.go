package audio

import (
	"math"
)

// Envelope is an RMS energy envelope of a Buffer, indexable by time. The
// grid builder samples it at beat positions for energy-based beat strengths.
type Envelope struct {
	values     []float64
	hopSize    int
	frameSize  int
	sampleRate int
}

// ComputeRMSEnvelope computes an RMS envelope with the given frame and hop
// sizes in samples.
func ComputeRMSEnvelope(b *Buffer, frameSize, hopSize int) *Envelope {
	signal := b.Raw()

	env := &Envelope{
		hopSize:    hopSize,
		frameSize:  frameSize,
		sampleRate: b.SampleRate(),
	}

	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return env
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	env.values = make([]float64, numFrames)

	for i := 0; i < numFrames; i++ {
		startIdx := i * hopSize
		endIdx := startIdx + frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		env.values[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return env
}

// Values returns a copy of the envelope frames
func (e *Envelope) Values() []float64 {
	out := make([]float64, len(e.values))
	copy(out, e.values)
	return out
}

// SampleAt returns the envelope value at time t (seconds), using the frame
// whose center is nearest. Out-of-range times return 0.
func (e *Envelope) SampleAt(t float64) float64 {
	if len(e.values) == 0 {
		return 0.0
	}

	center := t*float64(e.sampleRate) - float64(e.frameSize)/2.0
	idx := int(math.Round(center / float64(e.hopSize)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(e.values) {
		idx = len(e.values) - 1
	}
	return e.values[idx]
}

// Max returns the largest envelope value, or 0 for an empty envelope
func (e *Envelope) Max() float64 {
	max := 0.0
	for _, v := range e.values {
		if v > max {
			max = v
		}
	}
	return max
}
