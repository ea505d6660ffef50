package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Buffer is an immutable, decoded audio clip: mono float64 samples in
// [-1, 1] plus the source sample rate. One analysis run owns one Buffer and
// never mutates it; every accessor returns copies or derived values.
type Buffer struct {
	samples        []float64
	sampleRate     int
	sourceChannels int
}

// NewBuffer wraps raw mono samples in a Buffer. The slice is copied so later
// writes by the caller cannot reach analysis code.
func NewBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty sample data")
	}

	owned := make([]float64, len(samples))
	copy(owned, samples)

	return &Buffer{
		samples:        owned,
		sampleRate:     sampleRate,
		sourceChannels: 1,
	}, nil
}

// DecodeWavFile decodes a PCM WAV file into a mono Buffer. Stereo input is
// downmixed by channel averaging.
func DecodeWavFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav data: %w", err)
	}
	if pcm == nil || len(pcm.Data) == 0 {
		return nil, fmt.Errorf("wav file contains no samples: %s", path)
	}

	numChannels := pcm.Format.NumChannels
	if numChannels < 1 || numChannels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d: only mono/stereo supported", numChannels)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := 1.0 / float64(int(1)<<(bitDepth-1))

	frames := len(pcm.Data) / numChannels
	samples := make([]float64, frames)

	if numChannels == 1 {
		for i := 0; i < frames; i++ {
			samples[i] = float64(pcm.Data[i]) * scale
		}
	} else {
		for i := 0; i < frames; i++ {
			l := float64(pcm.Data[2*i]) * scale
			r := float64(pcm.Data[2*i+1]) * scale
			samples[i] = (l + r) * 0.5
		}
	}

	return &Buffer{
		samples:        samples,
		sampleRate:     int(pcm.Format.SampleRate),
		sourceChannels: numChannels,
	}, nil
}

// SampleRate returns the sample rate in Hz
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// SourceChannels returns the channel count of the decoded source
func (b *Buffer) SourceChannels() int {
	return b.sourceChannels
}

// NumSamples returns the mono sample count
func (b *Buffer) NumSamples() int {
	return len(b.samples)
}

// Duration returns the clip length in seconds
func (b *Buffer) Duration() float64 {
	return float64(len(b.samples)) / float64(b.sampleRate)
}

// Samples returns a copy of the mono samples
func (b *Buffer) Samples() []float64 {
	out := make([]float64, len(b.samples))
	copy(out, b.samples)
	return out
}

// Raw returns the underlying samples without copying. Callers must treat the
// slice as read-only; the hot analysis paths rely on this.
func (b *Buffer) Raw() []float64 {
	return b.samples
}

// Window extracts a symmetric window of the given half-width (seconds)
// centered on t. The window is truncated at the buffer edges; the returned
// slice is a copy.
func (b *Buffer) Window(t, halfWidth float64) []float64 {
	center := int(math.Round(t * float64(b.sampleRate)))
	half := int(math.Round(halfWidth * float64(b.sampleRate)))

	start := center - half
	end := center + half
	if start < 0 {
		start = 0
	}
	if end > len(b.samples) {
		end = len(b.samples)
	}
	if start >= end {
		return []float64{}
	}

	out := make([]float64, end-start)
	copy(out, b.samples[start:end])
	return out
}
