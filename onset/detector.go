// Package onset finds candidate drum-hit timestamps in a decoded clip using
// spectral novelty.
package onset

import (
	"errors"
	"fmt"
	"math"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/algorithms/spectral"
	"github.com/drumscribe/drumscribe/algorithms/windowing"
	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// ErrNoOnsetsDetected is returned when the novelty signal never exceeds the
// adaptive threshold (silence or too-quiet input). Callers must not treat it
// as an empty-but-valid result.
var ErrNoOnsetsDetected = errors.New("no onsets detected")

// Config holds onset detection parameters
type Config struct {
	WindowSize      int     `json:"window_size"`       // STFT window (default 2048)
	HopSize         int     `json:"hop_size"`          // STFT hop (default 512)
	ThresholdK      float64 `json:"threshold_k"`       // std multiplier of the adaptive threshold
	MovingWindowSec float64 `json:"moving_window_sec"` // span of the moving threshold window
	MinGapSec       float64 `json:"min_gap_sec"`       // minimum inter-onset distance
}

// DefaultConfig returns detection parameters tuned for percussive material
func DefaultConfig() Config {
	return Config{
		WindowSize:      2048,
		HopSize:         512,
		ThresholdK:      1.5,
		MovingWindowSec: 1.0,
		MinGapSec:       0.05,
	}
}

// Detector finds onsets via half-wave rectified spectral flux with an
// adaptive mean+k·std threshold and minimum peak separation.
type Detector struct {
	cfg    Config
	stft   *spectral.STFT
	flux   *spectral.SpectralFlux
	logger logging.Logger
}

// NewDetector creates a detector with default parameters
func NewDetector() *Detector {
	return NewDetectorWithConfig(DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom parameters
func NewDetectorWithConfig(cfg Config) *Detector {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 2048
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = 512
	}
	if cfg.ThresholdK <= 0 {
		cfg.ThresholdK = 1.5
	}
	if cfg.MovingWindowSec <= 0 {
		cfg.MovingWindowSec = 1.0
	}
	if cfg.MinGapSec <= 0 {
		cfg.MinGapSec = 0.05
	}

	return &Detector{
		cfg:  cfg,
		stft: spectral.NewSTFT(),
		flux: spectral.NewSpectralFlux(),
		logger: logging.WithFields(logging.Fields{
			"component": "onset_detector",
		}),
	}
}

// Detect returns the time-ordered onset events of a clip. The result is
// deterministic for identical input.
func (d *Detector) Detect(buf *audio.Buffer) ([]beatmap.OnsetEvent, error) {
	signal := buf.Raw()
	sampleRate := buf.SampleRate()

	window := windowing.NewHann(d.cfg.WindowSize, false)
	stftResult, err := d.stft.ComputeWithWindow(signal, d.cfg.WindowSize, d.cfg.HopSize, sampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("computing novelty spectrogram: %w", err)
	}

	flux := d.flux.Compute(stftResult.Magnitude)
	if len(flux) == 0 {
		return nil, fmt.Errorf("%w: clip too short for novelty analysis (%d frames)",
			ErrNoOnsetsDetected, stftResult.TimeFrames)
	}

	peakFlux := 0.0
	for _, v := range flux {
		if v > peakFlux {
			peakFlux = v
		}
	}
	if peakFlux < 1e-9 {
		return nil, fmt.Errorf("%w: novelty signal is flat over %d frames (peak %.2e)",
			ErrNoOnsetsDetected, len(flux), peakFlux)
	}

	peaks := d.pickPeaks(flux, sampleRate)
	if len(peaks) == 0 {
		means, stds := common.MovingStats(flux, d.movingWindowFrames(sampleRate))
		maxThreshold := 0.0
		for i := range means {
			if t := means[i] + d.cfg.ThresholdK*stds[i]; t > maxThreshold {
				maxThreshold = t
			}
		}
		return nil, fmt.Errorf("%w: peak novelty %.4f never cleared adaptive threshold (max %.4f, k=%.1f)",
			ErrNoOnsetsDetected, peakFlux, maxThreshold, d.cfg.ThresholdK)
	}

	events := d.refinePeaks(buf, flux, peaks, peakFlux)

	d.logger.Debug("onset detection complete", logging.Fields{
		"frames": len(flux),
		"onsets": len(events),
	})

	return events, nil
}

func (d *Detector) movingWindowFrames(sampleRate int) int {
	frames := int(d.cfg.MovingWindowSec * float64(sampleRate) / float64(d.cfg.HopSize))
	if frames < 3 {
		frames = 3
	}
	return frames
}

// pickPeaks returns flux indices that are local maxima above the moving
// adaptive threshold, at least MinGapSec apart.
func (d *Detector) pickPeaks(flux []float64, sampleRate int) []int {
	means, stds := common.MovingStats(flux, d.movingWindowFrames(sampleRate))

	minGapFrames := int(d.cfg.MinGapSec * float64(sampleRate) / float64(d.cfg.HopSize))
	if minGapFrames < 1 {
		minGapFrames = 1
	}

	var peaks []int
	lastPeak := -minGapFrames

	for i := 1; i < len(flux)-1; i++ {
		threshold := means[i] + d.cfg.ThresholdK*stds[i]
		if flux[i] > flux[i-1] && flux[i] >= flux[i+1] && flux[i] > threshold {
			if i-lastPeak < minGapFrames {
				// Within the dead zone: keep whichever peak is stronger
				if len(peaks) > 0 && flux[i] > flux[peaks[len(peaks)-1]] {
					peaks[len(peaks)-1] = i
					lastPeak = i
				}
				continue
			}
			peaks = append(peaks, i)
			lastPeak = i
		}
	}

	return peaks
}

// refinePeaks converts flux peak indices into onset events. The coarse frame
// time is refined against the local energy rise so onsets resolve well below
// the hop-size granularity.
func (d *Detector) refinePeaks(buf *audio.Buffer, flux []float64, peaks []int, peakFlux float64) []beatmap.OnsetEvent {
	sampleRate := buf.SampleRate()
	events := make([]beatmap.OnsetEvent, 0, len(peaks))

	for _, p := range peaks {
		// flux[p] is the change from STFT frame p to frame p+1; the strike
		// lands near the start of frame p+1
		approxSample := (p + 1) * d.cfg.HopSize
		refined := refineBySteepestRise(buf.Raw(), approxSample, d.cfg.WindowSize)
		t := float64(refined) / float64(sampleRate)

		strength := flux[p] / peakFlux

		if n := len(events); n > 0 {
			if gap := t - events[n-1].Time; gap < d.cfg.MinGapSec {
				// Refinement pulled two peaks together; keep the stronger
				if strength > events[n-1].Strength {
					events[n-1] = beatmap.OnsetEvent{Time: t, Strength: strength}
				}
				continue
			}
		}

		events = append(events, beatmap.OnsetEvent{Time: t, Strength: strength})
	}

	return events
}

// refineBySteepestRise scans short energy blocks around the coarse position
// and returns the start of the block with the steepest energy rise.
func refineBySteepestRise(signal []float64, approxSample, searchHalfWidth int) int {
	start := approxSample - searchHalfWidth
	end := approxSample + searchHalfWidth
	if start < 0 {
		start = 0
	}
	if end > len(signal) {
		end = len(signal)
	}
	if end-start < 4 {
		return approxSample
	}

	// 2 ms blocks assuming the common 44.1/48 kHz range; the exact block
	// size only affects sub-hop precision
	blockLen := (end - start) / 64
	if blockLen < 8 {
		blockLen = 8
	}

	numBlocks := (end - start) / blockLen
	if numBlocks < 2 {
		return approxSample
	}

	energies := make([]float64, numBlocks)
	for b := 0; b < numBlocks; b++ {
		blockStart := start + b*blockLen
		sum := 0.0
		for i := blockStart; i < blockStart+blockLen && i < len(signal); i++ {
			sum += signal[i] * signal[i]
		}
		energies[b] = math.Sqrt(sum / float64(blockLen))
	}

	bestBlock := 0
	bestRise := -1.0
	for b := 1; b < numBlocks; b++ {
		rise := energies[b] - energies[b-1]
		if rise > bestRise {
			bestRise = rise
			bestBlock = b
		}
	}

	if bestRise <= 0 {
		return approxSample
	}

	return start + bestBlock*blockLen
}
