package features

import (
	"fmt"
	"math"
	"sync"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/algorithms/spectral"
	"github.com/drumscribe/drumscribe/algorithms/windowing"
	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// Extractor computes acoustic descriptors for analysis windows centered on
// hit times. Extraction is deterministic: the same buffer and time always
// yield the same vector.
type Extractor struct {
	cfg    Config
	logger logging.Logger
}

// NewExtractor creates an extractor with default parameters
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultConfig())
}

// NewExtractorWithConfig creates an extractor with custom parameters
func NewExtractorWithConfig(cfg Config) *Extractor {
	if cfg.WindowHalfWidthSec <= 0 {
		cfg.WindowHalfWidthSec = 0.05
	}
	if cfg.NumMFCC <= 0 {
		cfg.NumMFCC = 13
	}
	if cfg.NumMelFilters <= 0 {
		cfg.NumMelFilters = 26
	}
	if cfg.RolloffThreshold <= 0 || cfg.RolloffThreshold > 1 {
		cfg.RolloffThreshold = 0.85
	}

	return &Extractor{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Config returns the extraction parameters
func (e *Extractor) Config() Config {
	return e.cfg
}

// Dimension returns the descriptor length this extractor produces
func (e *Extractor) Dimension() int {
	return e.cfg.Dimension()
}

// ExtractAt computes the descriptor for the window centered on t
func (e *Extractor) ExtractAt(buf *audio.Buffer, t float64) (beatmap.FeatureVector, error) {
	w := newWorkspace(e.cfg, buf.SampleRate())
	return w.extract(buf, t)
}

// ExtractAll computes descriptors for every time in order, fanning windows
// out over a worker pool. The result is index-aligned with times.
func (e *Extractor) ExtractAll(buf *audio.Buffer, times []float64) ([]beatmap.FeatureVector, error) {
	if len(times) == 0 {
		return []beatmap.FeatureVector{}, nil
	}

	numWorkers := e.cfg.workerCount()
	if numWorkers > len(times) {
		numWorkers = len(times)
	}

	vectors := make([]beatmap.FeatureVector, len(times))
	errs := make([]error, len(times))

	jobs := make(chan int, len(times))
	var wg sync.WaitGroup

	for rangeIdx := 0; rangeIdx < numWorkers; rangeIdx++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Spectral state is lazily sized, so each worker owns its own
			w := newWorkspace(e.cfg, buf.SampleRate())
			for i := range jobs {
				vectors[i], errs[i] = w.extract(buf, times[i])
			}
		}()
	}

	for i := range times {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("extracting features at %.3fs: %w", times[i], err)
		}
	}

	e.logger.Debug("feature extraction complete", logging.Fields{
		"windows":   len(times),
		"dimension": e.cfg.Dimension(),
	})

	return vectors, nil
}

// workspace bundles the per-goroutine spectral calculators
type workspace struct {
	cfg       Config
	fft       *spectral.FFT
	mfcc      *spectral.MFCC
	centroid  *spectral.SpectralCentroid
	bandwidth *spectral.SpectralBandwidth
	rolloff   *spectral.SpectralRolloff
	zcr       *spectral.ZeroCrossingRate
}

func newWorkspace(cfg Config, sampleRate int) *workspace {
	mfccParams := spectral.MFCCParams{
		NumCoefficients: cfg.NumMFCC,
		NumMelFilters:   cfg.NumMelFilters,
		UseLiftering:    true,
		LifterCoeff:     22.0,
	}

	return &workspace{
		cfg:       cfg,
		fft:       spectral.NewFFT(),
		mfcc:      spectral.NewMFCCWithParams(sampleRate, mfccParams),
		centroid:  spectral.NewSpectralCentroid(sampleRate),
		bandwidth: spectral.NewSpectralBandwidth(sampleRate),
		rolloff:   spectral.NewSpectralRolloff(sampleRate, cfg.RolloffThreshold),
		zcr:       spectral.NewZeroCrossingRate(sampleRate),
	}
}

func (w *workspace) extract(buf *audio.Buffer, t float64) (beatmap.FeatureVector, error) {
	samples := buf.Window(t, w.cfg.WindowHalfWidthSec)
	if len(samples) < 4 {
		return nil, fmt.Errorf("analysis window at %.3fs is outside the clip", t)
	}

	// Time-domain features come from the raw window, spectral ones from the
	// Hann-tapered version
	zcrValue := w.zcr.ComputeNormalized(samples)
	rmsValue := common.RMS(samples)

	hann := windowing.NewHann(len(samples), true)
	tapered := make([]float64, len(samples))
	copy(tapered, samples)
	if err := hann.ApplyInPlace(tapered); err != nil {
		return nil, fmt.Errorf("windowing analysis frame: %w", err)
	}

	// Clip-edge windows are truncated; zero-pad so every window yields the
	// same spectrum size and the mel filter bank stays valid
	fullLen := 2 * int(math.Round(w.cfg.WindowHalfWidthSec*float64(buf.SampleRate())))
	if len(tapered) < fullLen {
		padded := make([]float64, fullLen)
		copy(padded, tapered)
		tapered = padded
	}

	spectrum := w.fft.Magnitude(tapered)

	mfccCoeffs, err := w.mfcc.Compute(spectrum)
	if err != nil {
		return nil, fmt.Errorf("computing mfcc: %w", err)
	}

	centroidHz := w.centroid.Compute(spectrum)
	bandwidthHz := w.bandwidth.Compute(spectrum, centroidHz)
	rolloffHz := w.rolloff.Compute(spectrum)

	vector := make(beatmap.FeatureVector, 0, w.cfg.Dimension())
	vector = append(vector, mfccCoeffs...)
	vector = append(vector, centroidHz, bandwidthHz, rolloffHz, zcrValue, rmsValue)

	if len(vector) != w.cfg.Dimension() {
		return nil, fmt.Errorf("descriptor dimension %d does not match config dimension %d",
			len(vector), w.cfg.Dimension())
	}

	return vector, nil
}
