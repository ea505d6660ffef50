// Package tempo estimates the global tempo and beat phase of a clip from its
// onset events, using autocorrelation of the rasterized onset strengths.
package tempo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// ErrTempoIndeterminate is returned when no tempo hypothesis reaches the
// confidence floor. Callers should fall back to a manually set BPM.
var ErrTempoIndeterminate = errors.New("tempo indeterminate")

// Config holds tempo estimation parameters
type Config struct {
	MinBPM           float64 `json:"min_bpm"`            // lower bound of the search range
	MaxBPM           float64 `json:"max_bpm"`            // upper bound of the search range
	RasterSec        float64 `json:"raster_sec"`         // onset raster resolution
	BeatToleranceSec float64 `json:"beat_tolerance_sec"` // onset-to-beat match tolerance
	MinConfidence    float64 `json:"min_confidence"`     // floor below which estimation fails
	MaxCandidates    int     `json:"max_candidates"`     // tempo hypotheses to evaluate
}

// DefaultConfig returns the standard search range for percussive tracks
func DefaultConfig() Config {
	return Config{
		MinBPM:           40,
		MaxBPM:           300,
		RasterSec:        0.01,
		BeatToleranceSec: 0.03,
		MinConfidence:    0.2,
		MaxCandidates:    8,
	}
}

// Candidate is one scored tempo hypothesis
type Candidate struct {
	BPM    float64 `json:"bpm"`
	Offset float64 `json:"offset"`
	Score  float64 `json:"score"`
}

// Estimator derives BPM, confidence and beat phase from onset events.
// Octave ambiguity (half/double tempo) is resolved by scoring each
// hypothesis on how well its beat grid explains the onsets in both
// directions: onsets landing on beats, and beats claimed by onsets.
type Estimator struct {
	cfg    Config
	logger logging.Logger
}

// NewEstimator creates an estimator with default parameters
func NewEstimator() *Estimator {
	return NewEstimatorWithConfig(DefaultConfig())
}

// NewEstimatorWithConfig creates an estimator with custom parameters
func NewEstimatorWithConfig(cfg Config) *Estimator {
	if cfg.MinBPM <= 0 {
		cfg.MinBPM = 40
	}
	if cfg.MaxBPM <= cfg.MinBPM {
		cfg.MaxBPM = 300
	}
	if cfg.RasterSec <= 0 {
		cfg.RasterSec = 0.01
	}
	if cfg.BeatToleranceSec <= 0 {
		cfg.BeatToleranceSec = 0.03
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.2
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 8
	}

	return &Estimator{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_estimator",
		}),
	}
}

// Estimate returns the best tempo hypothesis plus the scored candidate list,
// sorted by descending score.
func (e *Estimator) Estimate(onsets []beatmap.OnsetEvent, duration float64) (beatmap.BPMInfo, []Candidate, error) {
	if len(onsets) < 2 {
		return beatmap.BPMInfo{}, nil, fmt.Errorf("%w: need at least 2 onsets, got %d",
			ErrTempoIndeterminate, len(onsets))
	}
	if duration <= 0 {
		duration = onsets[len(onsets)-1].Time + 1.0
	}

	raster := e.rasterize(onsets, duration)
	lags, acValues := e.candidateLags(raster)
	if len(lags) == 0 {
		return beatmap.BPMInfo{}, nil, fmt.Errorf("%w: no periodicity found across %d onsets",
			ErrTempoIndeterminate, len(onsets))
	}

	candidates := make([]Candidate, 0, len(lags))
	best := Candidate{Score: -1}
	bestInfo := beatmap.BPMInfo{}

	for i, lag := range lags {
		period := float64(lag) * e.cfg.RasterSec
		info, score := e.scoreHypothesis(onsets, duration, period, acValues[i])
		candidates = append(candidates, Candidate{
			BPM:    info.BPM,
			Offset: info.Offset,
			Score:  score,
		})
		if score > best.Score {
			best = candidates[len(candidates)-1]
			bestInfo = info
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if bestInfo.Confidence < e.cfg.MinConfidence {
		return beatmap.BPMInfo{}, candidates, fmt.Errorf(
			"%w: best hypothesis %.1f bpm scored %.3f, below floor %.2f",
			ErrTempoIndeterminate, best.BPM, bestInfo.Confidence, e.cfg.MinConfidence)
	}

	e.logger.Debug("tempo estimated", logging.Fields{
		"bpm":        bestInfo.BPM,
		"confidence": bestInfo.Confidence,
		"offset":     bestInfo.Offset,
		"candidates": len(candidates),
	})

	return bestInfo, candidates, nil
}

// rasterize spreads onset strengths onto a fixed-resolution timeline
func (e *Estimator) rasterize(onsets []beatmap.OnsetEvent, duration float64) []float64 {
	numBins := int(math.Ceil(duration/e.cfg.RasterSec)) + 1
	raster := make([]float64, numBins)

	for _, o := range onsets {
		bin := int(math.Round(o.Time / e.cfg.RasterSec))
		if bin >= 0 && bin < numBins {
			raster[bin] += o.Strength
		}
	}

	return raster
}

// candidateLags autocorrelates the raster over the BPM search range and
// returns peak lags with their normalized autocorrelation values. Half and
// double lags of each peak are added so octave errors stay in the running
// for the coverage scoring.
func (e *Estimator) candidateLags(raster []float64) (lags []int, acValues []float64) {
	minLag := int(math.Round(60.0 / (e.cfg.MaxBPM * e.cfg.RasterSec)))
	maxLag := int(math.Round(60.0 / (e.cfg.MinBPM * e.cfg.RasterSec)))
	if maxLag >= len(raster) {
		maxLag = len(raster) - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag >= maxLag {
		return nil, nil
	}

	energy := 0.0
	for _, v := range raster {
		energy += v * v
	}
	if energy < 1e-12 {
		return nil, nil
	}

	ac := make([]float64, maxLag-minLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(raster); i++ {
			sum += raster[i] * raster[i+lag]
		}
		ac[lag-minLag] = sum / energy
	}

	peakMax := 0.0
	for _, v := range ac {
		if v > peakMax {
			peakMax = v
		}
	}
	if peakMax < 1e-9 {
		return nil, nil
	}

	// Peaks at least 3 raster bins apart and above a tenth of the maximum
	peakIndices := common.FindPeaks(ac, 0.1*peakMax, 3)
	sort.Slice(peakIndices, func(i, j int) bool {
		return ac[peakIndices[i]] > ac[peakIndices[j]]
	})
	if len(peakIndices) > e.cfg.MaxCandidates {
		peakIndices = peakIndices[:e.cfg.MaxCandidates]
	}

	seen := map[int]bool{}
	addLag := func(lag int) {
		if lag < minLag || lag > maxLag || seen[lag] {
			return
		}
		seen[lag] = true
		lags = append(lags, lag)
		acValues = append(acValues, ac[lag-minLag])
	}

	for _, idx := range peakIndices {
		lag := idx + minLag
		addLag(lag)
		addLag(lag * 2)
		addLag(lag / 2)
	}

	return lags, acValues
}

// scoreHypothesis refines one period hypothesis against the raw onsets and
// returns the refined tempo plus the octave-resolution score.
func (e *Estimator) scoreHypothesis(onsets []beatmap.OnsetEvent, duration, period, acValue float64) (beatmap.BPMInfo, float64) {
	offset := e.bestPhase(onsets, period)
	period, offset, rSquared := e.refineGrid(onsets, period, offset)
	if period <= 0 {
		return beatmap.BPMInfo{}, 0
	}

	onsetCoverage, beatCoverage := e.coverage(onsets, duration, period, offset)
	score := acValue * onsetCoverage * beatCoverage

	confidence := common.Clamp(score*(0.5+0.5*rSquared), 0, 1)

	return beatmap.BPMInfo{
		BPM:        60.0 / period,
		Confidence: confidence,
		Offset:     offset,
	}, score
}

// bestPhase picks the beat phase that places the most onset strength on the
// grid, testing each onset's own phase as a hypothesis.
func (e *Estimator) bestPhase(onsets []beatmap.OnsetEvent, period float64) float64 {
	bestPhase := 0.0
	bestSupport := -1.0

	for _, candidate := range onsets {
		phase := math.Mod(candidate.Time, period)
		support := 0.0
		for _, o := range onsets {
			d := math.Mod(o.Time-phase, period)
			if d > period/2 {
				d -= period
			}
			if math.Abs(d) <= e.cfg.BeatToleranceSec {
				support += o.Strength
			}
		}
		if support > bestSupport {
			bestSupport = support
			bestPhase = phase
		}
	}

	return bestPhase
}

// refineGrid regresses matched onset times on their beat indices. The slope
// is the refined period, the intercept the refined offset.
func (e *Estimator) refineGrid(onsets []beatmap.OnsetEvent, period, offset float64) (float64, float64, float64) {
	var indices, times []float64
	distinct := map[int]bool{}

	for _, o := range onsets {
		k := math.Round((o.Time - offset) / period)
		expected := offset + k*period
		if math.Abs(o.Time-expected) <= e.cfg.BeatToleranceSec {
			indices = append(indices, k)
			times = append(times, o.Time)
			distinct[int(k)] = true
		}
	}

	if len(distinct) < 2 {
		return period, normalizePhase(offset, period), 0
	}

	slope, intercept, rSquared := common.LinRegression(indices, times)
	if slope <= 0 {
		return period, normalizePhase(offset, period), 0
	}

	return slope, normalizePhase(intercept, slope), rSquared
}

// coverage measures grid fit in both directions: the fraction of onsets on a
// beat, and the fraction of beats backed by an onset. A doubled tempo leaves
// half its beats empty; a halved one strands half the onsets.
func (e *Estimator) coverage(onsets []beatmap.OnsetEvent, duration, period, offset float64) (onsetCoverage, beatCoverage float64) {
	if period <= 0 || len(onsets) == 0 {
		return 0, 0
	}

	matched := 0
	for _, o := range onsets {
		k := math.Round((o.Time - offset) / period)
		if math.Abs(o.Time-(offset+k*period)) <= e.cfg.BeatToleranceSec {
			matched++
		}
	}
	onsetCoverage = float64(matched) / float64(len(onsets))

	// Only score beats inside the span the onsets actually cover; silence
	// before the first hit or after the last says nothing about the octave
	first := onsets[0].Time
	last := onsets[len(onsets)-1].Time
	totalBeats := 0
	backedBeats := 0
	for t := offset; t <= duration; t += period {
		if t < first-e.cfg.BeatToleranceSec || t > last+e.cfg.BeatToleranceSec {
			continue
		}
		totalBeats++
		for _, o := range onsets {
			if math.Abs(o.Time-t) <= e.cfg.BeatToleranceSec {
				backedBeats++
				break
			}
		}
	}
	if totalBeats == 0 {
		return onsetCoverage, 0
	}
	beatCoverage = float64(backedBeats) / float64(totalBeats)

	return onsetCoverage, beatCoverage
}

func normalizePhase(offset, period float64) float64 {
	if period <= 0 {
		return offset
	}
	phase := math.Mod(offset, period)
	if phase < 0 {
		phase += period
	}
	// A phase within rounding error of the period is phase zero
	if period-phase < 1e-9 {
		phase = 0
	}
	return phase
}
