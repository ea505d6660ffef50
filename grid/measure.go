package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// MeasureAnchor is the detected start of the first complete measure:
// the grid beat where the repeating per-measure onset pattern begins.
// Low confidence is surfaced for user correction, never hidden.
type MeasureAnchor struct {
	BeatIndex  int     `json:"beatIndex"`
	Confidence float64 `json:"confidence"`
}

// MeasureDetector locates measure boundaries by looking for the point where
// the onset pattern repeats with the measure period. Onset density is binned
// per beat; candidate anchors are scored by the correlation of successive
// measure-length density windows plus the onset energy on the anchor beat.
type MeasureDetector struct {
	logger logging.Logger
}

// NewMeasureDetector creates a measure detector
func NewMeasureDetector() *MeasureDetector {
	return &MeasureDetector{
		logger: logging.WithFields(logging.Fields{
			"component": "measure_detector",
		}),
	}
}

// LocateFirstMeasure scans anchor candidates in the first two measures and
// returns the best one with its confidence.
func (d *MeasureDetector) LocateFirstMeasure(onsets []beatmap.OnsetEvent, g *beatmap.BeatGrid) (MeasureAnchor, error) {
	numerator := g.TimeSignature.Numerator
	if numerator <= 0 {
		return MeasureAnchor{}, fmt.Errorf("invalid meter numerator %d", numerator)
	}
	if len(g.Beats) < 2*numerator {
		return MeasureAnchor{}, fmt.Errorf("grid has %d beats, need at least two measures of %d",
			len(g.Beats), numerator)
	}
	if len(onsets) == 0 {
		return MeasureAnchor{}, fmt.Errorf("no onsets to anchor measures on")
	}

	density := beatDensity(onsets, g)

	maxDensity := 0.0
	for _, v := range density {
		if v > maxDensity {
			maxDensity = v
		}
	}
	if maxDensity <= 0 {
		return MeasureAnchor{}, fmt.Errorf("no onset energy lands on the grid")
	}

	// Candidates span the first two measures so a late phrase start is
	// still reachable
	numCandidates := 2 * numerator
	if numCandidates > len(g.Beats) {
		numCandidates = len(g.Beats)
	}

	best := MeasureAnchor{BeatIndex: 0, Confidence: -1}
	for anchor := 0; anchor < numCandidates; anchor++ {
		similarity := repeatSimilarity(density, anchor, numerator)
		energy := density[anchor] / maxDensity

		score := common.Clamp(0.6*similarity+0.4*energy, 0, 1)
		if score > best.Confidence {
			best = MeasureAnchor{BeatIndex: anchor, Confidence: score}
		}
	}

	d.logger.Debug("measure anchor located", logging.Fields{
		"beat_index": best.BeatIndex,
		"confidence": best.Confidence,
	})

	return best, nil
}

// Rephase returns a copy of the grid whose downbeats and measure numbering
// start from the anchor beat. Beat times and strengths are unchanged; the
// input grid is not mutated.
func (d *MeasureDetector) Rephase(g *beatmap.BeatGrid, anchorBeatIndex int) *beatmap.BeatGrid {
	numerator := g.TimeSignature.Numerator
	if numerator <= 0 {
		numerator = beatmap.CommonTime.Numerator
	}

	beats := make([]beatmap.Beat, len(g.Beats))
	copy(beats, g.Beats)
	assignMeasures(beats, numerator, anchorBeatIndex%numerator)

	return &beatmap.BeatGrid{
		Beats:         beats,
		BPM:           g.BPM,
		TimeSignature: g.TimeSignature,
		Duration:      g.Duration,
	}
}

// beatDensity sums onset strength onto each beat's nearest grid position.
// Onsets farther than half a beat interval from any beat are discarded.
func beatDensity(onsets []beatmap.OnsetEvent, g *beatmap.BeatGrid) []float64 {
	density := make([]float64, len(g.Beats))
	halfInterval := g.BeatInterval() / 2
	if halfInterval <= 0 {
		halfInterval = math.MaxFloat64
	}

	for _, o := range onsets {
		idx, dist := g.NearestBeat(o.Time)
		if idx >= 0 && math.Abs(dist) <= halfInterval {
			density[idx] += o.Strength
		}
	}

	return density
}

// repeatSimilarity correlates successive measure-length density windows
// starting at the anchor. A true measure start sees the same accent shape
// repeat window after window.
func repeatSimilarity(density []float64, anchor, measureLen int) float64 {
	var correlations []float64

	for start := anchor; start+2*measureLen <= len(density); start += measureLen {
		a := density[start : start+measureLen]
		b := density[start+measureLen : start+2*measureLen]

		r := stat.Correlation(a, b, nil)
		if math.IsNaN(r) {
			// Flat windows carry no phase information
			r = 0
		}
		correlations = append(correlations, r)
	}

	if len(correlations) == 0 {
		return 0
	}

	mean := stat.Mean(correlations, nil)
	if mean < 0 {
		return 0
	}
	return mean
}
