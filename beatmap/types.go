// Package beatmap holds the shared data model of the analysis pipeline:
// onsets, hits, beats, grids and the wire records consumed by the
// annotation UI layer.
package beatmap

import (
	"fmt"
)

// HitType is the drum hit class. The set is closed: every classified hit is
// one of the two classes, never "unknown".
type HitType string

const (
	// HitDon is the resonant, low-pitched center strike
	HitDon HitType = "don"
	// HitKa is the sharp, high-pitched rim strike
	HitKa HitType = "ka"
)

// Valid reports whether t is one of the two hit classes
func (t HitType) Valid() bool {
	return t == HitDon || t == HitKa
}

// ParseHitType converts a wire string into a HitType
func ParseHitType(s string) (HitType, error) {
	t := HitType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown hit type %q: want %q or %q", s, HitDon, HitKa)
	}
	return t, nil
}

// BeatType distinguishes measure-starting beats from regular ones
type BeatType string

const (
	BeatDownbeat BeatType = "downbeat"
	BeatRegular  BeatType = "beat"
)

// OnsetEvent is one detected percussive strike start. Detectors produce
// strictly time-ordered events with a minimum inter-onset gap.
type OnsetEvent struct {
	Time     float64 `json:"time"`     // seconds from clip start
	Strength float64 `json:"strength"` // normalized novelty at the peak, (0, 1]
}

// FeatureVector is a fixed-dimension acoustic descriptor of one analysis
// window. The dimension is set by the feature configuration and must match
// between training and inference.
type FeatureVector []float64

// LabeledSample pairs a descriptor with its curated hit class
type LabeledSample struct {
	Features FeatureVector `json:"features"`
	Label    HitType       `json:"label"`
}

// ClassifiedHit is one typed hit event. Confidence is the classifier's
// posterior margin, not a detection-quality score.
type ClassifiedHit struct {
	Time       float64 `json:"time"`
	Type       HitType `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Beat is one position of the inferred beat grid
type Beat struct {
	Index         int      `json:"index"`
	Time          float64  `json:"time"`
	Type          BeatType `json:"type"`
	Strength      float64  `json:"strength"`
	MeasureNumber int      `json:"measureNumber"`
	BeatInMeasure int      `json:"beatInMeasure"`
}

// TimeSignature is the meter of the track. Only the numerator drives grid
// construction; the denominator is carried for the UI layer.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// CommonTime is the 4/4 default
var CommonTime = TimeSignature{Numerator: 4, Denominator: 4}

// BPMInfo is the tempo block of a beat analysis
type BPMInfo struct {
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
	Offset     float64 `json:"offset"` // phase of the first beat, seconds
}

// BeatGrid is the full ordered beat sequence spanning a track
type BeatGrid struct {
	Beats         []Beat        `json:"beats"`
	BPM           BPMInfo       `json:"bpm"`
	TimeSignature TimeSignature `json:"timeSignature"`
	Duration      float64       `json:"duration"`
}

// BeatInterval returns the beat spacing in seconds
func (g *BeatGrid) BeatInterval() float64 {
	if g.BPM.BPM <= 0 {
		return 0
	}
	return 60.0 / g.BPM.BPM
}

// NearestBeat returns the index of the beat closest in time to t, and the
// signed distance beat.Time - t. Returns index -1 for an empty grid.
func (g *BeatGrid) NearestBeat(t float64) (int, float64) {
	if len(g.Beats) == 0 {
		return -1, 0
	}

	// Binary search over the ordered beat times
	lo, hi := 0, len(g.Beats)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if g.Beats[mid].Time < t {
			lo = mid
		} else {
			hi = mid
		}
	}

	dLo := g.Beats[lo].Time - t
	dHi := g.Beats[hi].Time - t
	if abs(dLo) <= abs(dHi) {
		return lo, dLo
	}
	return hi, dHi
}

// DownbeatCount returns the number of downbeats in the grid
func (g *BeatGrid) DownbeatCount() int {
	count := 0
	for _, b := range g.Beats {
		if b.Type == BeatDownbeat {
			count++
		}
	}
	return count
}

// TotalMeasures returns the highest measure number in the grid
func (g *BeatGrid) TotalMeasures() int {
	if len(g.Beats) == 0 {
		return 0
	}
	return g.Beats[len(g.Beats)-1].MeasureNumber
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
