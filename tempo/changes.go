package tempo

import (
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// DefaultChangeWindowSec is the analysis window for tempo-drift detection
const DefaultChangeWindowSec = 8.0

// TempoSegment is the tempo estimate of one analysis window
type TempoSegment struct {
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	BPM        float64 `json:"bpm"`
	Confidence float64 `json:"confidence"`
}

// DetectTempoChanges re-runs estimation over half-overlapping windows across
// the track and reports one segment per window, a diagnostic for tempo drift
// the single global estimate would average away. Windows whose tempo is
// indeterminate are skipped. A track shorter than one window yields a single
// whole-track segment. windowSec <= 0 selects the default window.
func (e *Estimator) DetectTempoChanges(onsets []beatmap.OnsetEvent, duration, windowSec float64) []TempoSegment {
	if windowSec <= 0 {
		windowSec = DefaultChangeWindowSec
	}
	if duration <= 0 && len(onsets) > 0 {
		duration = onsets[len(onsets)-1].Time + 1.0
	}

	if duration <= windowSec {
		info, _, err := e.Estimate(onsets, duration)
		if err != nil {
			return nil
		}
		return []TempoSegment{{
			StartTime:  0,
			EndTime:    duration,
			BPM:        info.BPM,
			Confidence: info.Confidence,
		}}
	}

	var segments []TempoSegment
	step := windowSec / 2

	for start := 0.0; start+windowSec <= duration+1e-9; start += step {
		end := start + windowSec

		var window []beatmap.OnsetEvent
		for _, o := range onsets {
			if o.Time >= start && o.Time < end {
				window = append(window, beatmap.OnsetEvent{
					Time:     o.Time - start,
					Strength: o.Strength,
				})
			}
		}

		info, _, err := e.Estimate(window, windowSec)
		if err != nil {
			continue
		}

		segments = append(segments, TempoSegment{
			StartTime:  start,
			EndTime:    end,
			BPM:        info.BPM,
			Confidence: info.Confidence,
		})
	}

	e.logger.Debug("tempo change scan complete", logging.Fields{
		"segments": len(segments),
		"window":   windowSec,
	})

	return segments
}
