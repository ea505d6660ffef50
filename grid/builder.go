// Package grid builds the beat grid of a track from a tempo estimate and
// anchors its measures on the accent pattern.
package grid

import (
	"fmt"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// Builder lays out beats at the estimated tempo and phase across a track
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a grid builder
func NewBuilder() *Builder {
	return &Builder{
		logger: logging.WithFields(logging.Fields{
			"component": "grid_builder",
		}),
	}
}

// Build generates the beat grid: one beat every 60/bpm seconds starting at
// the tempo offset, up to but not including the track end, so a track of
// exactly N beat intervals holds N beats. Every numerator-th beat is a
// downbeat and starts a measure; the first beat always opens measure 1.
// When an envelope is given, beat strengths are the normalized track energy
// at each beat; otherwise a fixed accent heuristic applies.
func (b *Builder) Build(bpm beatmap.BPMInfo, sig beatmap.TimeSignature, duration float64, env *audio.Envelope) (*beatmap.BeatGrid, error) {
	if bpm.BPM <= 0 {
		return nil, fmt.Errorf("invalid bpm %.2f", bpm.BPM)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("invalid duration %.3fs", duration)
	}
	if sig.Numerator <= 0 {
		sig = beatmap.CommonTime
	}
	if bpm.Offset < 0 || bpm.Offset >= duration {
		return nil, fmt.Errorf("beat offset %.3fs is outside the track (duration %.3fs)",
			bpm.Offset, duration)
	}

	interval := 60.0 / bpm.BPM

	var beats []beatmap.Beat
	for t := bpm.Offset; t < duration-1e-9; t += interval {
		beats = append(beats, beatmap.Beat{
			Index: len(beats),
			Time:  t,
		})
	}
	if len(beats) == 0 {
		return nil, fmt.Errorf("no beats fit in %.3fs at %.1f bpm", duration, bpm.BPM)
	}

	assignMeasures(beats, sig.Numerator, 0)
	assignStrengths(beats, env)

	grid := &beatmap.BeatGrid{
		Beats:         beats,
		BPM:           bpm,
		TimeSignature: sig,
		Duration:      duration,
	}

	b.logger.Debug("beat grid built", logging.Fields{
		"beats":    len(beats),
		"measures": grid.TotalMeasures(),
		"bpm":      bpm.BPM,
	})

	return grid, nil
}

// assignMeasures sets beat types and measure counters. Beats whose index is
// congruent to phase modulo numerator are downbeats. The first beat opens
// measure 1 regardless of its type, so a pickup before the first downbeat
// forms a short measure.
func assignMeasures(beats []beatmap.Beat, numerator, phase int) {
	measure := 1
	beatInMeasure := 1

	for i := range beats {
		beatType := beatmap.BeatRegular
		if i%numerator == phase%numerator {
			beatType = beatmap.BeatDownbeat
		}

		if i > 0 {
			if beatType == beatmap.BeatDownbeat {
				measure++
				beatInMeasure = 1
			} else {
				beatInMeasure++
			}
		}

		beats[i].Type = beatType
		beats[i].MeasureNumber = measure
		beats[i].BeatInMeasure = beatInMeasure
	}
}

// assignStrengths fills beat strengths from the energy envelope, normalized
// by its maximum. Without an envelope, downbeats get 1.0 and other beats 0.7.
func assignStrengths(beats []beatmap.Beat, env *audio.Envelope) {
	if env != nil && env.Max() > 0 {
		max := env.Max()
		for i := range beats {
			beats[i].Strength = env.SampleAt(beats[i].Time) / max
		}
		return
	}

	for i := range beats {
		if beats[i].Type == beatmap.BeatDownbeat {
			beats[i].Strength = 1.0
		} else {
			beats[i].Strength = 0.7
		}
	}
}
