// Package align snaps annotated hit events onto a beat grid. Alignment is a
// pure function of its inputs: it never drops events, never invents them,
// and running it twice is a no-op.
package align

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/logging"
)

// Config holds alignment parameters
type Config struct {
	ToleranceSec float64 `json:"tolerance_sec"` // max snap distance
}

// DefaultConfig returns the standard snap tolerance
func DefaultConfig() Config {
	return Config{ToleranceSec: 0.1}
}

// Aligner snaps each hit to its nearest beat within tolerance. When two hits
// claim the same beat, the closer one wins (the earlier on an exact tie) and
// the loser keeps its original time with a conflict status.
type Aligner struct {
	cfg    Config
	logger logging.Logger
}

// NewAligner creates an aligner with the default tolerance
func NewAligner() *Aligner {
	return NewAlignerWithConfig(DefaultConfig())
}

// NewAlignerWithConfig creates an aligner with a custom tolerance
func NewAlignerWithConfig(cfg Config) *Aligner {
	if cfg.ToleranceSec <= 0 {
		cfg.ToleranceSec = 0.1
	}

	return &Aligner{
		cfg: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "auto_aligner",
		}),
	}
}

// Align returns the snapped hits (index-aligned with the input, same length)
// and the per-event report. The input slice is not modified.
func (a *Aligner) Align(hits []beatmap.ClassifiedHit, g *beatmap.BeatGrid) ([]beatmap.ClassifiedHit, *beatmap.AlignmentReport) {
	out := make([]beatmap.ClassifiedHit, len(hits))
	copy(out, hits)

	report := &beatmap.AlignmentReport{
		Events:           make([]beatmap.AlignmentOutcome, len(hits)),
		ToleranceSeconds: a.cfg.ToleranceSec,
	}

	// First pass: each hit claims its nearest beat if within tolerance
	type claim struct {
		hitIdx  int
		absDist float64
	}
	claims := map[int]claim{}
	beatOf := make([]int, len(hits))
	var closestDistances []float64

	for i, hit := range hits {
		beatOf[i] = -1
		report.Events[i] = beatmap.AlignmentOutcome{
			OriginalTime: hit.Time,
			Status:       beatmap.AlignmentUnaligned,
		}

		beatIdx, dist := g.NearestBeat(hit.Time)
		if beatIdx < 0 {
			continue
		}
		absDist := math.Abs(dist)
		report.Events[i].DeltaSeconds = absDist
		if absDist > a.cfg.ToleranceSec {
			closestDistances = append(closestDistances, absDist)
			continue
		}

		beatOf[i] = beatIdx
		if prev, taken := claims[beatIdx]; !taken || absDist < prev.absDist {
			claims[beatIdx] = claim{hitIdx: i, absDist: absDist}
		}
	}

	// Second pass: winners snap, displaced claimants keep their time
	var absDeltas []float64
	for i := range hits {
		beatIdx := beatOf[i]
		if beatIdx < 0 {
			report.UnalignedCount++
			continue
		}

		if claims[beatIdx].hitIdx != i {
			report.Events[i].Status = beatmap.AlignmentConflict
			report.ConflictCount++
			continue
		}

		snapped := g.Beats[beatIdx].Time

		out[i].Time = snapped
		report.Events[i].Status = beatmap.AlignmentAligned
		report.Events[i].SnappedTime = &snapped
		report.Events[i].BeatIndex = &beatIdx
		report.SnappedCount++
		absDeltas = append(absDeltas, report.Events[i].DeltaSeconds)
	}

	fillDeltaStats(report, absDeltas)
	fillClosestStats(report, closestDistances)

	a.logger.Debug("alignment complete", logging.Fields{
		"events":    len(hits),
		"snapped":   report.SnappedCount,
		"unaligned": report.UnalignedCount,
		"conflicts": report.ConflictCount,
	})

	return out, report
}

func fillDeltaStats(report *beatmap.AlignmentReport, absDeltas []float64) {
	if len(absDeltas) == 0 {
		return
	}

	sort.Float64s(absDeltas)
	report.MeanAbsDelta = stat.Mean(absDeltas, nil)
	report.MedianAbsDelta = stat.Quantile(0.5, stat.Empirical, absDeltas, nil)
	report.MaxAbsDelta = absDeltas[len(absDeltas)-1]
}

// fillClosestStats aggregates how far outside-tolerance events sit from
// their nearest beat, a hint for retrying with a wider tolerance
func fillClosestStats(report *beatmap.AlignmentReport, closestDistances []float64) {
	if len(closestDistances) == 0 {
		return
	}

	sort.Float64s(closestDistances)
	report.MeanClosestDistance = stat.Mean(closestDistances, nil)
	report.MaxClosestDistance = closestDistances[len(closestDistances)-1]
}
