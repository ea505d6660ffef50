package classify

import (
	"sort"

	"github.com/drumscribe/drumscribe/algorithms/common"
	"github.com/drumscribe/drumscribe/beatmap"
)

// Suggester proposes provisional labels before any model has been trained,
// splitting hits on spectral brightness: dark strikes lean don, bright ones
// lean ka. Suggestions are advisory and meant for a curator to confirm.
type Suggester struct {
	centroidIndex int
}

// NewSuggester creates a suggester reading the spectral centroid at the given
// vector index
func NewSuggester(centroidIndex int) *Suggester {
	return &Suggester{centroidIndex: centroidIndex}
}

// Suggest labels each hit by its centroid relative to the batch median.
// Confidence grows with distance from the median, capped at 0.9 so curated
// classifier output always outranks suggestions.
func (s *Suggester) Suggest(times []float64, vectors []beatmap.FeatureVector) []beatmap.ClassifiedHit {
	if len(times) != len(vectors) || len(vectors) == 0 {
		return []beatmap.ClassifiedHit{}
	}

	centroids := make([]float64, len(vectors))
	for i, v := range vectors {
		if s.centroidIndex < len(v) {
			centroids[i] = v[s.centroidIndex]
		}
	}

	sorted := make([]float64, len(centroids))
	copy(sorted, centroids)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	spread := sorted[len(sorted)-1] - sorted[0]

	hits := make([]beatmap.ClassifiedHit, len(vectors))
	for i := range vectors {
		class := beatmap.HitDon
		if centroids[i] > median {
			class = beatmap.HitKa
		}

		confidence := 0.5
		if spread > 1e-9 {
			distance := centroids[i] - median
			if distance < 0 {
				distance = -distance
			}
			confidence = common.Clamp(0.5+distance/spread, 0.5, 0.9)
		}

		hits[i] = beatmap.ClassifiedHit{
			Time:       times[i],
			Type:       class,
			Confidence: confidence,
		}
	}

	return hits
}

// SuggestForBeat proposes a hit for a grid beat from its metric role alone,
// with a short reason for the curation UI. Downbeats lean don, accented
// offbeats lean ka, weak beats default to don at low confidence.
func SuggestForBeat(b beatmap.Beat) (beatmap.HitType, float64, string) {
	if b.Type == beatmap.BeatDownbeat {
		return beatmap.HitDon, common.Clamp(0.5+0.3*b.Strength, 0.5, 0.8), "downbeat"
	}
	if b.Strength >= 0.6 {
		return beatmap.HitKa, common.Clamp(0.4+0.3*b.Strength, 0.4, 0.7), "accented offbeat"
	}
	return beatmap.HitDon, 0.3, "weak beat"
}
