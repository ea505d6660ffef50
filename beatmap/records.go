package beatmap

// Wire records for the external web/API layer. Field names are a contract
// with that layer and must not change.

// GridSummary aggregates a beat grid for the beat-analysis record
type GridSummary struct {
	TotalBeats    int `json:"totalBeats"`
	DownbeatCount int `json:"downbeatCount"`
	TotalMeasures int `json:"totalMeasures"`
}

// BeatAnalysis is the "beat analysis" output record: the full grid, its
// summary and the BPM block.
type BeatAnalysis struct {
	Beats   []Beat      `json:"beats"`
	Summary GridSummary `json:"summary"`
	BPM     BPMInfo     `json:"bpm"`
}

// NewBeatAnalysis assembles the record from a grid
func NewBeatAnalysis(g *BeatGrid) *BeatAnalysis {
	beats := make([]Beat, len(g.Beats))
	copy(beats, g.Beats)

	return &BeatAnalysis{
		Beats: beats,
		Summary: GridSummary{
			TotalBeats:    len(g.Beats),
			DownbeatCount: g.DownbeatCount(),
			TotalMeasures: g.TotalMeasures(),
		},
		BPM: g.BPM,
	}
}

// AlignmentStatus is the per-event outcome of an alignment run
type AlignmentStatus string

const (
	// AlignmentAligned means the event was snapped to a beat
	AlignmentAligned AlignmentStatus = "aligned"
	// AlignmentUnaligned means no beat was within tolerance; the original
	// time was preserved
	AlignmentUnaligned AlignmentStatus = "unaligned"
	// AlignmentConflict means another event with a smaller distance claimed
	// the same beat; the original time was preserved
	AlignmentConflict AlignmentStatus = "conflict"
)

// AlignmentOutcome is the per-input-event entry of an AlignmentReport.
// SnappedTime and BeatIndex are nil for events that were not snapped.
// DeltaSeconds is the distance to the nearest beat: the snap adjustment for
// aligned events, the closest distance for unaligned and conflict events.
type AlignmentOutcome struct {
	OriginalTime float64         `json:"originalTime"`
	SnappedTime  *float64        `json:"snappedTime,omitempty"`
	DeltaSeconds float64         `json:"deltaSeconds"`
	BeatIndex    *int            `json:"beatIndex,omitempty"`
	Status       AlignmentStatus `json:"status"`
}

// AlignmentReport is the diagnostic output of one alignment run. The
// closest-distance aggregates cover the events left outside tolerance.
type AlignmentReport struct {
	Events              []AlignmentOutcome `json:"events"`
	SnappedCount        int                `json:"snappedCount"`
	UnalignedCount      int                `json:"unalignedCount"`
	ConflictCount       int                `json:"conflictCount"`
	MeanAbsDelta        float64            `json:"meanAbsDelta"`
	MedianAbsDelta      float64            `json:"medianAbsDelta"`
	MaxAbsDelta         float64            `json:"maxAbsDelta"`
	MeanClosestDistance float64            `json:"meanClosestDistance"`
	MaxClosestDistance  float64            `json:"maxClosestDistance"`
	ToleranceSeconds    float64            `json:"toleranceSeconds"`
}
