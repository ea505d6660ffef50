package grid

import (
	"testing"

	"github.com/drumscribe/drumscribe/beatmap"
)

// patternOnsets places one onset on every beat of a 4/4 grid, accenting the
// beats whose index is congruent to accentPhase modulo 4
func patternOnsets(g *beatmap.BeatGrid, accentPhase int) []beatmap.OnsetEvent {
	onsets := make([]beatmap.OnsetEvent, len(g.Beats))
	for i, b := range g.Beats {
		strength := 0.2
		if b.Index%4 == accentPhase {
			strength = 1.0
		}
		onsets[i] = beatmap.OnsetEvent{Time: b.Time, Strength: strength}
	}
	return onsets
}

func TestLocateFirstMeasureFindsAccentedBeat(t *testing.T) {
	for phase := 0; phase < 4; phase++ {
		g := buildTestGrid(t, 120, 0, 8.0)
		onsets := patternOnsets(g, phase)

		anchor, err := NewMeasureDetector().LocateFirstMeasure(onsets, g)
		if err != nil {
			t.Fatalf("LocateFirstMeasure failed for phase %d: %v", phase, err)
		}
		if anchor.BeatIndex != phase {
			t.Errorf("anchor at beat %d, want %d", anchor.BeatIndex, phase)
		}
		if anchor.Confidence <= 0.5 {
			t.Errorf("phase %d: confidence %.3f too low for a clean repeating pattern",
				phase, anchor.Confidence)
		}
	}
}

func TestLocateFirstMeasurePrefersEarliestRepeat(t *testing.T) {
	// Accents on beats 1, 5, 9, ... repeat identically from anchors 1 and 5;
	// the earliest anchor must win the tie
	g := buildTestGrid(t, 120, 0, 8.0)
	onsets := patternOnsets(g, 1)

	anchor, err := NewMeasureDetector().LocateFirstMeasure(onsets, g)
	if err != nil {
		t.Fatalf("LocateFirstMeasure failed: %v", err)
	}
	if anchor.BeatIndex != 1 {
		t.Errorf("anchor at beat %d, want the earliest repeat at 1", anchor.BeatIndex)
	}
}

func TestLocateFirstMeasureInputValidation(t *testing.T) {
	detector := NewMeasureDetector()
	g := buildTestGrid(t, 120, 0, 8.0)

	// Fewer than two full measures
	short := buildTestGrid(t, 120, 0, 3.0)
	if _, err := detector.LocateFirstMeasure(patternOnsets(short, 0), short); err == nil {
		t.Error("expected error for a grid shorter than two measures")
	}

	if _, err := detector.LocateFirstMeasure(nil, g); err == nil {
		t.Error("expected error for empty onset timeline")
	}

	// Onsets nowhere near the grid contribute no density
	far := []beatmap.OnsetEvent{{Time: 100.0, Strength: 1.0}}
	if _, err := detector.LocateFirstMeasure(far, g); err == nil {
		t.Error("expected error when no onset lands on the grid")
	}
}

func TestRephaseMovesDownbeats(t *testing.T) {
	g := buildTestGrid(t, 120, 0, 8.0)

	// Anchor on beat 6: downbeats land on indices congruent to 2 mod 4
	rephased := NewMeasureDetector().Rephase(g, 6)

	if len(rephased.Beats) != len(g.Beats) {
		t.Fatalf("rephase changed beat count: %d -> %d", len(g.Beats), len(rephased.Beats))
	}

	for i, b := range rephased.Beats {
		if b.Time != g.Beats[i].Time {
			t.Errorf("beat %d time changed: %.4f -> %.4f", i, g.Beats[i].Time, b.Time)
		}
		if b.Strength != g.Beats[i].Strength {
			t.Errorf("beat %d strength changed", i)
		}

		wantDownbeat := b.Index%4 == 2
		if (b.Type == beatmap.BeatDownbeat) != wantDownbeat {
			t.Errorf("beat %d: downbeat=%v, want %v", b.Index, b.Type == beatmap.BeatDownbeat, wantDownbeat)
		}
	}

	// The pickup before the first downbeat still opens measure 1
	first := rephased.Beats[0]
	if first.MeasureNumber != 1 || first.BeatInMeasure != 1 {
		t.Errorf("first beat is measure %d beat %d, want measure 1 beat 1",
			first.MeasureNumber, first.BeatInMeasure)
	}

	// Beat at the anchor phase starts measure 2
	if rephased.Beats[2].MeasureNumber != 2 || rephased.Beats[2].BeatInMeasure != 1 {
		t.Errorf("anchor beat is measure %d beat %d, want measure 2 beat 1",
			rephased.Beats[2].MeasureNumber, rephased.Beats[2].BeatInMeasure)
	}

	// Original grid untouched
	if g.Beats[2].Type != beatmap.BeatRegular || g.Beats[2].MeasureNumber != 1 {
		t.Error("Rephase modified the input grid")
	}
}
