package beatmap

import (
	"math"
	"testing"
)

func TestParseHitType(t *testing.T) {
	cases := []struct {
		input   string
		want    HitType
		wantErr bool
	}{
		{"don", HitDon, false},
		{"ka", HitKa, false},
		{"", "", true},
		{"snare", "", true},
		{"Don", "", true},
	}

	for _, tc := range cases {
		got, err := ParseHitType(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHitType(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHitType(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseHitType(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func testGrid() *BeatGrid {
	var beats []Beat
	for t := 0.0; t <= 4.0; t += 0.5 {
		beats = append(beats, Beat{Index: len(beats), Time: t})
	}
	return &BeatGrid{
		Beats:         beats,
		BPM:           BPMInfo{BPM: 120},
		TimeSignature: CommonTime,
		Duration:      4.0,
	}
}

func TestNearestBeat(t *testing.T) {
	g := testGrid()

	cases := []struct {
		t        float64
		wantIdx  int
		wantDist float64
	}{
		{0.0, 0, 0},
		{0.48, 1, 0.02},
		{0.52, 1, -0.02},
		{0.25, 0, -0.25}, // exact midpoint keeps the earlier beat
		{3.99, 8, 0.01},
		{-1.0, 0, 1.0},
		{9.0, 8, -5.0},
	}

	for _, tc := range cases {
		idx, dist := g.NearestBeat(tc.t)
		if idx != tc.wantIdx {
			t.Errorf("NearestBeat(%.2f) index = %d, want %d", tc.t, idx, tc.wantIdx)
		}
		if math.Abs(dist-tc.wantDist) > 1e-9 {
			t.Errorf("NearestBeat(%.2f) dist = %.4f, want %.4f", tc.t, dist, tc.wantDist)
		}
	}
}

func TestNearestBeatEmptyGrid(t *testing.T) {
	g := &BeatGrid{}
	if idx, _ := g.NearestBeat(1.0); idx != -1 {
		t.Errorf("expected index -1 for empty grid, got %d", idx)
	}
}

func TestBeatInterval(t *testing.T) {
	g := testGrid()
	if got := g.BeatInterval(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("BeatInterval = %.4f, want 0.5", got)
	}

	empty := &BeatGrid{}
	if got := empty.BeatInterval(); got != 0 {
		t.Errorf("BeatInterval without bpm = %.4f, want 0", got)
	}
}

func TestGridCounters(t *testing.T) {
	g := testGrid()
	for i := range g.Beats {
		if i%4 == 0 {
			g.Beats[i].Type = BeatDownbeat
		} else {
			g.Beats[i].Type = BeatRegular
		}
		g.Beats[i].MeasureNumber = i/4 + 1
	}

	if got := g.DownbeatCount(); got != 3 {
		t.Errorf("DownbeatCount = %d, want 3", got)
	}
	if got := g.TotalMeasures(); got != 3 {
		t.Errorf("TotalMeasures = %d, want 3", got)
	}
}
