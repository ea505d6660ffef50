package classify

import (
	"testing"

	"github.com/drumscribe/drumscribe/beatmap"
)

func TestSuggestSplitsOnBrightness(t *testing.T) {
	// Single-dimension vectors holding the centroid feature directly
	times := []float64{0.5, 1.0, 1.5, 2.0}
	vectors := []beatmap.FeatureVector{
		{400},  // dark
		{500},  // dark
		{3500}, // bright
		{4000}, // bright
	}

	hits := NewSuggester(0).Suggest(times, vectors)

	if len(hits) != 4 {
		t.Fatalf("expected 4 suggestions, got %d", len(hits))
	}

	wants := []beatmap.HitType{beatmap.HitDon, beatmap.HitDon, beatmap.HitDon, beatmap.HitKa}
	for i, h := range hits {
		if h.Time != times[i] {
			t.Errorf("suggestion %d time %.2f, want %.2f", i, h.Time, times[i])
		}
		if h.Type != wants[i] {
			t.Errorf("suggestion %d: %q, want %q", i, h.Type, wants[i])
		}
		if h.Confidence < 0.5 || h.Confidence > 0.9 {
			t.Errorf("suggestion %d confidence %.3f outside [0.5, 0.9]", i, h.Confidence)
		}
	}
}

func TestSuggestForBeat(t *testing.T) {
	cases := []struct {
		name     string
		beat     beatmap.Beat
		wantType beatmap.HitType
		minConf  float64
		maxConf  float64
		reason   string
	}{
		{"strong downbeat", beatmap.Beat{Type: beatmap.BeatDownbeat, Strength: 1.0},
			beatmap.HitDon, 0.7, 0.8, "downbeat"},
		{"weak downbeat", beatmap.Beat{Type: beatmap.BeatDownbeat, Strength: 0.1},
			beatmap.HitDon, 0.5, 0.6, "downbeat"},
		{"accented offbeat", beatmap.Beat{Type: beatmap.BeatRegular, Strength: 0.9},
			beatmap.HitKa, 0.6, 0.7, "accented offbeat"},
		{"weak beat", beatmap.Beat{Type: beatmap.BeatRegular, Strength: 0.2},
			beatmap.HitDon, 0.3, 0.3, "weak beat"},
	}

	for _, tc := range cases {
		hitType, confidence, reason := SuggestForBeat(tc.beat)
		if hitType != tc.wantType {
			t.Errorf("%s: suggested %q, want %q", tc.name, hitType, tc.wantType)
		}
		if confidence < tc.minConf || confidence > tc.maxConf {
			t.Errorf("%s: confidence %.3f outside [%.2f, %.2f]",
				tc.name, confidence, tc.minConf, tc.maxConf)
		}
		if reason != tc.reason {
			t.Errorf("%s: reason %q, want %q", tc.name, reason, tc.reason)
		}
	}
}

func TestSuggestEmptyInput(t *testing.T) {
	if hits := NewSuggester(0).Suggest(nil, nil); len(hits) != 0 {
		t.Errorf("expected no suggestions, got %d", len(hits))
	}

	if hits := NewSuggester(0).Suggest([]float64{1}, nil); len(hits) != 0 {
		t.Errorf("expected no suggestions for mismatched input, got %d", len(hits))
	}
}
