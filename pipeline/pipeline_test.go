package pipeline

import (
	"math"
	"testing"

	"github.com/drumscribe/drumscribe/audio"
	"github.com/drumscribe/drumscribe/beatmap"
	"github.com/drumscribe/drumscribe/classify"
)

const testSampleRate = 44100

// addStrike renders a decaying tone burst with a sharp attack
func addStrike(samples []float64, at, freq float64) {
	start := int(at * testSampleRate)
	length := int(0.06 * testSampleRate)
	for i := 0; i < length; i++ {
		if start+i >= len(samples) {
			break
		}
		decay := math.Exp(-float64(i) / (0.01 * testSampleRate))
		samples[start+i] += 0.8 * decay * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
}

// drumClip renders strikes every half second from 0.5s, alternating a low
// don-like tone and a high ka-like tone
func drumClip(t *testing.T, duration float64, count int) (*audio.Buffer, []float64, []beatmap.HitType) {
	t.Helper()

	samples := make([]float64, int(duration*testSampleRate))
	times := make([]float64, count)
	labels := make([]beatmap.HitType, count)

	for i := 0; i < count; i++ {
		at := 0.5 + float64(i)*0.5
		times[i] = at
		if i%2 == 0 {
			addStrike(samples, at, 150)
			labels[i] = beatmap.HitDon
		} else {
			addStrike(samples, at, 6000)
			labels[i] = beatmap.HitKa
		}
	}

	buf, err := audio.NewBuffer(samples, testSampleRate)
	if err != nil {
		t.Fatalf("failed to build test buffer: %v", err)
	}
	return buf, times, labels
}

func TestAnalyzeBeatsClickTrack(t *testing.T) {
	buf, _, _ := drumClip(t, 4.5, 7)

	analysis, err := New().AnalyzeBeats(buf)
	if err != nil {
		t.Fatalf("AnalyzeBeats failed: %v", err)
	}

	if math.Abs(analysis.BPM.BPM-120) > 2.0 {
		t.Errorf("expected ~120 bpm, got %.2f", analysis.BPM.BPM)
	}
	if analysis.BPM.Confidence <= 0.5 {
		t.Errorf("expected decent confidence on a clean pattern, got %.3f", analysis.BPM.Confidence)
	}

	if analysis.Summary.TotalBeats != len(analysis.Beats) {
		t.Errorf("summary reports %d beats, record has %d",
			analysis.Summary.TotalBeats, len(analysis.Beats))
	}

	interval := 60.0 / analysis.BPM.BPM
	for i := 1; i < len(analysis.Beats); i++ {
		gap := analysis.Beats[i].Time - analysis.Beats[i-1].Time
		if math.Abs(gap-interval) > 0.01 {
			t.Errorf("beat spacing %.4fs at %d, expected %.4fs", gap, i, interval)
		}
	}

	if analysis.Beats[0].MeasureNumber != 1 || analysis.Beats[0].BeatInMeasure != 1 {
		t.Error("first beat must open measure 1")
	}
}

func TestTranscribeWithoutModel(t *testing.T) {
	buf, times, _ := drumClip(t, 4.5, 7)

	hits, err := New().Transcribe(buf, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(hits) != len(times) {
		t.Fatalf("expected %d hits, got %d", len(times), len(hits))
	}
	for i, h := range hits {
		if diff := math.Abs(h.Time - times[i]); diff > 0.010 {
			t.Errorf("hit %d at %.4fs, expected %.4fs", i, h.Time, times[i])
		}
		if !h.Type.Valid() {
			t.Errorf("hit %d has invalid type %q", i, h.Type)
		}
		if h.Confidence < 0.5 || h.Confidence > 0.9 {
			t.Errorf("suggested hit %d confidence %.3f outside [0.5, 0.9]", i, h.Confidence)
		}
	}
}

func TestTrainThenTranscribe(t *testing.T) {
	buf, times, labels := drumClip(t, 4.5, 7)

	p := New()
	samples, err := p.ExtractLabeledSamples(buf, times, labels)
	if err != nil {
		t.Fatalf("ExtractLabeledSamples failed: %v", err)
	}

	classifier := classify.NewClassifier()
	if err := classifier.Train(samples); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	hits, err := p.Transcribe(buf, classifier.Model())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(hits) != len(labels) {
		t.Fatalf("expected %d hits, got %d", len(labels), len(hits))
	}
	for i, h := range hits {
		if h.Type != labels[i] {
			t.Errorf("hit %d classified %q, want %q", i, h.Type, labels[i])
		}
		if h.Confidence <= 0.5 {
			t.Errorf("hit %d confidence %.3f should exceed 0.5", i, h.Confidence)
		}
	}
}

func TestAlignTranscription(t *testing.T) {
	buf, _, _ := drumClip(t, 4.5, 7)

	p := New()
	g, err := p.BuildGrid(buf)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}

	hits, err := p.Transcribe(buf, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	aligned, report := p.Align(hits, g)

	if len(aligned) != len(hits) {
		t.Fatalf("alignment changed hit count: %d -> %d", len(hits), len(aligned))
	}
	if report.SnappedCount != len(hits) {
		t.Errorf("expected all %d hits snapped, got %d (unaligned %d, conflicts %d)",
			len(hits), report.SnappedCount, report.UnalignedCount, report.ConflictCount)
	}
	if report.MaxAbsDelta > 0.02 {
		t.Errorf("max snap delta %.4fs is suspiciously large for a clean clip", report.MaxAbsDelta)
	}
}

func TestBuildBeatmapFromHits(t *testing.T) {
	p := New()
	hits := []beatmap.ClassifiedHit{
		{Time: 1.5, Type: beatmap.HitKa, Confidence: 0.8},
		{Time: 0.5, Type: beatmap.HitDon, Confidence: 0.9},
	}

	artifact := p.BuildBeatmap(hits)

	if len(artifact.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(artifact.Notes))
	}
	if artifact.Notes[0].Time != 0.5 || artifact.Notes[1].Time != 1.5 {
		t.Error("notes not ordered by time")
	}
	if artifact.Notes[0].ID == artifact.Notes[1].ID {
		t.Error("note ids must be unique")
	}
}

func TestAnalyzeBeatsSilenceFails(t *testing.T) {
	buf, err := audio.NewBuffer(make([]float64, 2*testSampleRate), testSampleRate)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if _, err := New().AnalyzeBeats(buf); err == nil {
		t.Fatal("expected error for silent input")
	}
}
