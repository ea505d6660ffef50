package onset

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/drumscribe/drumscribe/audio"
)

const testSampleRate = 44100

// synthClip renders a clip with decaying noise bursts at the given times
func synthClip(t *testing.T, duration float64, burstTimes []float64) *audio.Buffer {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	samples := make([]float64, int(duration*testSampleRate))

	for _, bt := range burstTimes {
		start := int(bt * testSampleRate)
		burstLen := int(0.03 * testSampleRate)
		for i := 0; i < burstLen; i++ {
			if start+i >= len(samples) {
				break
			}
			decay := math.Exp(-float64(i) / (0.008 * testSampleRate))
			samples[start+i] += (rng.Float64()*2 - 1) * decay * 0.8
		}
	}

	buf, err := audio.NewBuffer(samples, testSampleRate)
	if err != nil {
		t.Fatalf("failed to build test buffer: %v", err)
	}
	return buf
}

func TestDetectFindsBursts(t *testing.T) {
	burstTimes := []float64{0.25, 0.75, 1.25, 1.75}
	buf := synthClip(t, 2.0, burstTimes)

	events, err := NewDetector().Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(events) != len(burstTimes) {
		t.Fatalf("expected %d onsets, got %d", len(burstTimes), len(events))
	}

	for i, e := range events {
		if diff := math.Abs(e.Time - burstTimes[i]); diff > 0.010 {
			t.Errorf("onset %d at %.4fs, expected %.4fs (off by %.1fms)",
				i, e.Time, burstTimes[i], diff*1000)
		}
		if e.Strength <= 0 || e.Strength > 1 {
			t.Errorf("onset %d strength %.3f outside (0, 1]", i, e.Strength)
		}
	}
}

func TestDetectOrderingAndGap(t *testing.T) {
	buf := synthClip(t, 3.0, []float64{0.2, 0.5, 0.9, 1.4, 2.0, 2.6})

	events, err := NewDetector().Detect(buf)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	cfg := DefaultConfig()
	for i := 1; i < len(events); i++ {
		gap := events[i].Time - events[i-1].Time
		if gap <= 0 {
			t.Errorf("events not strictly increasing at %d: %.4f -> %.4f",
				i, events[i-1].Time, events[i].Time)
		}
		if gap < cfg.MinGapSec {
			t.Errorf("gap %.4fs at %d below minimum %.3fs", gap, i, cfg.MinGapSec)
		}
	}
}

func TestDetectDeterministic(t *testing.T) {
	buf := synthClip(t, 2.0, []float64{0.3, 0.8, 1.3})

	d := NewDetector()
	first, err := d.Detect(buf)
	if err != nil {
		t.Fatalf("first Detect failed: %v", err)
	}
	second, err := d.Detect(buf)
	if err != nil {
		t.Fatalf("second Detect failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("event %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectSilenceFails(t *testing.T) {
	samples := make([]float64, 2*testSampleRate)
	buf, err := audio.NewBuffer(samples, testSampleRate)
	if err != nil {
		t.Fatalf("failed to build test buffer: %v", err)
	}

	_, err = NewDetector().Detect(buf)
	if err == nil {
		t.Fatal("expected error for silent input")
	}
	if !errors.Is(err, ErrNoOnsetsDetected) {
		t.Errorf("expected ErrNoOnsetsDetected, got %v", err)
	}
}

func TestDetectTooShortFails(t *testing.T) {
	samples := make([]float64, 512)
	buf, err := audio.NewBuffer(samples, testSampleRate)
	if err != nil {
		t.Fatalf("failed to build test buffer: %v", err)
	}

	if _, err := NewDetector().Detect(buf); err == nil {
		t.Fatal("expected error for sub-window clip")
	}
}
