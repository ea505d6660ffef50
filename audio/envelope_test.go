package audio

import (
	"math"
	"testing"
)

func TestEnvelopeConstantSignal(t *testing.T) {
	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = 0.5
	}
	buf, err := NewBuffer(samples, 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	env := ComputeRMSEnvelope(buf, 2048, 512)

	values := env.Values()
	if len(values) == 0 {
		t.Fatal("expected envelope frames")
	}
	for i, v := range values {
		if math.Abs(v-0.5) > 1e-9 {
			t.Errorf("frame %d: rms %.6f, want 0.5", i, v)
		}
	}
	if math.Abs(env.Max()-0.5) > 1e-9 {
		t.Errorf("Max = %.6f, want 0.5", env.Max())
	}
}

func TestEnvelopeTracksLoudness(t *testing.T) {
	// Quiet first half, loud second half
	samples := make([]float64, 44100)
	for i := range samples {
		if i < 22050 {
			samples[i] = 0.1
		} else {
			samples[i] = 0.8
		}
	}
	buf, err := NewBuffer(samples, 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	env := ComputeRMSEnvelope(buf, 2048, 512)

	quiet := env.SampleAt(0.2)
	loud := env.SampleAt(0.8)
	if quiet >= loud {
		t.Errorf("quiet region rms %.4f should be below loud region rms %.4f", quiet, loud)
	}
	if math.Abs(quiet-0.1) > 0.01 {
		t.Errorf("quiet rms %.4f, want ~0.1", quiet)
	}
	if math.Abs(loud-0.8) > 0.01 {
		t.Errorf("loud rms %.4f, want ~0.8", loud)
	}
}

func TestEnvelopeSampleAtBounds(t *testing.T) {
	samples := make([]float64, 8192)
	for i := range samples {
		samples[i] = 0.3
	}
	buf, err := NewBuffer(samples, 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	env := ComputeRMSEnvelope(buf, 2048, 512)

	// Out-of-range times clamp to the edge frames instead of panicking
	if v := env.SampleAt(-1.0); v != env.Values()[0] {
		t.Errorf("SampleAt before start = %.4f, want first frame", v)
	}
	last := env.Values()[len(env.Values())-1]
	if v := env.SampleAt(100.0); v != last {
		t.Errorf("SampleAt past end = %.4f, want last frame", v)
	}
}

func TestEnvelopeTooShort(t *testing.T) {
	buf, err := NewBuffer(make([]float64, 100), 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	env := ComputeRMSEnvelope(buf, 2048, 512)
	if len(env.Values()) != 0 {
		t.Errorf("expected empty envelope for sub-frame clip, got %d frames", len(env.Values()))
	}
	if env.SampleAt(0.0) != 0 {
		t.Error("SampleAt on empty envelope should be 0")
	}
	if env.Max() != 0 {
		t.Error("Max on empty envelope should be 0")
	}
}
