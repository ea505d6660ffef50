package audio

import (
	"math"
	"testing"
)

func TestNewBufferCopiesInput(t *testing.T) {
	samples := []float64{0.1, 0.2, 0.3}
	buf, err := NewBuffer(samples, 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	samples[0] = 9.9
	if buf.Raw()[0] != 0.1 {
		t.Error("buffer shares storage with caller slice")
	}

	out := buf.Samples()
	out[1] = 9.9
	if buf.Raw()[1] != 0.2 {
		t.Error("Samples() does not return a copy")
	}
}

func TestNewBufferRejectsBadInput(t *testing.T) {
	if _, err := NewBuffer(nil, 44100); err == nil {
		t.Error("expected error for empty samples")
	}
	if _, err := NewBuffer([]float64{0.1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewBuffer([]float64{0.1}, -1); err == nil {
		t.Error("expected error for negative sample rate")
	}
}

func TestBufferDuration(t *testing.T) {
	buf, err := NewBuffer(make([]float64, 22050), 44100)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if math.Abs(buf.Duration()-0.5) > 1e-9 {
		t.Errorf("Duration = %.4f, want 0.5", buf.Duration())
	}
	if buf.NumSamples() != 22050 {
		t.Errorf("NumSamples = %d, want 22050", buf.NumSamples())
	}
}

func TestBufferWindow(t *testing.T) {
	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = float64(i)
	}
	buf, err := NewBuffer(samples, 1000)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	// Interior window: 0.1s half-width at 1 kHz = 100 samples each side
	w := buf.Window(0.5, 0.1)
	if len(w) != 200 {
		t.Fatalf("interior window has %d samples, want 200", len(w))
	}
	if w[0] != 400 {
		t.Errorf("window starts at sample %v, want 400", w[0])
	}

	// Truncated at the start
	w = buf.Window(0.05, 0.1)
	if len(w) != 150 {
		t.Errorf("start-truncated window has %d samples, want 150", len(w))
	}
	if w[0] != 0 {
		t.Errorf("start-truncated window begins at %v, want 0", w[0])
	}

	// Fully outside
	if w := buf.Window(5.0, 0.1); len(w) != 0 {
		t.Errorf("out-of-range window has %d samples, want 0", len(w))
	}

	// Window returns a copy
	w = buf.Window(0.5, 0.1)
	w[0] = -1
	if buf.Raw()[400] != 400 {
		t.Error("Window shares storage with the buffer")
	}
}
