// Package features turns short audio windows around hit times into
// fixed-dimension acoustic descriptors for the don/ka classifier.
package features

import "runtime"

// Config holds feature extraction parameters. The same config must be used
// for training and inference; Dimension is derived from it.
type Config struct {
	WindowHalfWidthSec float64 `json:"window_half_width_sec"` // analysis window half-width around the hit
	NumMFCC            int     `json:"num_mfcc"`              // cepstral coefficients per window
	NumMelFilters      int     `json:"num_mel_filters"`       // mel filter bank size
	RolloffThreshold   float64 `json:"rolloff_threshold"`     // spectral rolloff energy fraction
	MaxConcurrency     int     `json:"max_concurrency"`       // parallel extraction workers (0 = NumCPU)
}

// DefaultConfig returns extraction parameters tuned for isolated drum strikes
func DefaultConfig() Config {
	return Config{
		WindowHalfWidthSec: 0.05,
		NumMFCC:            13,
		NumMelFilters:      26,
		RolloffThreshold:   0.85,
	}
}

// Dimension returns the descriptor length produced under this config:
// the MFCC block plus centroid, bandwidth, rolloff, zero-crossing rate
// and RMS energy.
func (c Config) Dimension() int {
	return c.NumMFCC + 5
}

func (c Config) workerCount() int {
	if c.MaxConcurrency > 0 {
		return c.MaxConcurrency
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}
