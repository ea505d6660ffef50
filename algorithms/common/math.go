package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance of a slice using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, val := range data {
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(data)))
}

// MinMaxNormalize normalizes data to [0, 1] range
func MinMaxNormalize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	min := floats.Min(data)
	max := floats.Max(data)

	if math.Abs(max-min) < 1e-10 {
		// Constant data normalizes to all zeros
		return make([]float64, len(data))
	}

	normalized := make([]float64, len(data))
	for i, val := range data {
		normalized[i] = (val - min) / (max - min)
	}

	return normalized
}

// MovingStats computes the mean and standard deviation of data over a
// centered moving window. Window edges are truncated, not padded.
func MovingStats(data []float64, windowSize int) (means, stds []float64) {
	means = make([]float64, len(data))
	stds = make([]float64, len(data))
	if len(data) == 0 || windowSize <= 0 {
		return means, stds
	}

	halfWindow := windowSize / 2
	for i := range data {
		start := i - halfWindow
		end := i + halfWindow + 1
		if start < 0 {
			start = 0
		}
		if end > len(data) {
			end = len(data)
		}

		window := data[start:end]
		means[i] = stat.Mean(window, nil)
		if len(window) > 1 {
			stds[i] = math.Sqrt(stat.Variance(window, nil))
		}
	}

	return means, stds
}

// LinRegression performs simple linear regression and returns slope, intercept, r²
func LinRegression(x, y []float64) (slope, intercept, rSquared float64) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, 0
	}

	// Use gonum's linear regression
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	yMean := Mean(y)
	ssTotal := 0.0
	ssResidual := 0.0

	for i := range x {
		predicted := alpha + beta*x[i]
		ssTotal += (y[i] - yMean) * (y[i] - yMean)
		ssResidual += (y[i] - predicted) * (y[i] - predicted)
	}

	rSquared = 1.0 - (ssResidual / ssTotal)
	if math.IsNaN(rSquared) || math.IsInf(rSquared, 0) {
		rSquared = 0.0
	}

	return beta, alpha, rSquared
}

// FindPeaks finds local maxima in data at least minHeight high and at least
// minDistance indices apart. When two peaks violate the distance constraint
// the higher one survives.
func FindPeaks(data []float64, minHeight, minDistance float64) []int {
	if len(data) < 3 {
		return []int{}
	}

	var peaks []int

	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] && data[i] >= minHeight {
			validPeak := true
			for _, existingPeak := range peaks {
				if math.Abs(float64(i-existingPeak)) < minDistance {
					if data[i] > data[existingPeak] {
						for j, peak := range peaks {
							if peak == existingPeak {
								peaks = append(peaks[:j], peaks[j+1:]...)
								break
							}
						}
					} else {
						validPeak = false
					}
					break
				}
			}

			if validPeak {
				peaks = append(peaks, i)
			}
		}
	}

	return peaks
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
