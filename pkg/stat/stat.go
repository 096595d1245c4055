// Package stat provides the small set of statistics primitives the
// calibration and desk code share: means, sample variance, least-squares
// slopes and medians over float64 series.
package stat

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleVariance returns the unbiased sample variance (Bessel's correction).
// Series shorter than 2 have no defined variance and return 0.
func SampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)-1)
}

// StdDev returns the sample standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(SampleVariance(values))
}

// Slope returns the ordinary least-squares slope of y against x.
// Returns 0 when the series are mismatched, too short, or x is constant.
func Slope(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0
	}
	mx := Mean(x)
	my := Mean(y)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}

// SlopeThroughOrigin returns the least-squares slope of y against x with the
// intercept constrained to zero: sum(x*y) / sum(x^2).
func SlopeThroughOrigin(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}

// Median returns the median of the series, or 0 for an empty one.
// The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
