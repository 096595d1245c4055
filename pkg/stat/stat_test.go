package stat

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{5}, 5},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negatives", []float64{-2, 2}, 0},
	}
	for _, tt := range tests {
		if got := Mean(tt.values); !almostEqual(got, tt.want) {
			t.Errorf("%s: Mean() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSampleVariance(t *testing.T) {
	// Known series: variance of {2, 4, 4, 4, 5, 5, 7, 9} is 4.571428...
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	want := 32.0 / 7.0
	if got := SampleVariance(values); !almostEqual(got, want) {
		t.Fatalf("SampleVariance() = %v, want %v", got, want)
	}

	if got := SampleVariance([]float64{3}); got != 0 {
		t.Fatalf("SampleVariance(single) = %v, want 0", got)
	}
	if got := SampleVariance(nil); got != 0 {
		t.Fatalf("SampleVariance(nil) = %v, want 0", got)
	}
}

func TestSlope_RecoversLinearRelation(t *testing.T) {
	// y = 3x + 1 exactly
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{4, 7, 10, 13, 16}
	if got := Slope(x, y); !almostEqual(got, 3) {
		t.Fatalf("Slope() = %v, want 3", got)
	}
}

func TestSlope_DegenerateInputs(t *testing.T) {
	if got := Slope([]float64{1, 1, 1}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("Slope(constant x) = %v, want 0", got)
	}
	if got := Slope([]float64{1, 2}, []float64{1}); got != 0 {
		t.Fatalf("Slope(mismatched) = %v, want 0", got)
	}
	if got := Slope([]float64{1}, []float64{1}); got != 0 {
		t.Fatalf("Slope(short) = %v, want 0", got)
	}
}

func TestSlopeThroughOrigin(t *testing.T) {
	// y = 2x exactly, no intercept term
	x := []float64{1, 2, 3}
	y := []float64{2, 4, 6}
	if got := SlopeThroughOrigin(x, y); !almostEqual(got, 2) {
		t.Fatalf("SlopeThroughOrigin() = %v, want 2", got)
	}
	if got := SlopeThroughOrigin([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Fatalf("SlopeThroughOrigin(zero x) = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		if got := Median(tt.values); !almostEqual(got, tt.want) {
			t.Errorf("%s: Median() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Fatalf("Median mutated input: %v", values)
	}
}
