package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// FirstMismatch returns the first index where got and want differ
// bitwise, or -1 if they are identical. A length difference reports the
// shorter length.
func FirstMismatch(got, want []float32) int {
	n := min(len(got), len(want))
	for i := range n {
		if math.Float32bits(got[i]) != math.Float32bits(want[i]) {
			return i
		}
	}
	if len(got) != len(want) {
		return n
	}
	return -1
}

// RequireSamplesEqual fails t unless got and want are bitwise identical.
func RequireSamplesEqual(t *testing.T, got, want []float32) {
	t.Helper()
	i := FirstMismatch(got, want)
	if i < 0 {
		return
	}
	if i >= len(got) || i >= len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
}
