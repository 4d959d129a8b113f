package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NormalizeL2 returns a copy of v scaled to unit Euclidean length. The
// second result is false when v has zero length or non-finite components.
func NormalizeL2(v []float64) ([]float64, bool) {
	if len(v) == 0 || !AllFinite(v) {
		return nil, false
	}
	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsInf(norm, 0) {
		return nil, false
	}
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/norm, out)
	return out, true
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// CosineDistance returns 1 - cos(a, b). Both slices must have equal length.
// A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// AllFinite reports whether every component of v is neither NaN nor infinite.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
