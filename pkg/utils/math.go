package utils

import "math"

// Axpy computes dst = s1*a + s2*b element-wise.
// dst may alias a or b; all three slices must share a length.
func Axpy(dst []float64, s1 float64, a []float64, s2 float64, b []float64) {
	for i := range dst {
		dst[i] = s1*a[i] + s2*b[i]
	}
}

// Fill sets every element of dst to v.
func Fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

// EqualVec reports whether a and b hold exactly the same coordinates.
func EqualVec(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// AllFinite reports whether every element of v is a finite number.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
