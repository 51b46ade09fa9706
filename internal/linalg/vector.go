package linalg

import "math"

// Dot returns the dot product of equal-length vectors.
func Dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Norm returns the Euclidean norm.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize returns v scaled to unit norm, or nil for a zero-norm input
// (callers treat nil as a degenerate spectrum).
func Normalize(v []float64) []float64 {
	n := Norm(v)
	if n == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Distance returns the Euclidean distance between equal-length vectors.
func Distance(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// Angle returns the angle in radians between two vectors via the clipped
// dot product of their unit forms. A zero-norm input yields the maximum
// angle pi/2, matching the invalid-pixel convention of the spectral angle
// mapper.
func Angle(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return math.Pi / 2
	}
	c := Dot(a, b) / (na * nb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// Mahalanobis returns sqrt(max(0, (x-mean)ᵗ covInv (x-mean))). The clamp
// guards against slightly negative quadratic forms from a degenerate
// inverse.
func Mahalanobis(x, mean []float64, covInv *Matrix) float64 {
	n := len(mean)
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = x[i] - mean[i]
	}
	q := 0.0
	for i := 0; i < n; i++ {
		row := covInv.Data[i*n : (i+1)*n]
		s := 0.0
		for j := 0; j < n; j++ {
			s += row[j] * diff[j]
		}
		q += diff[i] * s
	}
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q)
}
