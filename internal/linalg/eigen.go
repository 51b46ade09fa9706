package linalg

import "fmt"

// powerIterations is the fixed iteration budget per eigenpair.
const powerIterations = 100

// Eigenpair is one extracted component: a unit-norm eigenvector and its
// Rayleigh-quotient eigenvalue.
type Eigenpair struct {
	Value  float64
	Vector []float64
}

// TopEigenpairs extracts the leading k eigenpairs of a symmetric matrix by
// power iteration with deflation: iterate v <- normalize(C v) from a
// uniform start for a fixed budget, take the Rayleigh quotient as the
// eigenvalue, then deflate C <- C - lambda v vᵗ and repeat.
//
// This is an approximation, not an exact symmetric eigen-decomposition: it
// assumes the top eigenvalues are reasonably separated, which holds for
// band covariances at the small dimensions used here. Extraction stops
// early if an iterate collapses to zero norm (all remaining variance
// deflated away).
func TopEigenpairs(m *Matrix, k int) ([]Eigenpair, error) {
	if m.Rows != m.Cols {
		return nil, fmt.Errorf("eigen-extraction of non-square %dx%d matrix", m.Rows, m.Cols)
	}
	n := m.Rows
	if k > n {
		k = n
	}
	work := m.Clone()
	pairs := make([]Eigenpair, 0, k)

	for c := 0; c < k; c++ {
		v := make([]float64, n)
		for i := range v {
			v[i] = 1
		}
		v = Normalize(v)
		if v == nil {
			break
		}

		collapsed := false
		for it := 0; it < powerIterations; it++ {
			next, err := work.MulVec(v)
			if err != nil {
				return nil, err
			}
			next = Normalize(next)
			if next == nil {
				collapsed = true
				break
			}
			v = next
		}
		if collapsed {
			break
		}

		// Rayleigh quotient lambda = vᵗ C v (v is unit norm).
		cv, err := work.MulVec(v)
		if err != nil {
			return nil, err
		}
		lambda := Dot(v, cv)

		pairs = append(pairs, Eigenpair{Value: lambda, Vector: v})

		// Deflate: C <- C - lambda v vᵗ.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				work.Data[i*n+j] -= lambda * v[i] * v[j]
			}
		}
	}
	return pairs, nil
}
