package linalg

import "fmt"

// regularizationFraction of the mean diagonal magnitude added back onto
// the diagonal before inversion.
const regularizationFraction = 0.01

// Mean computes the component-wise mean of a non-empty vector population.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("mean of empty vector population")
	}
	dim := len(vectors[0])
	mean := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("mean: vector length %d, want %d", len(v), dim)
		}
		for i, x := range v {
			mean[i] += x
		}
	}
	inv := 1 / float64(len(vectors))
	for i := range mean {
		mean[i] *= inv
	}
	return mean, nil
}

// Covariance estimates the sample covariance matrix of a vector
// population around the supplied mean. With fewer than two vectors the
// result is the zero matrix (regularization makes it invertible anyway).
func Covariance(vectors [][]float64, mean []float64) (*Matrix, error) {
	dim := len(mean)
	cov := NewMatrix(dim, dim)
	if len(vectors) < 2 {
		return cov, nil
	}
	diff := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("covariance: vector length %d, want %d", len(v), dim)
		}
		for i := range diff {
			diff[i] = v[i] - mean[i]
		}
		for i := 0; i < dim; i++ {
			di := diff[i]
			if di == 0 {
				continue
			}
			for j := i; j < dim; j++ {
				cov.Data[i*dim+j] += di * diff[j]
			}
		}
	}
	norm := 1 / float64(len(vectors)-1)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			c := cov.Data[i*dim+j] * norm
			cov.Data[i*dim+j] = c
			cov.Data[j*dim+i] = c
		}
	}
	return cov, nil
}

// RegularizeCovariance adds (trace/n) * 0.01 to every diagonal entry in
// place, guaranteeing invertibility against rank-deficient band
// covariances. For an all-zero matrix a tiny absolute floor is used so
// the inverse stays finite.
func RegularizeCovariance(cov *Matrix) {
	n := cov.Rows
	if n == 0 {
		return
	}
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += cov.At(i, i)
	}
	eps := trace / float64(n) * regularizationFraction
	if eps <= 0 {
		eps = pivotEpsilon * 10
	}
	for i := 0; i < n; i++ {
		cov.Set(i, i, cov.At(i, i)+eps)
	}
}

// MeanCovariance is the common prepare step for the RX detectors: mean,
// regularized covariance, and its inverse, in one call.
func MeanCovariance(vectors [][]float64) (mean []float64, covInv *Matrix, err error) {
	mean, err = Mean(vectors)
	if err != nil {
		return nil, nil, err
	}
	cov, err := Covariance(vectors, mean)
	if err != nil {
		return nil, nil, err
	}
	RegularizeCovariance(cov)
	covInv, err = cov.Inverse()
	if err != nil {
		return nil, nil, err
	}
	return mean, covInv, nil
}
