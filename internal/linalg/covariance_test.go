package linalg

import (
	"math"
	"testing"
)

func TestMeanCovarianceKnownValues(t *testing.T) {
	vectors := [][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	}
	mean, err := Mean(vectors)
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if mean[0] != 3 || mean[1] != 4 {
		t.Errorf("mean = %v, want [3 4]", mean)
	}

	cov, err := Covariance(vectors, mean)
	if err != nil {
		t.Fatalf("Covariance: %v", err)
	}
	// Sample variance of {1,3,5} is 4; bands move together so all entries
	// equal 4.
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(cov.At(i, j)-4) > 1e-12 {
				t.Errorf("cov[%d][%d] = %v, want 4", i, j, cov.At(i, j))
			}
		}
	}
}

func TestMeanEmptyPopulation(t *testing.T) {
	if _, err := Mean(nil); err == nil {
		t.Error("expected error for empty population")
	}
}

func TestRegularizeCovarianceMakesInvertible(t *testing.T) {
	// Perfectly correlated bands: singular covariance.
	vectors := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	mean, _ := Mean(vectors)
	cov, _ := Covariance(vectors, mean)

	RegularizeCovariance(cov)
	inv, err := cov.Inverse()
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	prod, _ := cov.Mul(inv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(prod.At(i, j)-want) > 1e-6 {
				t.Errorf("regularized cov not invertible: product[%d][%d] = %v", i, j, prod.At(i, j))
			}
		}
	}
}

func TestRegularizeZeroCovariance(t *testing.T) {
	cov := NewMatrix(3, 3)
	RegularizeCovariance(cov)
	for i := 0; i < 3; i++ {
		if cov.At(i, i) <= 0 {
			t.Errorf("diagonal[%d] = %v, want > 0 after regularization", i, cov.At(i, i))
		}
	}
}

func TestMahalanobisIdentityCovariance(t *testing.T) {
	covInv := Identity(2)
	d := Mahalanobis([]float64{3, 4}, []float64{0, 0}, covInv)
	if math.Abs(d-5) > 1e-12 {
		t.Errorf("Mahalanobis = %v, want 5 (Euclidean under identity)", d)
	}
}

func TestAngleConventions(t *testing.T) {
	if a := Angle([]float64{1, 0}, []float64{1, 0}); a != 0 {
		t.Errorf("angle of identical vectors = %v, want 0", a)
	}
	if a := Angle([]float64{1, 0}, []float64{0, 1}); math.Abs(a-math.Pi/2) > 1e-12 {
		t.Errorf("angle of orthogonal vectors = %v, want pi/2", a)
	}
	if a := Angle([]float64{0, 0}, []float64{1, 0}); math.Abs(a-math.Pi/2) > 1e-12 {
		t.Errorf("angle with zero vector = %v, want pi/2", a)
	}
}
