// Package linalg implements the small dense-matrix kernel the analysis
// engines need: Gauss-Jordan inversion, a normal-equations pseudo-inverse,
// regularized covariance estimation, and power-iteration eigenpair
// extraction. Matrices are band-sized (tens at most), so everything is
// plain float64 slices; degenerate inputs degrade rather than fail, which
// is what the pixel-loop callers rely on.
package linalg

import (
	"fmt"
	"math"
)

// pivotEpsilon is the threshold below which a pivot is treated as zero and
// skipped. The affected row contributes nothing to the inverse; callers
// regularize their inputs (see RegularizeCovariance) to stay away from
// this path.
const pivotEpsilon = 1e-10

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns m[i][j].
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.Cols+j] }

// Set writes m[i][j].
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// Identity returns the n x n identity.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	copy(out.Data, m.Data)
	return out
}

// Mul returns m * other.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.Cols != other.Rows {
		return nil, fmt.Errorf("matrix multiply: %dx%d * %dx%d shape mismatch", m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out := NewMatrix(m.Rows, other.Cols)
	for i := 0; i < m.Rows; i++ {
		for k := 0; k < m.Cols; k++ {
			a := m.At(i, k)
			if a == 0 {
				continue
			}
			for j := 0; j < other.Cols; j++ {
				out.Data[i*out.Cols+j] += a * other.At(k, j)
			}
		}
	}
	return out, nil
}

// MulVec returns m * v.
func (m *Matrix) MulVec(v []float64) ([]float64, error) {
	if m.Cols != len(v) {
		return nil, fmt.Errorf("matrix-vector multiply: %dx%d * %d shape mismatch", m.Rows, m.Cols, len(v))
	}
	out := make([]float64, m.Rows)
	for i := 0; i < m.Rows; i++ {
		s := 0.0
		row := m.Data[i*m.Cols : (i+1)*m.Cols]
		for j, x := range v {
			s += row[j] * x
		}
		out[i] = s
	}
	return out, nil
}

// Transpose returns mᵗ.
func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}

// Inverse computes the inverse of a square matrix by Gauss-Jordan
// elimination with partial pivoting on the augmented [A|I] matrix. For
// each pivot column the row with the largest absolute value is swapped to
// the pivot position. A near-zero pivot is skipped rather than reported:
// that row's contribution to the inverse is degenerate, and the result is
// numerically meaningless unless the caller regularized the input first.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, fmt.Errorf("inverse of non-square %dx%d matrix", m.Rows, m.Cols)
	}
	n := m.Rows

	// Augmented [A|I].
	aug := NewMatrix(n, 2*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, m.At(i, j))
		}
		aug.Set(i, n+i, 1)
	}

	for col := 0; col < n; col++ {
		// Partial pivot: largest |value| in this column at or below the
		// pivot row.
		pivotRow := col
		pivotAbs := math.Abs(aug.At(col, col))
		for r := col + 1; r < n; r++ {
			if a := math.Abs(aug.At(r, col)); a > pivotAbs {
				pivotAbs = a
				pivotRow = r
			}
		}
		if pivotRow != col {
			for j := 0; j < 2*n; j++ {
				tmp := aug.At(col, j)
				aug.Set(col, j, aug.At(pivotRow, j))
				aug.Set(pivotRow, j, tmp)
			}
		}

		pivot := aug.At(col, col)
		if math.Abs(pivot) < pivotEpsilon {
			// Degenerate column: skip. See package comment.
			continue
		}

		inv := 1 / pivot
		for j := 0; j < 2*n; j++ {
			aug.Set(col, j, aug.At(col, j)*inv)
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug.At(r, col)
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug.Set(r, j, aug.At(r, j)-factor*aug.At(col, j))
			}
		}
	}

	out := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, aug.At(i, n+j))
		}
	}
	return out, nil
}

// PseudoInverse computes (EᵗE)⁻¹Eᵗ for a rows x cols matrix E. It is the
// least-squares solve used by linear unmixing, valid only when
// cols <= rows (endmember count at most band count); otherwise the system
// is ill-posed and a data error is returned.
func (m *Matrix) PseudoInverse() (*Matrix, error) {
	if m.Cols > m.Rows {
		return nil, fmt.Errorf("pseudo-inverse of %dx%d matrix: more columns than rows makes the solve ill-posed", m.Rows, m.Cols)
	}
	t := m.Transpose()
	ete, err := t.Mul(m)
	if err != nil {
		return nil, err
	}
	inv, err := ete.Inverse()
	if err != nil {
		return nil, err
	}
	return inv.Mul(t)
}
