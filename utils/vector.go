package utils

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// NewVecRandom returns entries uniform in [-1,1) from a seeded source.
func NewVecRandom(N int, seed int64) (x []float64) {
	var (
		rng = rand.New(rand.NewSource(seed))
	)
	x = make([]float64, N)
	for i := range x {
		x[i] = 2*rng.Float64() - 1
	}
	return
}

func Norm2(x []float64) float64 { return floats.Norm(x, 2) }

// Residual computes dst = A*x - b.
func Residual(dst []float64, A CSR, x, b []float64) {
	A.MulVec(dst, x)
	floats.Sub(dst, b)
}

// ResidualNorm returns ||A*x - b||_2 using scratch of length rows(A).
func ResidualNorm(A CSR, x, b, scratch []float64) float64 {
	Residual(scratch, A, x, b)
	return floats.Norm(scratch, 2)
}

// RelativeError returns ||x - y|| / ||y||, or ||x - y|| when y is zero.
func RelativeError(x, y []float64) float64 {
	var (
		diff = floats.Distance(x, y, 2)
		ny   = floats.Norm(y, 2)
	)
	if ny == 0 {
		return diff
	}
	return diff / ny
}
