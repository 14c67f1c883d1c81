package multigrid

import (
	"fmt"
	"math"

	"github.com/notargets/gomultigrid/utils"
	"gonum.org/v1/gonum/mat"
)

// conditionLimit rejects coarse operators that are numerically singular.
const conditionLimit = 1e15

func checkSquare(A utils.CSR) (n int, err error) {
	var nc int
	n, nc = A.Dims()
	switch {
	case n != nc:
		err = fmt.Errorf("%w: coarse operator is %dx%d", ErrDimension, n, nc)
	case n == 0:
		err = fmt.Errorf("%w: coarse operator is empty", ErrConfiguration)
	}
	return
}

// DenseLU is the default coarse factorizer, a dense partial pivoting LU.
type DenseLU struct {
	lu mat.LU
	n  int
}

func (d *DenseLU) Analyze(A utils.CSR) (err error) {
	d.n, err = checkSquare(A)
	return
}

func (d *DenseLU) Factorize(A utils.CSR) error {
	d.lu.Factorize(A.Dense())
	if cond := d.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > conditionLimit {
		return fmt.Errorf("%w: coarse operator is singular (condition number %g)", ErrFactorization, cond)
	}
	return nil
}

func (d *DenseLU) Solve(dst, rhs []float64) error {
	var (
		x = mat.NewVecDense(d.n, dst)
	)
	if err := d.lu.SolveVecTo(x, false, mat.NewVecDense(d.n, rhs)); err != nil {
		return fmt.Errorf("%w: %v", ErrFactorization, err)
	}
	return nil
}

// DenseCholesky factors a symmetric positive definite coarse operator.
type DenseCholesky struct {
	ch mat.Cholesky
	n  int
}

func (d *DenseCholesky) Analyze(A utils.CSR) (err error) {
	d.n, err = checkSquare(A)
	return
}

func (d *DenseCholesky) Factorize(A utils.CSR) error {
	var (
		D   = A.Dense()
		sym = mat.NewSymDense(d.n, nil)
	)
	for i := 0; i < d.n; i++ {
		for j := i; j < d.n; j++ {
			aij, aji := D.At(i, j), D.At(j, i)
			if math.Abs(aij-aji) > utils.NODETOL*math.Max(1, math.Abs(aij)) {
				return fmt.Errorf("%w: coarse operator is not symmetric at (%d,%d)", ErrFactorization, i, j)
			}
			sym.SetSym(i, j, aij)
		}
	}
	if ok := d.ch.Factorize(sym); !ok {
		return fmt.Errorf("%w: coarse operator is not positive definite", ErrFactorization)
	}
	return nil
}

func (d *DenseCholesky) Solve(dst, rhs []float64) error {
	var (
		x = mat.NewVecDense(d.n, dst)
	)
	if err := d.ch.SolveVecTo(x, mat.NewVecDense(d.n, rhs)); err != nil {
		return fmt.Errorf("%w: %v", ErrFactorization, err)
	}
	return nil
}

type coarseSolver struct {
	f CoarseFactorizer
	n int
}

func (cfg *SolverConfig) newCoarseSolver(A utils.CSR) (cs *coarseSolver, err error) {
	cs = &coarseSolver{}
	if cfg.NewCoarseFactorizer != nil {
		cs.f = cfg.NewCoarseFactorizer()
	} else {
		cs.f = &DenseLU{}
	}
	cs.n, _ = A.Dims()
	if err = cs.f.Analyze(A); err != nil {
		return nil, fmt.Errorf("coarse analyze: %w", err)
	}
	if err = cs.f.Factorize(A); err != nil {
		return nil, fmt.Errorf("coarse factorize: %w", err)
	}
	return
}

func (cs *coarseSolver) solve(x, rhs []float64) error {
	return cs.f.Solve(x, rhs)
}
