package multigrid

import (
	"fmt"
	"time"

	"github.com/notargets/gomultigrid/utils"
	"gonum.org/v1/gonum/floats"
)

// pcg runs preconditioned conjugate gradients on A*x = b from the x passed in. Iteration
// stops once ||r|| <= tol*||r0||. A nil precond is the identity. Every residual norm,
// starting with the initial one, is passed to trace when it is non nil.
func pcg(A utils.CSR, b, x []float64, tol float64, maxIter int,
	precond func(dst, src []float64) error, trace func(rnorm float64)) (iters int, converged bool, err error) {
	var (
		n  = len(b)
		r  = make([]float64, n)
		z  = make([]float64, n)
		p  = make([]float64, n)
		Ap = make([]float64, n)
	)
	A.MulVec(r, x)
	floats.SubTo(r, b, r)
	var (
		rnorm = floats.Norm(r, 2)
		r0    = rnorm
	)
	if trace != nil {
		trace(rnorm)
	}
	if r0 == 0 {
		return 0, true, nil
	}
	apply := func() error {
		if precond == nil {
			copy(z, r)
			return nil
		}
		return precond(z, r)
	}
	if err = apply(); err != nil {
		return
	}
	copy(p, z)
	rz := floats.Dot(r, z)
	for iters < maxIter {
		iters++
		A.MulVec(Ap, p)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 {
			err = fmt.Errorf("%w: operator not positive definite in CG (p'Ap = %g)", ErrFactorization, pAp)
			return
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		rnorm = floats.Norm(r, 2)
		if trace != nil {
			trace(rnorm)
		}
		if rnorm <= tol*r0 {
			converged = true
			return
		}
		if err = apply(); err != nil {
			return
		}
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		// p = z + beta*p
		floats.AddScaledTo(p, z, beta, p)
	}
	return
}

// Precondition sets dst to the result of one cycle applied to A*dst = src from a zero
// start. With symmetric smoothing, such as Gauss-Seidel with ReversePostSweep, this is a
// symmetric positive definite preconditioner.
func (h *Hierarchy) Precondition(dst, src []float64) error {
	return h.precondition(dst, src, 1, h.newWorkspace())
}

func (h *Hierarchy) precondition(dst, src []float64, cycles int, ws *workspace) error {
	var (
		fine = h.NumLevels() - 1
	)
	if len(dst) != h.Size() || len(src) != h.Size() {
		return fmt.Errorf("%w: precondition of length %d/%d on a level of size %d",
			ErrDimension, len(dst), len(src), h.Size())
	}
	for i := range dst {
		dst[i] = 0
	}
	for c := 0; c < cycles; c++ {
		if err := h.cycle(fine, src, dst, ws); err != nil {
			return err
		}
	}
	return nil
}

// SolvePCG solves the finest level system by conjugate gradients preconditioned with
// multigrid cycles. Result fields have the same meaning as for Solve; the residual history
// holds the CG recurrence residual norms.
func (h *Hierarchy) SolvePCG(rhs, x0 []float64, opts SolveOptions) (res *Result, err error) {
	var (
		start = time.Now()
		ws    = h.newWorkspace()
		A     = h.Finest().A
	)
	if res, rhs, err = h.startSolve(rhs, x0, &opts); err != nil {
		return
	}
	cycles := max(opts.FixedIterations, 1)
	trace := func(rnorm float64) {
		res.record(rnorm, h.log)
	}
	res.Iterations, res.Converged, err = pcg(A, rhs, res.X, opts.Tolerance, opts.MaxIterations,
		func(dst, src []float64) error { return h.precondition(dst, src, cycles, ws) }, trace)
	res.Elapsed = time.Since(start)
	h.log.Printf("PCG: %d iterations, converged = %v, %v", res.Iterations, res.Converged, res.Elapsed)
	return
}
