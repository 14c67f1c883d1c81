package multigrid

import (
	"fmt"
	"log"
	"time"

	"github.com/notargets/gomultigrid/utils"
)

type SolveOptions struct {
	Tolerance       float64 // relative to the initial residual, 0 means the config value
	MaxIterations   int     // 0 means the config value
	FixedIterations int     // when > 0, run exactly this many cycles
	RandomInitial   bool    // random x0 in [-1,1) when none is given
	Seed            int64
}

// Result reports the outcome of a solve. Hitting the iteration cap is not an error: X then
// holds the last iterate and Converged is false.
type Result struct {
	X               []float64
	Iterations      int
	Converged       bool
	ResidualHistory []float64 // ||A x - b|| before the first and after every iteration
	NonMonotonic    []int     // iterations whose residual exceeded the previous one
	Elapsed         time.Duration
}

func (res *Result) record(rnorm float64, logger *log.Logger) {
	if n := len(res.ResidualHistory); n > 0 && rnorm > res.ResidualHistory[n-1] {
		res.NonMonotonic = append(res.NonMonotonic, n)
		logger.Printf("residual increased at iteration %d: %.3e -> %.3e", n, res.ResidualHistory[n-1], rnorm)
	}
	res.ResidualHistory = append(res.ResidualHistory, rnorm)
}

// startSolve checks dimensions, fills defaults into opts and prepares the initial iterate.
// A nil rhs selects the assembled right hand side.
func (h *Hierarchy) startSolve(rhs, x0 []float64, opts *SolveOptions) (res *Result, b []float64, err error) {
	var (
		n = h.Size()
	)
	if rhs == nil {
		rhs = h.rhs
	}
	if len(rhs) != n {
		return nil, nil, fmt.Errorf("%w: right hand side has length %d, finest level has %d unknowns",
			ErrDimension, len(rhs), n)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = h.cfg.Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = h.cfg.MaxIterations
	}
	res = &Result{}
	switch {
	case x0 != nil:
		if len(x0) != n {
			return nil, nil, fmt.Errorf("%w: initial iterate has length %d, finest level has %d unknowns",
				ErrDimension, len(x0), n)
		}
		res.X = append([]float64(nil), x0...)
	case opts.RandomInitial:
		res.X = utils.NewVecRandom(n, opts.Seed)
	default:
		res.X = make([]float64, n)
	}
	return res, rhs, nil
}

// Solve iterates cycles on the finest level until ||A x - b|| <= Tolerance*||A x0 - b|| or
// the iteration cap. A residual increase is logged and reported in Result.NonMonotonic.
func (h *Hierarchy) Solve(rhs, x0 []float64, opts SolveOptions) (res *Result, err error) {
	var (
		start = time.Now()
		fine  = h.Finest()
		ws    = h.newWorkspace()
		r     = make([]float64, h.Size())
	)
	if res, rhs, err = h.startSolve(rhs, x0, &opts); err != nil {
		return
	}
	r0 := utils.ResidualNorm(fine.A, res.X, rhs, r)
	res.record(r0, h.log)
	maxIter := opts.MaxIterations
	if opts.FixedIterations > 0 {
		maxIter = opts.FixedIterations
	}
	res.Converged = r0 == 0
	for !res.Converged || opts.FixedIterations > 0 {
		if r0 == 0 || res.Iterations == maxIter {
			break
		}
		if err = h.cycle(h.NumLevels()-1, rhs, res.X, ws); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", res.Iterations+1, err)
		}
		res.Iterations++
		rn := utils.ResidualNorm(fine.A, res.X, rhs, r)
		res.record(rn, h.log)
		if !utils.IsFinite(res.X) {
			h.log.Printf("iterate is not finite after iteration %d, stopping", res.Iterations)
			res.Converged = false
			break
		}
		res.Converged = rn <= opts.Tolerance*r0
	}
	res.Elapsed = time.Since(start)
	h.log.Printf("multigrid: %d iterations, converged = %v, relative residual %.3e, %v",
		res.Iterations, res.Converged, res.relative(), res.Elapsed)
	return
}

func (res *Result) relative() float64 {
	hist := res.ResidualHistory
	if len(hist) == 0 || hist[0] == 0 {
		return 0
	}
	return hist[len(hist)-1] / hist[0]
}
