package multigrid

import (
	"fmt"

	"github.com/notargets/gomultigrid/utils"
	"gonum.org/v1/gonum/floats"
)

// Smoother improves x towards the solution of A*x = rhs in place. Implementations hold only
// state computed at setup and are safe for concurrent use. An exact x is a fixed point.
// Apply uses work as scratch; it must hold at least WorkLen values and belongs to the caller.
type Smoother interface {
	WorkLen() int
	Apply(A utils.CSR, rhs, x []float64, reverse bool, work []float64)
}

type gaussSeidel struct {
	diag []float64
}

func (gs *gaussSeidel) WorkLen() int { return 0 }

func newGaussSeidel(A utils.CSR) (gs *gaussSeidel, err error) {
	gs = &gaussSeidel{diag: A.Diagonal()}
	for i, d := range gs.diag {
		if d == 0 {
			return nil, fmt.Errorf("%w: zero diagonal at row %d", ErrFactorization, i)
		}
	}
	return
}

// Apply performs one sweep, in decreasing row order when reverse is set.
func (gs *gaussSeidel) Apply(A utils.CSR, rhs, x []float64, reverse bool, _ []float64) {
	var (
		n = len(x)
	)
	relax := func(i int) {
		cols, vals := A.Row(i)
		s := rhs[i]
		for k, j := range cols {
			if j != i {
				s -= vals[k] * x[j]
			}
		}
		x[i] = s / gs.diag[i]
	}
	if reverse {
		for i := n - 1; i >= 0; i-- {
			relax(i)
		}
		return
	}
	for i := 0; i < n; i++ {
		relax(i)
	}
}

// residualCorrection is the defect correction x += M^-1 (rhs - A*x) shared by the
// factorization based smoothers. solve gets the scratch left after the defect and the
// correction, solveLen values.
type residualCorrection struct {
	solve    func(dst, rhs, work []float64)
	n        int
	solveLen int
}

func (rc residualCorrection) WorkLen() int { return 2*rc.n + rc.solveLen }

func (rc residualCorrection) Apply(A utils.CSR, rhs, x []float64, _ bool, work []float64) {
	var (
		n = rc.n
		d = work[:n]
		e = work[n : 2*n]
	)
	A.MulVec(d, x)
	floats.SubTo(d, rhs, d)
	rc.solve(e, d, work[2*n:rc.WorkLen()])
	floats.Add(x, e)
}

func newILUTSmoother(A utils.CSR, opts ILUTOptions) (Smoother, error) {
	f, err := NewILUT(A, opts)
	if err != nil {
		return nil, err
	}
	return residualCorrection{solve: f.SolveWork, n: f.Size(), solveLen: f.Size()}, nil
}

type externalSmoother struct {
	ext ExternalSmoother
}

func (es externalSmoother) WorkLen() int { return 0 }

func (es externalSmoother) Apply(_ utils.CSR, rhs, x []float64, _ bool, _ []float64) {
	es.ext.Step(rhs, x)
}

// smootherKind picks the variant used on a level. With HLevelGaussSeidel, a hierarchy whose
// finest transition is a degree change smooths its h levels with Gauss-Seidel instead of a
// factorization. DirectProjection keeps the factorization on the finest level only.
func (cfg *SolverConfig) smootherKind(level int) SmootherType {
	kind := cfg.Smoother
	if (kind != ILUT && kind != BlockILUT) || level < 1 {
		return kind
	}
	if cfg.DirectProjection > 0 {
		if level < cfg.NumLevels-1 {
			return GaussSeidel
		}
		return kind
	}
	if !cfg.HLevelGaussSeidel {
		return kind
	}
	if cfg.Schedule[level-1] == HCoarsen && cfg.Schedule[len(cfg.Schedule)-1].IsDegree() {
		return GaussSeidel
	}
	return kind
}

func (cfg *SolverConfig) newSmoother(level int, A utils.CSR, b Basis) (sm Smoother, err error) {
	switch kind := cfg.smootherKind(level); kind {
	case GaussSeidel:
		sm, err = newGaussSeidel(A)
	case ILUT:
		sm, err = newILUTSmoother(A, cfg.ILUT)
	case BlockILUT:
		var p Partition
		if p, err = cfg.partition(A, b); err == nil {
			sm, err = NewSchurSmoother(A, p, cfg.ILUT, cfg.Parallelism)
		}
	case External:
		var ext ExternalSmoother
		if ext, err = cfg.External(level, A, b); err == nil {
			if ext == nil {
				err = fmt.Errorf("%w: external smoother factory returned nil", ErrConfiguration)
			} else {
				sm = externalSmoother{ext}
			}
		}
	default:
		err = fmt.Errorf("%w: smoother %v", ErrConfiguration, kind)
	}
	if err != nil {
		err = fmt.Errorf("level %d smoother: %w", level, err)
	}
	return
}

func (cfg *SolverConfig) partition(A utils.CSR, b Basis) (p Partition, err error) {
	switch pb, ok := b.(Partitionable); {
	case cfg.Partitioner != nil:
		p, err = cfg.Partitioner.Partition(A)
	case ok:
		p, err = pb.Partition()
	default:
		p, err = ContiguousPartitioner{NumParts: cfg.NumSubdomains}.Partition(A)
	}
	if err != nil {
		return
	}
	err = p.Validate(A)
	return
}
