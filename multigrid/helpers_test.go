package multigrid

import (
	"fmt"
	"math"
	"testing"

	"github.com/notargets/gomultigrid/utils"
	"github.com/stretchr/testify/require"
)

// fdBasis is n interior nodes of a uniform grid on (0,1) with linear hat functions, which
// makes refinement nested and the operators below exact finite element ones.
type fdBasis struct {
	n int
}

func (b *fdBasis) Size() int    { return b.n }
func (b *fdBasis) Clone() Basis { c := *b; return &c }

// DegreeElevate leaves the space unchanged, there is only one degree.
func (b *fdBasis) DegreeElevate(int) error { return nil }

func (b *fdBasis) UniformRefine() error {
	b.n = 2*b.n + 1
	return nil
}

func (b *fdBasis) UniformCoarsenWithTransfer() (P utils.CSR, err error) {
	if b.n%2 == 0 {
		err = fmt.Errorf("cannot coarsen %d nodes", b.n)
		return
	}
	nf := b.n
	b.n = (nf - 1) / 2
	Pd := utils.NewDOK(nf, b.n)
	for j := 0; j < b.n; j++ {
		Pd.Set(2*j, j, 0.5)
		Pd.Set(2*j+1, j, 1)
		Pd.Set(2*j+2, j, 0.5)
	}
	P = Pd.ToCSR()
	return
}

// fdAssembler is the stiffness of -u'' + sigma*u with a lumped reaction term and the load
// of u = sin(pi x).
type fdAssembler struct {
	sigma float64
}

func (fa fdAssembler) Assemble(b Basis) (A utils.CSR, rhs []float64, err error) {
	var (
		n  = b.Size()
		h  = 1 / float64(n+1)
		Ad = utils.NewDOK(n, n)
	)
	rhs = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i+1) * h
		Ad.Set(i, i, 2/h+fa.sigma*h)
		if i > 0 {
			Ad.Set(i, i-1, -1/h)
		}
		if i < n-1 {
			Ad.Set(i, i+1, -1/h)
		}
		rhs[i] = h * (math.Pi*math.Pi + fa.sigma) * math.Sin(math.Pi*x)
	}
	A = Ad.ToCSR()
	return
}

func poisson1D(n int) utils.CSR {
	A, _, _ := fdAssembler{}.Assemble(&fdBasis{n})
	return A
}

// jacobi is an external smoother used to exercise the opaque smoother path, divergent for
// omega > 1.
type jacobi struct {
	A     utils.CSR
	omega float64
}

func (j *jacobi) Step(rhs, x []float64) {
	var (
		d = j.A.Diagonal()
		r = make([]float64, len(x))
	)
	utils.Residual(r, j.A, x, rhs)
	for i := range x {
		x[i] -= j.omega * r[i] / d[i]
	}
}

func jacobiFactory(omega float64) ExternalSmootherFactory {
	return func(level int, A utils.CSR, b Basis) (ExternalSmoother, error) {
		return &jacobi{A: A, omega: omega}, nil
	}
}

func hConfig(levels int) *SolverConfig {
	cfg := DefaultConfig()
	cfg.NumLevels = levels
	cfg.Schedule = make([]CoarseningType, levels-1)
	for k := range cfg.Schedule {
		cfg.Schedule[k] = HCoarsen
	}
	return cfg
}

// setupFD builds a hierarchy whose coarsest level has nCoarse nodes.
func setupFD(t *testing.T, nCoarse int, cfg *SolverConfig) *Hierarchy {
	h, err := Setup(&fdBasis{nCoarse}, fdAssembler{}, cfg)
	require.NoError(t, err)
	return h
}

// exactPair returns a random x and b = A*x.
func exactPair(A utils.CSR, seed int64) (x, b []float64) {
	n, _ := A.Dims()
	x = utils.NewVecRandom(n, seed)
	b = make([]float64, n)
	A.MulVec(b, x)
	return
}
