package multigrid

import (
	"bytes"
	"errors"
	"log"
	"math"
	"sync"
	"testing"

	"github.com/notargets/gomultigrid/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyInvariants(t *testing.T) {
	var (
		base = &fdBasis{6}
		cfg  = hConfig(4)
	)
	cfg.Smoother = ILUT
	h, err := Setup(base, fdAssembler{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 6, base.n, "caller basis must not be modified")
	assert.Equal(t, 4, h.NumLevels())
	sizes := []int{6, 13, 27, 55}
	for k := 0; k < h.NumLevels(); k++ {
		lvl := h.Level(k)
		assert.Equal(t, sizes[k], lvl.Size())
		if k == 0 {
			assert.Nil(t, lvl.Transfer)
			continue
		}
		var (
			P, R   = lvl.P(), lvl.R()
			pr, pc = P.Dims()
			rr, rc = R.Dims()
		)
		assert.Equal(t, h.Level(k).Size(), pr)
		assert.Equal(t, h.Level(k-1).Size(), pc)
		assert.Equal(t, pc, rr)
		assert.Equal(t, pr, rc)
		for i := 0; i < pr; i++ {
			for j := 0; j < pc; j++ {
				assert.InDelta(t, P.At(i, j), R.At(j, i), 1e-15)
			}
		}
	}
	assert.Len(t, h.RHS(), 55)
	assert.True(t, h.Timings.Total >= h.Timings.Assembly)
}

func TestTwoLevelVCycle(t *testing.T) {
	for _, smooth := range []int{1, 2} {
		cfg := hConfig(2)
		cfg.PreSmooth, cfg.PostSmooth = smooth, smooth
		h := setupFD(t, 49, cfg)
		require.Equal(t, 99, h.Size())
		res, err := h.Solve(nil, nil, SolveOptions{Tolerance: 1e-8})
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.LessOrEqual(t, res.Iterations, 20)
		assert.Empty(t, res.NonMonotonic)
		assert.Len(t, res.ResidualHistory, res.Iterations+1)
		last := res.ResidualHistory[res.Iterations]
		assert.LessOrEqual(t, last, 1e-8*res.ResidualHistory[0])

		var (
			lu      DenseLU
			A       = h.Finest().A
			xDirect = make([]float64, h.Size())
		)
		require.NoError(t, lu.Analyze(A))
		require.NoError(t, lu.Factorize(A))
		require.NoError(t, lu.Solve(xDirect, h.RHS()))
		// The residual bound times the condition number of A bounds the error
		res, err = h.Solve(nil, nil, SolveOptions{Tolerance: 1e-10})
		require.NoError(t, err)
		require.True(t, res.Converged)
		assert.Less(t, utils.RelativeError(res.X, xDirect), 1e-6)
	}
}

func TestCorrectionSign(t *testing.T) {
	var results [2]*Result
	for i, sign := range []CorrectionSign{SubtractCorrection, AddCorrection} {
		cfg := hConfig(3)
		cfg.Correction = sign
		h := setupFD(t, 12, cfg)
		res, err := h.Solve(nil, nil, SolveOptions{RandomInitial: true, Seed: 7})
		require.NoError(t, err)
		assert.True(t, res.Converged)
		results[i] = res
	}
	assert.Equal(t, results[0].Iterations, results[1].Iterations)
	assert.Less(t, utils.RelativeError(results[0].X, results[1].X), 1e-10)
}

func TestWCycle(t *testing.T) {
	solve := func(cycle int) *Result {
		cfg := hConfig(4)
		cfg.CycleH = cycle
		cfg.ReversePostSweep = true
		h := setupFD(t, 6, cfg)
		res, err := h.Solve(nil, nil, SolveOptions{})
		require.NoError(t, err)
		require.True(t, res.Converged)
		return res
	}
	v, w := solve(1), solve(2)
	assert.LessOrEqual(t, w.Iterations, v.Iterations)
}

func TestGalerkinCoarseOperator(t *testing.T) {
	cfg := hConfig(3)
	cfg.CoarseOperator = GalerkinOperator
	h := setupFD(t, 8, cfg)
	for k := 0; k < 2; k++ {
		var (
			lvl          = h.Level(k)
			direct, _, _ = fdAssembler{}.Assemble(lvl.Basis)
			x            = utils.NewVecRandom(lvl.Size(), int64(k))
			y1           = make([]float64, lvl.Size())
			y2           = make([]float64, lvl.Size())
		)
		lvl.A.MulVec(y1, x)
		direct.MulVec(y2, x)
		assert.Less(t, utils.RelativeError(y1, y2), 1e-12)
	}
	res, err := h.Solve(nil, nil, SolveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	// Levels listed in DirectAssembly skip the projection
	cfg.DirectAssembly = []int{0}
	h = setupFD(t, 8, cfg)
	assert.Equal(t, "RAP[1]", h.Level(1).A.Name())
	assert.NotEqual(t, "RAP[0]", h.Level(0).A.Name())
}

func TestNonMonotonicIsReported(t *testing.T) {
	var (
		buf bytes.Buffer
		cfg = hConfig(2)
	)
	cfg.Smoother = External
	cfg.External = jacobiFactory(2.5)
	cfg.PreSmooth, cfg.PostSmooth = 3, 3
	cfg.MaxIterations = 5
	cfg.Logger = log.New(&buf, "", 0)
	h := setupFD(t, 24, cfg)
	res, err := h.Solve(nil, nil, SolveOptions{RandomInitial: true, Seed: 3})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	assert.NotEmpty(t, res.NonMonotonic)
	assert.Contains(t, buf.String(), "residual increased")
}

func TestSolveOptions(t *testing.T) {
	h := setupFD(t, 12, hConfig(3))
	{ // Exact initial guess converges without iterating
		x := make([]float64, h.Size())
		res, err := h.Solve(make([]float64, h.Size()), x, SolveOptions{})
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.Equal(t, 0, res.Iterations)
	}
	{
		res, err := h.Solve(nil, nil, SolveOptions{FixedIterations: 3, Tolerance: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Iterations)
		assert.True(t, res.Converged)
	}
	{
		res, err := h.Solve(nil, nil, SolveOptions{MaxIterations: 1, Tolerance: 1e-14})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Iterations)
		assert.False(t, res.Converged)
	}
	{
		_, err := h.Solve(make([]float64, 3), nil, SolveOptions{})
		assert.True(t, errors.Is(err, ErrDimension))
		_, err = h.Solve(nil, make([]float64, 3), SolveOptions{})
		assert.True(t, errors.Is(err, ErrDimension))
	}
}

func TestSingleLevel(t *testing.T) {
	cfg := hConfig(1)
	h := setupFD(t, 20, cfg)
	res, err := h.Solve(nil, nil, SolveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
}

func TestSmootherVariantsConverge(t *testing.T) {
	for _, sm := range []SmootherType{GaussSeidel, ILUT, BlockILUT, External} {
		cfg := hConfig(3)
		cfg.Smoother = sm
		cfg.External = jacobiFactory(0.6)
		cfg.NumSubdomains = 3
		cfg.NewCoarseFactorizer = func() CoarseFactorizer { return &DenseCholesky{} }
		h := setupFD(t, 12, cfg)
		for k := 1; k < h.NumLevels(); k++ {
			assert.Equal(t, sm, h.Level(k).Smoother)
		}
		res, err := h.Solve(nil, nil, SolveOptions{Tolerance: 1e-10})
		require.NoError(t, err, sm.String())
		assert.True(t, res.Converged, sm.String())
	}
}

func TestPCG(t *testing.T) {
	cfg := hConfig(3)
	cfg.ReversePostSweep = true
	h := setupFD(t, 12, cfg)
	res, err := h.SolvePCG(nil, nil, SolveOptions{Tolerance: 1e-10})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.Iterations, 15)
	var (
		A = h.Finest().A
		r = make([]float64, h.Size())
		b = h.RHS()
	)
	assert.Less(t, utils.ResidualNorm(A, res.X, b, r), 1e-8*utils.Norm2(b))

	z := make([]float64, h.Size())
	require.NoError(t, h.Precondition(z, b))
	assert.Less(t, utils.ResidualNorm(A, z, b, r), utils.Norm2(b))
	assert.True(t, errors.Is(h.Precondition(z[:3], b), ErrDimension))
}

func TestConcurrentSolves(t *testing.T) {
	cfg := hConfig(3)
	cfg.Smoother = BlockILUT
	h := setupFD(t, 12, cfg)
	var (
		wg      sync.WaitGroup
		results = make([]*Result, 4)
	)
	for np := 0; np < len(results); np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			res, err := h.Solve(nil, nil, SolveOptions{RandomInitial: true, Seed: 11})
			assert.NoError(t, err)
			results[np] = res
		}(np)
	}
	wg.Wait()
	for np := 1; np < len(results); np++ {
		assert.Equal(t, results[0].X, results[np].X)
	}
}

func TestSetupLogging(t *testing.T) {
	var (
		buf bytes.Buffer
		cfg = hConfig(2)
	)
	cfg.Logger = log.New(&buf, "", 0)
	setupFD(t, 5, cfg)
	assert.Contains(t, buf.String(), "level 0")
	assert.Contains(t, buf.String(), "level 1: h")
	assert.Contains(t, buf.String(), "setup: assembly")
}

type poison struct{}

func (poison) Step(rhs, x []float64) { x[0] = math.NaN() }

func TestNonFiniteIterateStops(t *testing.T) {
	var (
		buf bytes.Buffer
		cfg = hConfig(2)
	)
	cfg.Smoother = External
	cfg.External = func(int, utils.CSR, Basis) (ExternalSmoother, error) { return poison{}, nil }
	cfg.Logger = log.New(&buf, "", 0)
	h := setupFD(t, 6, cfg)
	res, err := h.Solve(nil, nil, SolveOptions{})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.Contains(t, buf.String(), "not finite")
}
