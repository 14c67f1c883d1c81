package multigrid_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/notargets/gomultigrid/FEM1D"
	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reactionDiffusion() *FEM1D.ReactionDiffusion {
	return &FEM1D.ReactionDiffusion{
		Kappa: 1, Sigma: 1,
		Source: func(x float64) float64 { return (math.Pi*math.Pi + 1) * math.Sin(math.Pi*x) },
	}
}

func space(t *testing.T, K, N, NPatch int) *FEM1D.Space {
	s, err := FEM1D.NewSpace(0, 1, K, N, NPatch)
	require.NoError(t, err)
	return s
}

func config(schedule ...multigrid.CoarseningType) *multigrid.SolverConfig {
	cfg := multigrid.DefaultConfig()
	cfg.NumLevels = len(schedule) + 1
	cfg.Schedule = schedule
	cfg.PreSmooth, cfg.PostSmooth = 2, 2
	return cfg
}

func TestGalerkinMatchesDirect(t *testing.T) {
	var (
		asm = reactionDiffusion()
		H   = multigrid.HCoarsen
	)
	cfg := config(H, H)
	cfg.CoarseOperator = multigrid.GalerkinOperator
	h, err := multigrid.Setup(space(t, 2, 2, 1), asm, cfg)
	require.NoError(t, err)
	for k := 0; k < 2; k++ {
		lvl := h.Level(k)
		direct, _, err := asm.Assemble(lvl.Basis)
		require.NoError(t, err)
		for seed := int64(0); seed < 3; seed++ {
			var (
				x  = utils.NewVecRandom(lvl.Size(), seed)
				y1 = make([]float64, lvl.Size())
				y2 = make([]float64, lvl.Size())
			)
			lvl.A.MulVec(y1, x)
			direct.MulVec(y2, x)
			assert.Less(t, utils.RelativeError(y1, y2), 1e-10)
		}
	}
}

func TestSchedules(t *testing.T) {
	var (
		P, H, HP = multigrid.PCoarsen, multigrid.HCoarsen, multigrid.HPCoarsen
		asm      = reactionDiffusion()
	)
	schedules := [][]multigrid.CoarseningType{
		{P}, {P, P}, {H, P}, {P, H, H}, {HP}, {H, HP},
	}
	for _, sched := range schedules {
		for _, mode := range []multigrid.TransferMode{multigrid.LumpedTransfer, multigrid.GalerkinTransfer} {
			name := fmt.Sprintf("%v/%v", sched, mode)
			cfg := config(sched...)
			cfg.Transfer = mode
			cfg.Restriction = multigrid.TransposeRestriction
			h, err := multigrid.Setup(space(t, 4, 1, 1), asm, cfg)
			require.NoError(t, err, name)
			for k := 1; k < h.NumLevels(); k++ {
				lvl := h.Level(k)
				nr, nc := lvl.P().Dims()
				assert.Equal(t, lvl.Size(), nr, name)
				assert.Equal(t, h.Level(k-1).Size(), nc, name)
			}
			res, err := h.Solve(nil, nil, multigrid.SolveOptions{})
			require.NoError(t, err, name)
			assert.True(t, res.Converged, name)
			assert.LessOrEqual(t, res.Iterations, 60, name)
		}
	}
}

func TestDegreeTransferModesAgree(t *testing.T) {
	// On GLL nodes the lumped transfer is the exact injection, as is the Galerkin one
	var (
		asm  = reactionDiffusion()
		prol [2][]float64
	)
	for i, mode := range []multigrid.TransferMode{multigrid.LumpedTransfer, multigrid.GalerkinTransfer} {
		cfg := config(multigrid.PCoarsen)
		cfg.Transfer = mode
		h, err := multigrid.Setup(space(t, 6, 2, 1), asm, cfg)
		require.NoError(t, err)
		var (
			fine = h.Level(1)
			xc   = utils.NewVecRandom(h.Level(0).Size(), 1)
		)
		prol[i] = make([]float64, fine.Size())
		require.NoError(t, fine.Transfer.Prolongate(prol[i], xc))
	}
	assert.Less(t, utils.RelativeError(prol[0], prol[1]), 1e-9)
}

func TestProjectionRestriction(t *testing.T) {
	var (
		P, H, HP = multigrid.PCoarsen, multigrid.HCoarsen, multigrid.HPCoarsen
		asm      = reactionDiffusion()
	)
	for _, sched := range [][]multigrid.CoarseningType{{P}, {P, P}, {H, P}, {HP}} {
		name := fmt.Sprint(sched)
		cfg := config(sched...)
		cfg.Transfer = multigrid.GalerkinTransfer
		cfg.MaxIterations = 300
		h, err := multigrid.Setup(space(t, 4, 1, 1), asm, cfg)
		require.NoError(t, err, name)
		// Restriction is the L2 projection, so it undoes prolongation exactly
		var (
			fine = h.Finest()
			xc   = utils.NewVecRandom(h.Level(fine.Index-1).Size(), 3)
			xf   = make([]float64, fine.Size())
			back = make([]float64, len(xc))
		)
		require.NoError(t, fine.Transfer.Prolongate(xf, xc), name)
		require.NoError(t, fine.Transfer.Restrict(back, xf), name)
		assert.Less(t, utils.RelativeError(back, xc), 1e-9, name)

		res, err := h.Solve(nil, nil, multigrid.SolveOptions{})
		require.NoError(t, err, name)
		assert.True(t, res.Converged, name)
	}
}

func TestDirectProjection(t *testing.T) {
	var (
		P, H = multigrid.PCoarsen, multigrid.HCoarsen
	)
	cfg := config(H, P)
	cfg.DirectProjection = 3
	cfg.Smoother = multigrid.ILUT
	h, err := multigrid.Setup(space(t, 4, 1, 1), reactionDiffusion(), cfg)
	require.NoError(t, err)
	// K = 8 elements at degree 1 under degree 4, Dirichlet ends eliminated
	assert.Equal(t, 7, h.Level(1).Size())
	assert.Equal(t, 31, h.Finest().Size())
	assert.Equal(t, multigrid.GaussSeidel, h.Level(1).Smoother)
	assert.Equal(t, multigrid.ILUT, h.Finest().Smoother)
	res, err := h.Solve(nil, nil, multigrid.SolveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	cfg = config(P, H)
	cfg.DirectProjection = 3
	_, err = multigrid.Setup(space(t, 4, 1, 1), reactionDiffusion(), cfg)
	assert.ErrorIs(t, err, multigrid.ErrConfiguration)
}

func TestPatchSmoother(t *testing.T) {
	H := multigrid.HCoarsen
	for _, patches := range []int{1, 2, 4} {
		cfg := config(H, H)
		cfg.Smoother = multigrid.BlockILUT
		cfg.PreSmooth, cfg.PostSmooth = 1, 1
		h, err := multigrid.Setup(space(t, 4, 3, patches), reactionDiffusion(), cfg)
		require.NoError(t, err)
		res, err := h.Solve(nil, nil, multigrid.SolveOptions{Tolerance: 1e-10})
		require.NoError(t, err)
		assert.True(t, res.Converged, "patches = %d", patches)
	}
}

func TestMixedSmoothing(t *testing.T) {
	var (
		P, H = multigrid.PCoarsen, multigrid.HCoarsen
	)
	cfg := config(H, H, P)
	cfg.Smoother = multigrid.ILUT
	cfg.HLevelGaussSeidel = true
	cfg.CycleP = 2
	cfg.ReversePostSweep = true
	h, err := multigrid.Setup(space(t, 2, 1, 1), reactionDiffusion(), cfg)
	require.NoError(t, err)
	assert.Equal(t, multigrid.GaussSeidel, h.Level(1).Smoother)
	assert.Equal(t, multigrid.GaussSeidel, h.Level(2).Smoother)
	assert.Equal(t, multigrid.ILUT, h.Level(3).Smoother)
	res, err := h.Solve(nil, nil, multigrid.SolveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	pcg, err := h.SolvePCG(nil, nil, multigrid.SolveOptions{})
	require.NoError(t, err)
	assert.True(t, pcg.Converged)
	assert.LessOrEqual(t, pcg.Iterations, res.Iterations)
}
