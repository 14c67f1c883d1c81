package Poisson1D

import (
	"testing"

	"github.com/notargets/gomultigrid/InputParameters"
	"github.com/notargets/gomultigrid/multigrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoisson(t *testing.T) {
	input := func(schedule string) *InputParameters.InputParametersMG {
		ip := InputParameters.NewInputParametersMG()
		require.NoError(t, ip.Parse([]byte(`
K: 4
NPatch: 2
Sigma: 1
Solver:
  Smoother: block
  PreSmooth: 2
  PostSmooth: 2
  Tolerance: 1.e-10
`)))
		sched, err := multigrid.ParseSchedule(schedule)
		require.NoError(t, err)
		ip.Solver.Schedule = sched
		ip.Solver.NumLevels = len(sched) + 1
		return ip
	}
	var errs []float64
	for _, sched := range []string{"h,p", "h,h,p"} {
		for _, pcg := range []bool{false, true} {
			ip := input(sched)
			ip.PCG = pcg
			p, err := NewPoisson(ip, nil)
			require.NoError(t, err)
			rep, err := p.Solve(multigrid.SolveOptions{})
			require.NoError(t, err)
			rep.Print()
			assert.True(t, rep.Converged)
			assert.Less(t, rep.L2Error, 1.e-3)
			if !pcg {
				errs = append(errs, rep.L2Error)
			}
		}
	}
	// Quadratic elements gain about a factor 8 per refinement
	assert.Less(t, errs[1], errs[0]/4)

	ip := input("h")
	ip.XMax = -1
	_, err := NewPoisson(ip, nil)
	assert.Error(t, err)
}
