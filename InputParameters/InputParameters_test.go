package InputParameters

import (
	"testing"

	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/multigrid/metispart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
K: 8
PolynomialOrder: 2
NPatch: 4
Sigma: 1.5
Partitioner: metis
PCG: true
Solver:
  NumLevels: 3
  Schedule: [h, p]
  Smoother: block
  Transfer: galerkin
  Restriction: transpose
  DirectProjection: 2
  PreSmooth: 2
  ILUT:
    DropTol: 1.e-4
`)
	ip := NewInputParametersMG()
	require.NoError(t, ip.Parse(fileInput))
	ip.Print()
	assert.Equal(t, "Test Case", ip.Title)
	assert.Equal(t, 8, ip.K)
	assert.Equal(t, 1., ip.Kappa) // default kept
	assert.Equal(t, 1.5, ip.Sigma)
	assert.True(t, ip.PCG)
	sv := ip.Solver
	assert.Equal(t, []multigrid.CoarseningType{multigrid.HCoarsen, multigrid.PCoarsen}, sv.Schedule)
	assert.Equal(t, multigrid.BlockILUT, sv.Smoother)
	assert.Equal(t, multigrid.GalerkinTransfer, sv.Transfer)
	assert.Equal(t, multigrid.TransposeRestriction, sv.Restriction)
	assert.Equal(t, 2, sv.DirectProjection)
	assert.Equal(t, 2, sv.PreSmooth)
	assert.Equal(t, 1, sv.PostSmooth)
	assert.Equal(t, 1.e-4, sv.ILUT.DropTol)
	assert.Equal(t, multigrid.RCMOrdering, sv.ILUT.Ordering)

	cfg, err := ip.Config()
	require.NoError(t, err)
	assert.IsType(t, &metispart.Partitioner{}, cfg.Partitioner)
	assert.Nil(t, ip.Solver.Partitioner, "input config is not modified")

	ip.Partitioner = "bogus"
	_, err = ip.Config()
	assert.Error(t, err)

	bad := NewInputParametersMG()
	assert.Error(t, bad.Parse([]byte("Solver:\n  Smoother: jacobi\n")))
}
