package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSolve(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
K: 4
PolynomialOrder: 1
NPatch: 2
Partitioner: contiguous
PCG: true
Solver:
  NumLevels: 3
  Schedule: [h, p]
  Smoother: block
  NumSubdomains: 3
`)
	fname := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(fname, fileInput, 0644))

	plotFile := filepath.Join(t.TempDir(), "history.png")
	ms := &ModelSolve{ICFile: fname, Verbose: true, RandomInitial: true, Seed: 1, PlotFile: plotFile}
	ip, err := processInput(ms)
	require.NoError(t, err)
	assert.Equal(t, "Test Case", ip.Title)
	rep, err := RunSolve(ms, ip)
	require.NoError(t, err)
	assert.True(t, rep.Converged)
	assert.FileExists(t, plotFile)

	ms.Profile = "heap"
	_, err = RunSolve(ms, ip)
	assert.Error(t, err)

	_, err = processInput(&ModelSolve{})
	assert.Error(t, err)
	_, err = processInput(&ModelSolve{ICFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestPlotHistory(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "history.svg")
	require.NoError(t, PlotHistory(fname, "test", []float64{1, 0.1, 0, 1e-3}))
	assert.FileExists(t, fname)
	assert.Error(t, PlotHistory(fname, "empty", nil))
}
