/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gomultigrid/InputParameters"
	"github.com/notargets/gomultigrid/model_problems/Poisson1D"
	"github.com/notargets/gomultigrid/multigrid"
)

type ModelSolve struct {
	ICFile        string
	Verbose       bool
	Profile       string // "", "cpu" or "mem"
	PlotFile      string // residual history image, skipped when empty
	RandomInitial bool
	Seed          int64
}

const exampleFile = `
########################################
Title: "Test Case"
K: 4                # Coarsest level elements
PolynomialOrder: 1  # Coarsest level degree
NPatch: 2
Kappa: 1.
Sigma: 0.
Partitioner: patch  # Can be "contiguous" or "metis"
PCG: false
Solver:
  NumLevels: 4
  Schedule: [h, h, p]
  Smoother: ilut    # Can be "gs", "block" or "external"
  HLevelGaussSeidel: true
  PreSmooth: 1
  PostSmooth: 1
  CycleP: 1
  CycleH: 1
  Transfer: lumped  # Can be "galerkin"
  Restriction: projection  # Galerkin only, can be "transpose"
  DirectProjection: 0  # > 0 raises the finest degree in one step
  CoarseOperator: direct
  Tolerance: 1.e-8
  MaxIterations: 100
########################################
`

// SolveCmd represents the solve command
var SolveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a one dimensional reaction diffusion problem with multigrid",
	Long: `
Reads the discretization and the solver configuration from a YAML file, builds the
multigrid hierarchy and reports convergence and the error against the exact solution.

gomultigrid solve -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("solve called")
		ms := &ModelSolve{
			ICFile:        viper.GetString("inputConditionsFile"),
			Verbose:       viper.GetBool("verbose"),
			Profile:       viper.GetString("profile"),
			PlotFile:      viper.GetString("plot"),
			RandomInitial: viper.GetBool("random"),
			Seed:          viper.GetInt64("seed"),
		}
		ip, err := processInput(ms)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if _, err = RunSolve(ms, ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(SolveCmd)
	SolveCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- K, PolynomialOrder\n\t- Solver schedule and smoother")
	SolveCmd.Flags().BoolP("verbose", "v", false, "log the hierarchy, setup timings and every iteration")
	SolveCmd.Flags().String("profile", "", "write a profile to the current directory: cpu or mem")
	SolveCmd.Flags().Bool("random", false, "start from a random initial iterate instead of zero")
	SolveCmd.Flags().Int64("seed", 0, "seed for the random initial iterate")
	SolveCmd.Flags().StringP("plot", "p", "", "save the residual history to an image file (.png, .svg, .pdf)")
	for _, name := range []string{"inputConditionsFile", "verbose", "profile", "random", "seed", "plot"} {
		if err := viper.BindPFlag(name, SolveCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func processInput(ms *ModelSolve) (ip *InputParameters.InputParametersMG, err error) {
	if len(ms.ICFile) == 0 {
		fmt.Printf("Example File:%s\n", exampleFile)
		err = fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		return
	}
	var data []byte
	if data, err = os.ReadFile(ms.ICFile); err != nil {
		return
	}
	ip = InputParameters.NewInputParametersMG()
	if err = ip.Parse(data); err != nil {
		err = fmt.Errorf("reading %s: %w", ms.ICFile, err)
	}
	return
}

func RunSolve(ms *ModelSolve, ip *InputParameters.InputParametersMG) (rep *Poisson1D.Report, err error) {
	switch ms.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return nil, fmt.Errorf("unknown profile %q, expected cpu or mem", ms.Profile)
	}
	ip.Print()
	var logger *log.Logger
	if ms.Verbose {
		logger = log.New(os.Stdout, "", log.Lmicroseconds)
	}
	var p *Poisson1D.Poisson
	if p, err = Poisson1D.NewPoisson(ip, logger); err != nil {
		return
	}
	fmt.Printf("Setup: %v\n", p.H.Timings)
	if rep, err = p.Solve(multigrid.SolveOptions{RandomInitial: ms.RandomInitial, Seed: ms.Seed}); err != nil {
		return
	}
	rep.Print()
	if len(ms.PlotFile) != 0 {
		err = PlotHistory(ms.PlotFile, ip.Title, rep.ResidualHistory)
	}
	return
}
