package Poisson1D

import (
	"fmt"
	"log"
	"math"

	"github.com/notargets/gomultigrid/FEM1D"
	"github.com/notargets/gomultigrid/InputParameters"
	"github.com/notargets/gomultigrid/multigrid"
)

// Poisson solves -(Kappa u')' + Sigma u = f on [XMin, XMax] with homogeneous Dirichlet
// ends, for the manufactured solution u = sin(pi (x - XMin) / L).
type Poisson struct {
	IP    *InputParameters.InputParametersMG
	Base  *FEM1D.Space
	Asm   *FEM1D.ReactionDiffusion
	Exact func(x float64) float64
	H     *multigrid.Hierarchy
}

type Report struct {
	*multigrid.Result
	L2Error    float64
	NodalError float64 // max over the finest level nodes
}

func NewPoisson(ip *InputParameters.InputParametersMG, logger *log.Logger) (p *Poisson, err error) {
	var (
		cfg  *multigrid.SolverConfig
		base *FEM1D.Space
	)
	if cfg, err = ip.Config(); err != nil {
		return
	}
	cfg.Logger = logger
	if base, err = FEM1D.NewSpace(ip.XMin, ip.XMax, ip.K, ip.PolynomialOrder, ip.NPatch); err != nil {
		return
	}
	var (
		L     = ip.XMax - ip.XMin
		omega = math.Pi / L
		kappa = ip.Kappa
		sigma = ip.Sigma
	)
	p = &Poisson{
		IP:   ip,
		Base: base,
		Exact: func(x float64) float64 {
			return math.Sin(omega * (x - ip.XMin))
		},
	}
	p.Asm = &FEM1D.ReactionDiffusion{
		Kappa: kappa,
		Sigma: sigma,
		Source: func(x float64) float64 {
			return (kappa*omega*omega + sigma) * p.Exact(x)
		},
	}
	if p.H, err = multigrid.Setup(base, p.Asm, cfg); err != nil {
		return nil, err
	}
	return
}

func (p *Poisson) Solve(opts multigrid.SolveOptions) (rep *Report, err error) {
	var (
		res *multigrid.Result
	)
	if p.IP.PCG {
		res, err = p.H.SolvePCG(nil, nil, opts)
	} else {
		res, err = p.H.Solve(nil, nil, opts)
	}
	if err != nil {
		return
	}
	fine := p.H.Finest().Basis.(*FEM1D.Space)
	rep = &Report{
		Result:  res,
		L2Error: fine.L2Error(res.X, p.Exact),
	}
	for g := 1; g < fine.NumNodes()-1; g++ {
		rep.NodalError = math.Max(rep.NodalError, math.Abs(res.X[fine.DOF(g)]-p.Exact(fine.NodeX(g))))
	}
	return
}

func (rep *Report) Print() {
	fmt.Printf("Iterations = %d, Converged = %v, Elapsed = %v\n", rep.Iterations, rep.Converged, rep.Elapsed)
	if n := len(rep.ResidualHistory); n > 1 && rep.ResidualHistory[0] > 0 {
		rate := math.Pow(rep.ResidualHistory[n-1]/rep.ResidualHistory[0], 1/float64(n-1))
		fmt.Printf("Average Convergence Factor = %8.5f\n", rate)
	}
	if len(rep.NonMonotonic) != 0 {
		fmt.Printf("Residual increased at iterations %v\n", rep.NonMonotonic)
	}
	fmt.Printf("L2 Error = %8.5e, Max Nodal Error = %8.5e\n", rep.L2Error, rep.NodalError)
}
