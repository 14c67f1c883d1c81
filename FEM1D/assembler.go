package FEM1D

import (
	"fmt"

	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/utils"
)

// ReactionDiffusion assembles -(Kappa u')' + Sigma u = Source with homogeneous Dirichlet
// conditions on a Space. It also provides the mass operators needed by p-transfers.
type ReactionDiffusion struct {
	Kappa, Sigma float64
	Source       func(x float64) float64
}

func NewPoisson(source func(x float64) float64) *ReactionDiffusion {
	return &ReactionDiffusion{Kappa: 1, Source: source}
}

func asSpace(b multigrid.Basis) (s *Space, err error) {
	var ok bool
	if s, ok = b.(*Space); !ok {
		err = fmt.Errorf("FEM1D assembler needs a *FEM1D.Space, got %T", b)
	}
	return
}

// quadrature returns Gauss nodes and weights exact for polynomials of degree <= 2*Nq-1.
func quadrature(degree int) (r, w []float64) {
	Nq := degree/2 + 1
	return JacobiGQ(0, 0, Nq-1)
}

func (rd *ReactionDiffusion) Assemble(b multigrid.Basis) (A utils.CSR, rhs []float64, err error) {
	var (
		s *Space
	)
	if s, err = asSpace(b); err != nil {
		return
	}
	var (
		Np        = s.N + 1
		h         = s.H()
		J         = 0.5 * h
		rq, wq    = quadrature(2*s.N + 2)
		phi, dphi = s.ref.Eval(rq)
		Ad        = utils.NewDOK(s.Size(), s.Size())
	)
	rhs = make([]float64, s.Size())
	for k := 0; k < s.K; k++ {
		for i := 0; i < Np; i++ {
			gi := s.DOF(k*s.N + i)
			if gi < 0 {
				continue
			}
			for j := 0; j < Np; j++ {
				gj := s.DOF(k*s.N + j)
				if gj < 0 {
					continue
				}
				var val float64
				for q, w := range wq {
					val += w * (rd.Kappa*dphi.At(q, i)*dphi.At(q, j)/J + rd.Sigma*phi.At(q, i)*phi.At(q, j)*J)
				}
				Ad.AddAt(gi, gj, val)
			}
			if rd.Source != nil {
				for q, w := range wq {
					rhs[gi] += w * rd.Source(s.MapX(k, rq[q])) * phi.At(q, i) * J
				}
			}
		}
	}
	A = Ad.ToCSR()
	A.SetReadOnly(fmt.Sprintf("A[K=%d,N=%d]", s.K, s.N))
	return
}

// Mass returns the consistent mass matrix of the space.
func (rd *ReactionDiffusion) Mass(b multigrid.Basis) (M utils.CSR, err error) {
	var (
		s *Space
	)
	if s, err = asSpace(b); err != nil {
		return
	}
	var (
		J      = 0.5 * s.H()
		rq, wq = quadrature(2 * s.N)
		phi, _ = s.ref.Eval(rq)
		Md     = utils.NewDOK(s.Size(), s.Size())
	)
	for k := 0; k < s.K; k++ {
		for i := 0; i <= s.N; i++ {
			gi := s.DOF(k*s.N + i)
			if gi < 0 {
				continue
			}
			for j := 0; j <= s.N; j++ {
				gj := s.DOF(k*s.N + j)
				if gj < 0 {
					continue
				}
				var val float64
				for q, w := range wq {
					val += w * phi.At(q, i) * phi.At(q, j) * J
				}
				Md.AddAt(gi, gj, val)
			}
		}
	}
	M = Md.ToCSR()
	M.SetReadOnly("mass")
	return
}

// MassVector returns the integral of every basis function, the lumped mass.
func (rd *ReactionDiffusion) MassVector(b multigrid.Basis) (m []float64, err error) {
	var (
		s *Space
	)
	if s, err = asSpace(b); err != nil {
		return
	}
	var (
		J      = 0.5 * s.H()
		rq, wq = quadrature(s.N)
		phi, _ = s.ref.Eval(rq)
	)
	m = make([]float64, s.Size())
	for k := 0; k < s.K; k++ {
		for i := 0; i <= s.N; i++ {
			gi := s.DOF(k*s.N + i)
			if gi < 0 {
				continue
			}
			for q, w := range wq {
				m[gi] += w * phi.At(q, i) * J
			}
		}
	}
	return
}

// MixedMass returns the matrix of integrals of fine basis function i times coarse basis
// function j. The coarse mesh must be nested in the fine one; integration runs over the
// fine elements so the result is exact for any combination of degrees.
func (rd *ReactionDiffusion) MixedMass(fineB, coarseB multigrid.Basis) (Pm utils.CSR, err error) {
	var (
		fine, coarse *Space
	)
	if fine, err = asSpace(fineB); err != nil {
		return
	}
	if coarse, err = asSpace(coarseB); err != nil {
		return
	}
	if fine.K%coarse.K != 0 || fine.XMin != coarse.XMin || fine.XMax != coarse.XMax {
		err = fmt.Errorf("mixed mass needs nested meshes, have %v and %v", fine, coarse)
		return
	}
	var (
		J       = 0.5 * fine.H()
		rq, wq  = quadrature(fine.N + coarse.N)
		phiF, _ = fine.ref.Eval(rq)
		xq      = make([]float64, len(rq))
		Pd      = utils.NewDOK(fine.Size(), coarse.Size())
	)
	for k := 0; k < fine.K; k++ {
		// The fine element midpoint picks the coarse element unambiguously
		kc, _ := coarse.Locate(fine.MapX(k, 0))
		rc := make([]float64, len(rq))
		for q := range rq {
			xq[q] = fine.MapX(k, rq[q])
			rc[q] = 2*(xq[q]-coarse.XMin-coarse.H()*float64(kc))/coarse.H() - 1
		}
		phiC, _ := coarse.ref.Eval(rc)
		for i := 0; i <= fine.N; i++ {
			gi := fine.DOF(k*fine.N + i)
			if gi < 0 {
				continue
			}
			for j := 0; j <= coarse.N; j++ {
				gj := coarse.DOF(kc*coarse.N + j)
				if gj < 0 {
					continue
				}
				var val float64
				for q, w := range wq {
					val += w * phiF.At(q, i) * phiC.At(q, j) * J
				}
				Pd.AddAt(gi, gj, val)
			}
		}
	}
	Pm = Pd.ToCSR()
	Pm.SetReadOnly("mixed-mass")
	return
}
