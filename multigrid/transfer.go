package multigrid

import (
	"fmt"

	"github.com/notargets/gomultigrid/utils"
)

// Transfer moves vectors between a level (fine) and the next coarser one. For h and lumped
// degree transfers P and R are the applied operators. A Galerkin degree transfer also
// solves with mass matrices, so its P and R are the mixed mass Pm and Pm^T it is built from.
type Transfer interface {
	Prolongate(dst, src []float64) error // coarse -> fine
	Restrict(dst, src []float64) error   // fine -> coarse
	P() utils.CSR                        // fine x coarse
	R() utils.CSR                        // coarse x fine
}

// matrixTransfer applies explicit matrices, used for h transfers and lumped p transfers.
type matrixTransfer struct {
	p, r utils.CSR
}

func (mt *matrixTransfer) P() utils.CSR { return mt.p }
func (mt *matrixTransfer) R() utils.CSR { return mt.r }

func (mt *matrixTransfer) Prolongate(dst, src []float64) error {
	mt.p.MulVec(dst, src)
	return nil
}

func (mt *matrixTransfer) Restrict(dst, src []float64) error {
	mt.r.MulVec(dst, src)
	return nil
}

// galerkinTransfer prolongates by the L2 projection onto the fine space through the fine
// consistent mass matrix, x_f = M_f^-1 Pm x_c. Restriction is either the coarse L2
// projection r_c = M_c^-1 Pm^T r_f (coarseMass set) or the transpose r_c = Pm^T M_f^-1 r_f.
// Mass solves use CG.
type galerkinTransfer struct {
	pm, pmT    utils.CSR
	fineMass   massSolver
	coarseMass *massSolver
}

type massSolver struct {
	M       utils.CSR
	tol     float64
	maxIter int
}

func (gt *galerkinTransfer) P() utils.CSR { return gt.pm }
func (gt *galerkinTransfer) R() utils.CSR { return gt.pmT }

func (ms massSolver) solve(x, b []float64) error {
	for i := range x {
		x[i] = 0
	}
	_, converged, err := pcg(ms.M, b, x, ms.tol, ms.maxIter, nil, nil)
	if err == nil && !converged {
		err = fmt.Errorf("%w: %s solve did not reach %g in %d iterations",
			ErrFactorization, ms.M.Name(), ms.tol, ms.maxIter)
	}
	return err
}

func (gt *galerkinTransfer) Prolongate(dst, src []float64) error {
	tmp := make([]float64, len(dst))
	gt.pm.MulVec(tmp, src)
	return gt.fineMass.solve(dst, tmp)
}

func (gt *galerkinTransfer) Restrict(dst, src []float64) error {
	if gt.coarseMass != nil {
		tmp := make([]float64, len(dst))
		gt.pm.MulVecTrans(tmp, src)
		return gt.coarseMass.solve(dst, tmp)
	}
	y := make([]float64, len(src))
	if err := gt.fineMass.solve(y, src); err != nil {
		return err
	}
	gt.pm.MulVecTrans(dst, y)
	return nil
}

// buildTransfer constructs the transfer between fine and coarse, where fine was derived
// from coarse by the transition tag.
func (cfg *SolverConfig) buildTransfer(tag CoarseningType, fine, coarse Basis, asm Assembler) (t Transfer, err error) {
	var (
		nf, nc = fine.Size(), coarse.Size()
	)
	if tag == HCoarsen {
		t, err = hTransfer(fine, coarse)
	} else {
		t, err = cfg.pTransfer(fine, coarse, asm)
	}
	if err != nil {
		return
	}
	if r, c := t.P().Dims(); r != nf || c != nc {
		return nil, fmt.Errorf("%w: %v prolongation is %dx%d, levels have %d and %d unknowns",
			ErrConfiguration, tag, r, c, nf, nc)
	}
	if r, c := t.R().Dims(); r != nc || c != nf {
		return nil, fmt.Errorf("%w: %v restriction is %dx%d, levels have %d and %d unknowns",
			ErrConfiguration, tag, r, c, nc, nf)
	}
	return
}

func hTransfer(fine, coarse Basis) (t Transfer, err error) {
	var (
		clone = fine.Clone()
		P     utils.CSR
	)
	cb, ok := clone.(Coarsenable)
	if !ok {
		return nil, fmt.Errorf("%w: h transfer needs a Coarsenable basis, have %T", ErrConfiguration, fine)
	}
	if P, err = cb.UniformCoarsenWithTransfer(); err != nil {
		return nil, fmt.Errorf("h coarsening: %w", err)
	}
	if clone.Size() != coarse.Size() {
		return nil, fmt.Errorf("%w: coarsened basis has %d unknowns, coarse level has %d",
			ErrConfiguration, clone.Size(), coarse.Size())
	}
	R := P.Transpose()
	P.SetReadOnly("P")
	R.SetReadOnly("R")
	return &matrixTransfer{p: P, r: R}, nil
}

func (cfg *SolverConfig) pTransfer(fine, coarse Basis, asm Assembler) (t Transfer, err error) {
	var (
		Pm utils.CSR
	)
	ma, ok := asm.(MassAssembler)
	if !ok {
		return nil, fmt.Errorf("%w: degree transfer needs a MassAssembler, have %T", ErrConfiguration, asm)
	}
	if Pm, err = ma.MixedMass(fine, coarse); err != nil {
		return nil, fmt.Errorf("mixed mass: %w", err)
	}
	switch cfg.Transfer {
	case LumpedTransfer:
		var (
			m []float64
		)
		if m, err = ma.MassVector(fine); err != nil {
			return nil, fmt.Errorf("lumped mass: %w", err)
		}
		if len(m) != fine.Size() {
			return nil, fmt.Errorf("%w: lumped mass of length %d for %d unknowns", ErrDimension, len(m), fine.Size())
		}
		inv := make([]float64, len(m))
		for i, v := range m {
			if v <= 0 {
				return nil, fmt.Errorf("%w: non positive lumped mass %g at %d", ErrFactorization, v, i)
			}
			inv[i] = 1 / v
		}
		P := Pm.ScaleRows(inv)
		R := P.Transpose()
		P.SetReadOnly("P-lumped")
		R.SetReadOnly("R-lumped")
		t = &matrixTransfer{p: P, r: R}
	case GalerkinTransfer:
		var (
			fm massSolver
		)
		if fm, err = cfg.newMassSolver(ma, fine, "fine mass"); err != nil {
			return
		}
		gt := &galerkinTransfer{pm: Pm, pmT: Pm.Transpose(), fineMass: fm}
		gt.pmT.SetReadOnly("mixed-mass-T")
		if cfg.Restriction == ProjectionRestriction {
			var (
				cm massSolver
			)
			if cm, err = cfg.newMassSolver(ma, coarse, "coarse mass"); err != nil {
				return
			}
			gt.coarseMass = &cm
		}
		t = gt
	default:
		err = fmt.Errorf("%w: transfer mode %v", ErrConfiguration, cfg.Transfer)
	}
	return
}

func (cfg *SolverConfig) newMassSolver(ma MassAssembler, b Basis, name string) (ms massSolver, err error) {
	if ms.M, err = ma.Mass(b); err != nil {
		return ms, fmt.Errorf("%s: %w", name, err)
	}
	if nr, nc := ms.M.Dims(); nr != nc || nr != b.Size() {
		return ms, fmt.Errorf("%w: %s is %dx%d for %d unknowns", ErrDimension, name, nr, nc, b.Size())
	}
	ms.M.SetReadOnly(name)
	ms.tol, ms.maxIter = cfg.MassSolveTol, cfg.MassSolveMaxIter
	if ms.maxIter <= 0 {
		ms.maxIter = 10 * b.Size()
	}
	return
}
