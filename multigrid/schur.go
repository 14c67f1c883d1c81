package multigrid

import (
	"fmt"

	"github.com/notargets/gomultigrid/utils"
	"gonum.org/v1/gonum/floats"
)

// SchurSmoother is the domain decomposition smoother. With the unknowns ordered as interior
// blocks followed by the interface,
//
//	A = [ A_k  C_k ]    A_k ~ L_k U_k (ILUT, permuted)
//	    [ B_k  D   ]    S = D - sum B_k A_k^-1 C_k ~ ILUT(S)
//
// and one application is an approximate block LU solve of the defect equation.
type SchurSmoother struct {
	part     Partition
	blocks   []*schurBlock
	schur    *ILUTFactor // nil without an interface
	offsets  []int       // start of each block in the scratch
	maxBlock int
	rc       residualCorrection
}

type schurBlock struct {
	ilu    *ILUTFactor
	Ctilde utils.CSR // L^-1 C(perm,:), block x interface
	Btilde utils.CSR // B(:,perm) U^-1, interface x block
}

// NewSchurSmoother factors the interior blocks in parallel and then the interface complement.
func NewSchurSmoother(A utils.CSR, part Partition, opts ILUTOptions, NP int) (ss *SchurSmoother, err error) {
	ss = &SchurSmoother{
		part:    part,
		blocks:  make([]*schurBlock, part.NumBlocks()),
		offsets: make([]int, part.NumBlocks()+1),
	}
	for k, blk := range part.Interior {
		ss.offsets[k+1] = ss.offsets[k] + len(blk)
		ss.maxBlock = max(ss.maxBlock, len(blk))
	}
	n, _ := A.Dims()
	ss.rc = residualCorrection{solve: ss.SolveWork, n: n, solveLen: ss.solveLen()}
	iface := part.Interface
	err = utils.ParallelFor(len(part.Interior), NP, func(k int) (err error) {
		var (
			blk = part.Interior[k]
			sb  = &schurBlock{}
		)
		if sb.ilu, err = NewILUT(A.SubMatrix(blk, blk), opts); err != nil {
			return fmt.Errorf("subdomain %d: %w", k, err)
		}
		if len(iface) != 0 {
			sb.Ctilde = sb.lowerSolveColumns(A.SubMatrix(blk, iface))
			sb.Btilde = sb.upperSolveRows(A.SubMatrix(iface, blk))
		}
		ss.blocks[k] = sb
		return
	})
	if err != nil || len(iface) == 0 {
		return
	}
	S := utils.NewDOK(len(iface), len(iface))
	D := A.SubMatrix(iface, iface)
	for i := range iface {
		cols, vals := D.Row(i)
		for k, j := range cols {
			S.AddAt(i, j, vals[k])
		}
	}
	for _, sb := range ss.blocks {
		BC := utils.Mul(sb.Btilde, sb.Ctilde)
		for i := range iface {
			cols, vals := BC.Row(i)
			for k, j := range cols {
				S.AddAt(i, j, -vals[k])
			}
		}
	}
	if ss.schur, err = NewILUT(S.ToCSR(), opts); err != nil {
		err = fmt.Errorf("interface complement: %w", err)
	}
	return
}

// lowerSolveColumns returns L^-1 C(perm,:) computed one interface column at a time.
func (sb *schurBlock) lowerSolveColumns(C utils.CSR) utils.CSR {
	var (
		nb, ni = C.Dims()
		Ct     = C.Transpose()
		col    = make([]float64, nb)
		out    = utils.NewDOK(nb, ni)
	)
	for j := 0; j < ni; j++ {
		cols, vals := Ct.Row(j)
		if len(cols) == 0 {
			continue
		}
		for i := range col {
			col[i] = 0
		}
		for k, i := range cols {
			col[sb.ilu.iperm[i]] = vals[k]
		}
		sb.ilu.Forward(col)
		for i, v := range col {
			if v != 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out.ToCSR()
}

// upperSolveRows returns B(:,perm) U^-1 computed one interface row at a time.
func (sb *schurBlock) upperSolveRows(B utils.CSR) utils.CSR {
	var (
		ni, nb = B.Dims()
		row    = make([]float64, nb)
		out    = utils.NewDOK(ni, nb)
	)
	for i := 0; i < ni; i++ {
		cols, vals := B.Row(i)
		if len(cols) == 0 {
			continue
		}
		for j := range row {
			row[j] = 0
		}
		for k, j := range cols {
			row[sb.ilu.iperm[j]] = vals[k]
		}
		sb.ilu.BackwardTrans(row)
		for j, v := range row {
			if v != 0 {
				out.Set(i, j, v)
			}
		}
	}
	return out.ToCSR()
}

// solveLen is the scratch needed by SolveWork: the block vectors, four interface vectors
// and one block sized temporary.
func (ss *SchurSmoother) solveLen() int {
	return ss.offsets[len(ss.blocks)] + 4*len(ss.part.Interface) + ss.maxBlock
}

// Solve applies the block factorization: forward through the blocks, the interface
// complement, then back substitution into each block.
func (ss *SchurSmoother) Solve(dst, rhs []float64) {
	ss.SolveWork(dst, rhs, make([]float64, ss.solveLen()))
}

// SolveWork is Solve with caller owned scratch of at least solveLen values.
func (ss *SchurSmoother) SolveWork(dst, rhs, work []float64) {
	var (
		iface = ss.part.Interface
		ni    = len(iface)
		nb    = ss.offsets[len(ss.blocks)]
		zG    = work[nb : nb+ni]
		eG    = work[nb+ni : nb+2*ni]
		tmpG  = work[nb+2*ni : nb+3*ni]
		zS    = work[nb+3*ni : nb+4*ni]
		tmpB  = work[nb+4*ni : nb+4*ni+ss.maxBlock]
	)
	block := func(k int) []float64 { return work[ss.offsets[k]:ss.offsets[k+1]] }
	for k, sb := range ss.blocks {
		zk := block(k)
		for i, dof := range ss.part.Interior[k] {
			zk[sb.ilu.iperm[i]] = rhs[dof]
		}
		sb.ilu.Forward(zk)
	}
	if ss.schur != nil {
		iface.Gather(zG, rhs)
		for k, sb := range ss.blocks {
			sb.Btilde.MulVec(tmpG, block(k))
			floats.Sub(zG, tmpG)
		}
		ss.schur.SolveWork(eG, zG, zS)
		iface.Scatter(dst, eG)
	}
	for k, sb := range ss.blocks {
		zk := block(k)
		if ss.schur != nil {
			tmp := tmpB[:len(zk)]
			sb.Ctilde.MulVec(tmp, eG)
			floats.Sub(zk, tmp)
		}
		sb.ilu.Backward(zk)
		for i, dof := range ss.part.Interior[k] {
			dst[dof] = zk[sb.ilu.iperm[i]]
		}
	}
}

func (ss *SchurSmoother) WorkLen() int { return ss.rc.WorkLen() }

func (ss *SchurSmoother) Apply(A utils.CSR, rhs, x []float64, reverse bool, work []float64) {
	ss.rc.Apply(A, rhs, x, reverse, work)
}
