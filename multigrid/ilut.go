package multigrid

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/gomultigrid/utils"
)

// ILUTFactor is a dual threshold incomplete factorization L*U ~ A(perm,perm). L is unit
// lower triangular and stored without its diagonal; U is stored as a strictly upper part
// plus the pivots in Diag. All factor indices are in the permuted numbering.
type ILUTFactor struct {
	Perm  utils.Index // Perm[new] = old
	iperm utils.Index
	L, U  utils.CSR
	Diag  []float64
}

// NewILUT factors A with Saad's ILUT: a row entry is dropped when smaller than DropTol times
// the 2-norm of the original row, and at most FillFactor*nnz(A)/n + 1 entries are kept in
// each of the L and U parts of a row.
func NewILUT(A utils.CSR, opts ILUTOptions) (f *ILUTFactor, err error) {
	var (
		n, nc = A.Dims()
	)
	if n != nc {
		err = fmt.Errorf("%w: ILUT of a %dx%d matrix", ErrDimension, n, nc)
		return
	}
	f = &ILUTFactor{
		Perm: orderingOf(A, opts.Ordering),
		Diag: make([]float64, n),
	}
	f.iperm = f.Perm.Inverse()
	var (
		keep   = 1
		w      = make([]float64, n)
		inW    = make([]bool, n)
		nzCols = make([]int, 0, n)
		lower  = &intHeap{}
		lp     = make([]int, n+1)
		li     []int
		lx     []float64
		up     = make([]int, n+1)
		ui     []int
		ux     []float64
	)
	if n > 0 {
		keep = int(opts.FillFactor*float64(A.NNZ())/float64(n)) + 1
	}
	for i := 0; i < n; i++ {
		var (
			cols, vals = A.Row(f.Perm[i])
			rowNorm    float64
		)
		nzCols = nzCols[:0]
		*lower = (*lower)[:0]
		for k, jOld := range cols {
			j := f.iperm[jOld]
			if !inW[j] {
				inW[j] = true
				nzCols = append(nzCols, j)
				if j < i {
					*lower = append(*lower, j)
				}
			}
			w[j] += vals[k]
			rowNorm += vals[k] * vals[k]
		}
		rowNorm = math.Sqrt(rowNorm)
		tau := opts.DropTol * rowNorm
		heap.Init(lower)
		for lower.Len() > 0 {
			k := heap.Pop(lower).(int)
			w[k] /= f.Diag[k]
			if math.Abs(w[k]) <= tau {
				w[k] = 0
				continue
			}
			uc, uv := ui[up[k]:up[k+1]], ux[up[k]:up[k+1]]
			for m, j := range uc {
				if !inW[j] {
					inW[j] = true
					nzCols = append(nzCols, j)
					if j < i {
						heap.Push(lower, j)
					}
				}
				w[j] -= w[k] * uv[m]
			}
		}
		var lrow, urow []colVal
		for _, j := range nzCols {
			v := w[j]
			w[j], inW[j] = 0, false
			switch {
			case j == i:
				f.Diag[i] = v
			case math.Abs(v) <= tau:
			case j < i:
				lrow = append(lrow, colVal{j, v})
			default:
				urow = append(urow, colVal{j, v})
			}
		}
		if math.Abs(f.Diag[i]) <= utils.PIVOTTOL*math.Max(rowNorm, 1) {
			err = fmt.Errorf("%w: ILUT pivot %g at row %d (original %d)", ErrFactorization, f.Diag[i], i, f.Perm[i])
			return nil, err
		}
		for _, e := range largest(lrow, keep) {
			li, lx = append(li, e.col), append(lx, e.val)
		}
		lp[i+1] = len(li)
		for _, e := range largest(urow, keep) {
			ui, ux = append(ui, e.col), append(ux, e.val)
		}
		up[i+1] = len(ui)
	}
	f.L = utils.NewCSR(n, n, lp, li, lx)
	f.U = utils.NewCSR(n, n, up, ui, ux)
	f.L.SetReadOnly("ILUT-L")
	f.U.SetReadOnly("ILUT-U")
	return
}

type colVal struct {
	col int
	val float64
}

// largest keeps the p entries of largest magnitude, returned in column order.
func largest(row []colVal, p int) []colVal {
	if len(row) > p {
		sort.Slice(row, func(a, b int) bool { return math.Abs(row[a].val) > math.Abs(row[b].val) })
		row = row[:p]
	}
	sort.Slice(row, func(a, b int) bool { return row[a].col < row[b].col })
	return row
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

func (f *ILUTFactor) Size() int { return len(f.Diag) }

// Forward solves L*z = z in place (permuted numbering).
func (f *ILUTFactor) Forward(z []float64) {
	for i := range z {
		cols, vals := f.L.Row(i)
		s := z[i]
		for k, j := range cols {
			s -= vals[k] * z[j]
		}
		z[i] = s
	}
}

// Backward solves U*z = z in place (permuted numbering).
func (f *ILUTFactor) Backward(z []float64) {
	for i := len(z) - 1; i >= 0; i-- {
		cols, vals := f.U.Row(i)
		s := z[i]
		for k, j := range cols {
			s -= vals[k] * z[j]
		}
		z[i] = s / f.Diag[i]
	}
}

// BackwardTrans solves y*U = b for a row vector, in place, so that y = b*U^-1.
func (f *ILUTFactor) BackwardTrans(z []float64) {
	for i := range z {
		z[i] /= f.Diag[i]
		if z[i] == 0 {
			continue
		}
		cols, vals := f.U.Row(i)
		for k, j := range cols {
			z[j] -= z[i] * vals[k]
		}
	}
}

// Solve sets dst = (L*U)^-1 applied to rhs in the original numbering.
func (f *ILUTFactor) Solve(dst, rhs []float64) {
	f.SolveWork(dst, rhs, make([]float64, f.Size()))
}

// SolveWork is Solve using z, of length Size(), as scratch.
func (f *ILUTFactor) SolveWork(dst, rhs, z []float64) {
	z = z[:f.Size()]
	f.Perm.Gather(z, rhs)
	f.Forward(z)
	f.Backward(z)
	f.Perm.Scatter(dst, z)
}
