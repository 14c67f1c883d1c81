package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is the assembly format: entries are accumulated by (i,j) and then frozen into a CSR.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

// AddAt accumulates val into entry (i,j), the usual finite element scatter-add.
func (m DOK) AddAt(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

// ToCSR freezes the accumulated entries into a CSR with column indices sorted within each row.
func (m DOK) ToCSR() CSR {
	R := CSR{
		M:    sortRows(m.M.ToCSR()),
		name: m.name,
	}
	return R
}

// rowSorter orders one row segment of a CSR by column index.
type rowSorter struct {
	ind  []int
	data []float64
}

func (rs rowSorter) Len() int           { return len(rs.ind) }
func (rs rowSorter) Less(a, b int) bool { return rs.ind[a] < rs.ind[b] }
func (rs rowSorter) Swap(a, b int) {
	rs.ind[a], rs.ind[b] = rs.ind[b], rs.ind[a]
	rs.data[a], rs.data[b] = rs.data[b], rs.data[a]
}

// sortRows sorts the column indices of every row in place. The library conversions leave
// rows in insertion (or map) order, and the triangular solves need them ascending.
func sortRows(M *sparse.CSR) *sparse.CSR {
	raw := M.RawMatrix()
	for i := 0; i < raw.I; i++ {
		lo, hi := raw.Indptr[i], raw.Indptr[i+1]
		rs := rowSorter{raw.Ind[lo:hi], raw.Data[lo:hi]}
		if !sort.IsSorted(rs) {
			sort.Sort(rs)
		}
	}
	return M
}

// CSR wraps a compressed sparse row matrix. All level operators, transfer operators and
// factors in the solver are carried in this form.
type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

func NewCSR(nr, nc int, indptr, ind []int, data []float64) (R CSR) {
	if len(indptr) != nr+1 {
		panic(fmt.Errorf("mismatch in allocation: NewCSR nr = %v, len(indptr) = %v", nr, len(indptr)))
	}
	R = CSR{
		sparse.NewCSR(nr, nc, indptr, ind, data),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// NewCSRFromDense is mostly a test convenience.
func NewCSRFromDense(M mat.Matrix) CSR {
	var (
		nr, nc = M.Dims()
		D      = NewDOK(nr, nc)
	)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := M.At(i, j); v != 0 {
				D.Set(i, j, v)
			}
		}
	}
	return D.ToCSR()
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) IsEmpty() bool { return m.M == nil }
func (m CSR) Name() string  { return m.name }

func (m CSR) NNZ() int {
	raw := m.RawMatrix()
	return raw.Indptr[raw.I]
}

func (m *CSR) SetReadOnly(name ...string) CSR {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

// Row returns views of the column indices and values of row i.
func (m CSR) Row(i int) (cols []int, vals []float64) {
	raw := m.RawMatrix()
	lo, hi := raw.Indptr[i], raw.Indptr[i+1]
	return raw.Ind[lo:hi], raw.Data[lo:hi]
}

// MulVec computes dst = M*x.
func (m CSR) MulVec(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(dst) != nr || len(x) != nc {
		panic(fmt.Errorf("MulVec dimension mismatch: %s is %dx%d, len(dst) = %d, len(x) = %d",
			m.name, nr, nc, len(dst), len(x)))
	}
	for i := range dst {
		dst[i] = 0
	}
	m.M.MulVecTo(dst, false, x)
}

// MulVecTrans computes dst = M^T*x without forming the transpose.
func (m CSR) MulVecTrans(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(dst) != nc || len(x) != nr {
		panic(fmt.Errorf("MulVecTrans dimension mismatch: %s is %dx%d, len(dst) = %d, len(x) = %d",
			m.name, nr, nc, len(dst), len(x)))
	}
	for j := range dst {
		dst[j] = 0
	}
	m.M.MulVecTo(dst, true, x)
}

// Transpose returns an explicit (not view) transpose with sorted rows: the CSC copy of M
// read as CSR is the transpose.
func (m CSR) Transpose() CSR {
	return CSR{
		M:    sortRows(m.M.ToCSC().T().(*sparse.CSR)),
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
}

// Sorted returns a copy with sorted column indices, merged duplicates and explicit zeros dropped.
func (m CSR) Sorted() CSR {
	var (
		M   = sortRows(m.M.ToCOO().ToCSRReuseMem())
		raw = M.RawMatrix()
		nz  int
	)
	for i, lo := 0, 0; i < raw.I; i++ {
		start, hi := nz, raw.Indptr[i+1]
		for k := lo; k < hi; k++ {
			if nz > start && raw.Ind[nz-1] == raw.Ind[k] {
				raw.Data[nz-1] += raw.Data[k]
				continue
			}
			raw.Ind[nz], raw.Data[nz] = raw.Ind[k], raw.Data[k]
			nz++
		}
		w := start
		for k := start; k < nz; k++ {
			if raw.Data[k] != 0 {
				raw.Ind[w], raw.Data[w] = raw.Ind[k], raw.Data[k]
				w++
			}
		}
		nz, lo = w, hi
		raw.Indptr[i+1] = nz
	}
	return CSR{
		M:    sparse.NewCSR(raw.I, raw.J, raw.Indptr, raw.Ind[:nz], raw.Data[:nz]),
		name: m.name,
	}
}

// Diagonal returns a copy of the main diagonal.
func (m CSR) Diagonal() (d []float64) {
	var (
		nr, nc = m.Dims()
		n      = min(nr, nc)
	)
	d = make([]float64, n)
	for i := 0; i < n; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			if j == i {
				d[i] += vals[k]
			}
		}
	}
	return
}

// ScaleRows returns diag(s)*M. Entries scaled to zero are dropped.
func (m CSR) ScaleRows(s []float64) CSR {
	var (
		nr, nc = m.Dims()
	)
	if len(s) != nr {
		panic(fmt.Errorf("ScaleRows dimension mismatch: rows = %d, len(s) = %d", nr, len(s)))
	}
	SM := sparse.NewCSR(nr, nc, nil, nil, nil)
	SM.Mul(sparse.NewDIA(nr, nr, s), m.M)
	return CSR{M: SM, name: "unnamed - hint: pass a variable name to SetReadOnly()"}
}

// SubMatrix extracts M(rows, cols) with local numbering given by the order of rows and cols.
func (m CSR) SubMatrix(rowIdx, colIdx Index) CSR {
	var (
		_, nc      = m.Dims()
		colMap     = make([]int, nc)
		rows, cols []int
		data       []float64
	)
	for j := range colMap {
		colMap[j] = -1
	}
	for jj, j := range colIdx {
		colMap[j] = jj
	}
	for ii, i := range rowIdx {
		rc, vals := m.Row(i)
		for k, j := range rc {
			if jj := colMap[j]; jj >= 0 {
				rows, cols, data = append(rows, ii), append(cols, jj), append(data, vals[k])
			}
		}
	}
	return CSR{
		M:    sortRows(sparse.NewCOO(len(rowIdx), len(colIdx), rows, cols, data).ToCSRReuseMem()),
		name: "unnamed - hint: pass a variable name to SetReadOnly()",
	}
}

// Mul3 returns the product R*A*P, the Galerkin coarse operator when R and P are transfer operators.
func Mul3(R, A, P CSR) CSR {
	var (
		nrR, ncR = R.Dims()
		nrA, ncA = A.Dims()
		nrP, ncP = P.Dims()
	)
	if ncR != nrA || ncA != nrP {
		panic(fmt.Errorf("Mul3 dimension mismatch: R %dx%d, A %dx%d, P %dx%d",
			nrR, ncR, nrA, ncA, nrP, ncP))
	}
	AP := sparse.NewCSR(nrA, ncP, nil, nil, nil)
	AP.Mul(A.M, P.M)
	RAP := sparse.NewCSR(nrR, ncP, nil, nil, nil)
	RAP.Mul(R.M, AP)
	return CSR{M: RAP, name: "RAP"}.Sorted()
}

// Mul returns the sparse product A*B.
func Mul(A, B CSR) CSR {
	var (
		nrA, ncA = A.Dims()
		nrB, ncB = B.Dims()
	)
	if ncA != nrB {
		panic(fmt.Errorf("Mul dimension mismatch: A %dx%d, B %dx%d", nrA, ncA, nrB, ncB))
	}
	AB := sparse.NewCSR(nrA, ncB, nil, nil, nil)
	AB.Mul(A.M, B.M)
	return CSR{M: AB, name: "product"}.Sorted()
}

// Dense copies the matrix into a gonum dense matrix; only sensible for small (coarse) operators.
func (m CSR) Dense() (D *mat.Dense) {
	var (
		nr, nc = m.Dims()
	)
	D = mat.NewDense(nr, nc, nil)
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			D.Set(i, j, D.At(i, j)+vals[k])
		}
	}
	return
}

// Graph returns the symmetrized adjacency (off-diagonal pattern) of a square matrix.
func (m CSR) Graph() (adj [][]int) {
	var (
		n, _ = m.Dims()
		seen = make([]map[int]bool, n)
	)
	adj = make([][]int, n)
	for i := range seen {
		seen[i] = make(map[int]bool)
	}
	link := func(i, j int) {
		if !seen[i][j] {
			seen[i][j] = true
			adj[i] = append(adj[i], j)
		}
	}
	for i := 0; i < n; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			if j == i || vals[k] == 0 {
				continue
			}
			link(i, j)
			link(j, i)
		}
	}
	for i := range adj {
		sort.Ints(adj[i])
	}
	return
}
