package FEM1D

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGL returns the N+1 Gauss-Lobatto nodes for the Jacobi weight (alpha, beta) on [-1,1].
func JacobiGL(alpha, beta float64, N int) (X []float64) {
	X = make([]float64, N+1)
	X[0], X[N] = -1, 1
	if N == 1 {
		return
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	copy(X[1:N], xint)
	return
}

// JacobiGQ returns the N+1 Gauss quadrature nodes and weights for the Jacobi weight (alpha, beta).
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	var (
		fac    float64
		h1, d0 []float64
	)
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{2.}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
	}
	// 1st upper diagonal: 2./(h1+2).*sqrt(i*(i+alpha+beta)*(i+alpha)*(i+beta)./(h1+1)./(h1+3))
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1 := 2. / (val + 2.)
		d1 *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
		JJ.SetSym(i, i+1, d1)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)
	var VV mat.Dense
	eig.VectorsTo(&VV)
	W = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for j := 0; j < N+1; j++ {
		v := VV.At(0, j)
		W[j] = v * v * g0
	}
	return
}

// JacobiP evaluates the normalized Jacobi polynomial of order N at r.
func JacobiP(r []float64, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = len(r)
		rg = 1. / math.Sqrt(gamma0(alpha, beta))
	)
	pOld := make([]float64, Nc)
	for i := range pOld {
		pOld[i] = rg
	}
	if N == 0 {
		return pOld
	}
	ab := alpha + beta
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	pCur := make([]float64, Nc)
	for i := range pCur {
		pCur[i] = rg1 * ((ab+2.0)*r[i]/2.0 + (alpha-beta)/2.0)
	}
	if N == 1 {
		return pCur
	}

	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		pNew := make([]float64, Nc)
		for j := range pNew {
			pNew[j] = (-aold*pOld[j] + (r[j]-bnew)*pCur[j]) / anew
		}
		pOld, pCur = pCur, pNew
		aold = anew
	}
	return pCur
}

func GradJacobiP(r []float64, alpha, beta float64, N int) (p []float64) {
	if N == 0 {
		p = make([]float64, len(r))
		return
	}
	p = JacobiP(r, alpha+1, beta+1, N-1)
	fN := float64(N)
	fac := math.Sqrt(fN * (fN + alpha + beta + 1))
	for i, val := range p {
		p[i] = val * fac
	}
	return
}

func Vandermonde1D(N int, R []float64) (V *mat.Dense) {
	V = mat.NewDense(len(R), N+1, nil)
	for j := 0; j < N+1; j++ {
		V.SetCol(j, JacobiP(R, 0, 0, j))
	}
	return
}

func GradVandermonde1D(N int, R []float64) (Vr *mat.Dense) {
	Vr = mat.NewDense(len(R), N+1, nil)
	for j := 0; j < N+1; j++ {
		Vr.SetCol(j, GradJacobiP(R, 0, 0, j))
	}
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * gamma0(alpha, beta) / (ab + 3.0)
}

// ReferenceElement is the nodal Lagrange basis of degree N on the GLL nodes of [-1,1].
type ReferenceElement struct {
	N    int
	R    []float64 // GLL nodes
	Vinv *mat.Dense
}

func NewReferenceElement(N int) (re *ReferenceElement) {
	re = &ReferenceElement{
		N: N,
		R: JacobiGL(0, 0, N),
	}
	var Vinv mat.Dense
	if err := Vinv.Inverse(Vandermonde1D(N, re.R)); err != nil {
		panic(err)
	}
	re.Vinv = &Vinv
	return
}

// Eval returns the N+1 nodal basis values and derivatives (w.r.t. r) at the points r.
// Row q of each result holds the basis at r[q].
func (re *ReferenceElement) Eval(r []float64) (phi, dphi *mat.Dense) {
	var (
		Nq = len(r)
	)
	phi = mat.NewDense(Nq, re.N+1, nil)
	dphi = mat.NewDense(Nq, re.N+1, nil)
	phi.Mul(Vandermonde1D(re.N, r), re.Vinv)
	dphi.Mul(GradVandermonde1D(re.N, r), re.Vinv)
	return
}
