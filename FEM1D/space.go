package FEM1D

import (
	"fmt"
	"math"

	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/utils"
)

// Space is a continuous nodal finite element space of degree N on K uniform elements of
// [XMin, XMax], with homogeneous Dirichlet nodes at both ends eliminated. Elements are
// grouped into NPatch contiguous patches for domain decomposition.
//
// Global node g = k*N + i (element k, local node i); degree of freedom g-1 for interior nodes.
type Space struct {
	XMin, XMax float64
	K, N       int
	NPatch     int
	ref        *ReferenceElement
}

func NewSpace(xmin, xmax float64, K, N, NPatch int) (s *Space, err error) {
	switch {
	case xmax <= xmin:
		err = fmt.Errorf("invalid interval [%v,%v]", xmin, xmax)
	case K < 1 || N < 1:
		err = fmt.Errorf("need at least one element of degree one, have K = %d, N = %d", K, N)
	case NPatch < 1 || NPatch > K:
		err = fmt.Errorf("patch count %d must be in [1,%d]", NPatch, K)
	}
	if err != nil {
		return
	}
	s = &Space{
		XMin: xmin, XMax: xmax,
		K: K, N: N,
		NPatch: NPatch,
		ref:    NewReferenceElement(N),
	}
	return
}

func (s *Space) Size() int { return s.K*s.N - 1 }

func (s *Space) NumNodes() int { return s.K*s.N + 1 }

func (s *Space) H() float64 { return (s.XMax - s.XMin) / float64(s.K) }

func (s *Space) Reference() *ReferenceElement { return s.ref }

func (s *Space) Clone() multigrid.Basis {
	c := *s
	return &c
}

func (s *Space) String() string {
	return fmt.Sprintf("FEM1D[K=%d N=%d patches=%d ndof=%d]", s.K, s.N, s.NPatch, s.Size())
}

func (s *Space) DegreeElevate(n int) error {
	if n < 0 {
		return fmt.Errorf("negative degree elevation %d", n)
	}
	s.N += n
	s.ref = NewReferenceElement(s.N)
	return nil
}

func (s *Space) UniformRefine() error {
	s.K *= 2
	return nil
}

// DOF maps a global node to its degree of freedom, or -1 for an eliminated Dirichlet node.
func (s *Space) DOF(g int) int {
	if g <= 0 || g >= s.NumNodes()-1 {
		return -1
	}
	return g - 1
}

// NodeX returns the physical coordinate of global node g.
func (s *Space) NodeX(g int) float64 {
	var (
		k = g / s.N
		i = g - k*s.N
	)
	if k == s.K {
		k, i = s.K-1, s.N
	}
	return s.MapX(k, s.ref.R[i])
}

// MapX maps reference coordinate r of element k to physical space.
func (s *Space) MapX(k int, r float64) float64 {
	h := s.H()
	return s.XMin + h*float64(k) + 0.5*h*(r+1)
}

// Locate returns the element containing x and the reference coordinate of x in it.
func (s *Space) Locate(x float64) (k int, r float64) {
	h := s.H()
	k = int(math.Floor((x - s.XMin) / h))
	if k < 0 {
		k = 0
	}
	if k >= s.K {
		k = s.K - 1
	}
	r = 2*(x-s.XMin-h*float64(k))/h - 1
	return
}

// L2Error integrates (u_h - exact)^2 over the domain with a Gauss rule exact for degree 2N+2.
func (s *Space) L2Error(u []float64, exact func(x float64) float64) float64 {
	var (
		rq, wq = JacobiGQ(0, 0, s.N+1)
		phi, _ = s.ref.Eval(rq)
		J      = 0.5 * s.H()
		sum    float64
	)
	for k := 0; k < s.K; k++ {
		for q, w := range wq {
			var uh float64
			for i := 0; i <= s.N; i++ {
				if g := s.DOF(k*s.N + i); g >= 0 {
					uh += u[g] * phi.At(q, i)
				}
			}
			d := uh - exact(s.MapX(k, rq[q]))
			sum += w * d * d * J
		}
	}
	return math.Sqrt(sum)
}

// UniformCoarsenWithTransfer coarsens the receiver by merging element pairs and returns the
// prolongation from the coarse space to the original one. Coarse basis functions are
// interpolated at the fine nodes, which is exact because the spaces are nested.
func (s *Space) UniformCoarsenWithTransfer() (P utils.CSR, err error) {
	if s.K%2 != 0 {
		err = fmt.Errorf("cannot coarsen %d elements", s.K)
		return
	}
	fine := *s
	s.K /= 2
	if s.NPatch > s.K {
		s.NPatch = s.K
	}
	var (
		Pd = utils.NewDOK(fine.Size(), s.Size())
	)
	for g := 1; g < fine.NumNodes()-1; g++ {
		var (
			x      = fine.NodeX(g)
			k, r   = s.Locate(x)
			phi, _ = s.ref.Eval([]float64{r})
		)
		for i := 0; i <= s.N; i++ {
			jc := s.DOF(k*s.N + i)
			if jc < 0 {
				continue
			}
			if v := phi.At(0, i); math.Abs(v) > utils.NODETOL {
				Pd.Set(fine.DOF(g), jc, v)
			}
		}
	}
	P = Pd.ToCSR()
	P.SetReadOnly("H-prolongation")
	return
}

// Partition groups the degrees of freedom by patch: nodes strictly inside a patch are that
// patch's interior block, vertices shared by two patches form the interface block.
func (s *Space) Partition() (p multigrid.Partition, err error) {
	var (
		pm = utils.NewPartitionMap(s.NPatch, s.K)
	)
	p.Interior = make([]utils.Index, s.NPatch)
	for np := 0; np < s.NPatch; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		for g := kMin * s.N; g <= kMax*s.N; g++ {
			dof := s.DOF(g)
			if dof < 0 {
				continue
			}
			if g == kMax*s.N && np < s.NPatch-1 {
				p.Interface = append(p.Interface, dof)
				continue
			}
			if g == kMin*s.N && np > 0 {
				continue // owned by the interface, added by the previous patch
			}
			p.Interior[np] = append(p.Interior[np], dof)
		}
	}
	return
}
