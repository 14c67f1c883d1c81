// Package metispart partitions the unknowns of a level operator with METIS for the domain
// decomposition smoother.
package metispart

import (
	"fmt"
	"log"

	metis "github.com/notargets/go-metis"
	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/utils"
)

// Partitioner implements multigrid.Partitioner with a k-way edge cut minimizing METIS
// partition of the operator graph, followed by the separator split into interior blocks and
// an interface.
type Partitioner struct {
	NumParts        int32
	ImbalanceFactor float32 // e.g., 1.05 for 5% imbalance
	Verbose         bool
}

func New(nparts int32) *Partitioner {
	return &Partitioner{
		NumParts:        nparts,
		ImbalanceFactor: 1.05,
	}
}

func (mp *Partitioner) Partition(A utils.CSR) (p multigrid.Partition, err error) {
	var (
		n, _ = A.Dims()
	)
	if mp.NumParts < 2 || int(mp.NumParts) > n {
		// METIS rejects a single part, and a single part needs no separator
		part := make([]int, n)
		return multigrid.SeparatorPartition(A, part, 1)
	}
	xadj, adjncy := buildMetisGraph(A)

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		err = fmt.Errorf("failed to set METIS options: %w", err)
		return
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut
	ubvec := []float32{mp.ImbalanceFactor}

	part32, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil,
		mp.NumParts, nil, ubvec, opts,
	)
	if err != nil {
		err = fmt.Errorf("METIS partitioning failed: %w", err)
		return
	}
	part := make([]int, n)
	for i := range part {
		part[i] = int(part32[i])
	}
	if p, err = multigrid.SeparatorPartition(A, part, int(mp.NumParts)); err != nil {
		return
	}
	if mp.Verbose {
		log.Printf("METIS: %d unknowns, %d parts, edge cut %d, %d blocks, interface %d",
			n, mp.NumParts, objval, p.NumBlocks(), len(p.Interface))
	}
	return
}

// buildMetisGraph converts the off diagonal pattern of A into METIS CSR adjacency.
func buildMetisGraph(A utils.CSR) (xadj, adjncy []int32) {
	adj := A.Graph()
	xadj = make([]int32, len(adj)+1)
	for i, nbrs := range adj {
		for _, j := range nbrs {
			adjncy = append(adjncy, int32(j))
		}
		xadj[i+1] = int32(len(adjncy))
	}
	return
}
