package multigrid

import (
	"fmt"

	"github.com/notargets/gomultigrid/utils"
)

// Partition splits the unknowns of one level into interior blocks that never couple to
// each other and a shared interface block. Indices are level degrees of freedom.
type Partition struct {
	Interior  []utils.Index
	Interface utils.Index
}

func (p Partition) NumBlocks() int { return len(p.Interior) }

// Validate checks that the blocks and the interface cover 0..n-1 exactly once, where n is
// the order of A, and that A has no entry joining the interiors of two different blocks.
func (p Partition) Validate(A utils.CSR) error {
	var (
		n, nc = A.Dims()
		owner = make([]int, n)
	)
	if n != nc {
		return fmt.Errorf("%w: partition of a %dx%d operator", ErrDimension, n, nc)
	}
	for i := range owner {
		owner[i] = -2
	}
	claim := func(dof, blk int) error {
		if dof < 0 || dof >= n {
			return fmt.Errorf("%w: partition index %d outside [0,%d)", ErrConfiguration, dof, n)
		}
		if owner[dof] != -2 {
			return fmt.Errorf("%w: dof %d appears twice in partition", ErrConfiguration, dof)
		}
		owner[dof] = blk
		return nil
	}
	for k, blk := range p.Interior {
		if len(blk) == 0 {
			return fmt.Errorf("%w: interior block %d is empty", ErrConfiguration, k)
		}
		for _, dof := range blk {
			if err := claim(dof, k); err != nil {
				return err
			}
		}
	}
	for _, dof := range p.Interface {
		if err := claim(dof, -1); err != nil {
			return err
		}
	}
	for i, o := range owner {
		if o == -2 {
			return fmt.Errorf("%w: dof %d not covered by partition", ErrConfiguration, i)
		}
	}
	for i := 0; i < n; i++ {
		if owner[i] < 0 {
			continue
		}
		cols, vals := A.Row(i)
		for k, j := range cols {
			if vals[k] != 0 && owner[j] >= 0 && owner[j] != owner[i] {
				return fmt.Errorf("%w: interior dofs %d (block %d) and %d (block %d) are coupled",
					ErrConfiguration, i, owner[i], j, owner[j])
			}
		}
	}
	return nil
}

// SeparatorPartition turns a vertex labelling part[i] in [0,nparts) into a Partition. Every
// edge of A that crosses two labels moves its higher labelled endpoint to the interface,
// unless one endpoint is already there. Blocks left empty are dropped.
func SeparatorPartition(A utils.CSR, part []int, nparts int) (p Partition, err error) {
	var (
		n, _  = A.Dims()
		iface = make([]bool, n)
	)
	if len(part) != n {
		err = fmt.Errorf("%w: %d labels for %d unknowns", ErrDimension, len(part), n)
		return
	}
	for i := 0; i < n; i++ {
		if part[i] < 0 || part[i] >= nparts {
			err = fmt.Errorf("%w: label %d of dof %d outside [0,%d)", ErrConfiguration, part[i], i, nparts)
			return
		}
	}
	for i := 0; i < n; i++ {
		cols, vals := A.Row(i)
		for k, j := range cols {
			if j == i || vals[k] == 0 || part[i] == part[j] || iface[i] || iface[j] {
				continue
			}
			if part[i] > part[j] {
				iface[i] = true
			} else {
				iface[j] = true
			}
		}
	}
	blocks := make([]utils.Index, nparts)
	for i := 0; i < n; i++ {
		if iface[i] {
			p.Interface = append(p.Interface, i)
			continue
		}
		blocks[part[i]] = append(blocks[part[i]], i)
	}
	for _, blk := range blocks {
		if len(blk) != 0 {
			p.Interior = append(p.Interior, blk)
		}
	}
	return
}

// ContiguousPartitioner labels unknowns by contiguous index ranges of near equal size, the
// natural split for operators numbered along a line or a space filling order.
type ContiguousPartitioner struct {
	NumParts int
}

func (cp ContiguousPartitioner) Partition(A utils.CSR) (p Partition, err error) {
	var (
		n, _   = A.Dims()
		nparts = cp.NumParts
	)
	if nparts < 1 {
		nparts = 1
	}
	if nparts > n {
		nparts = n
	}
	if n == 0 {
		return
	}
	var (
		pm   = utils.NewPartitionMap(nparts, n)
		part = make([]int, n)
	)
	for i := range part {
		part[i], _, _ = pm.GetBucket(i)
	}
	return SeparatorPartition(A, part, nparts)
}
