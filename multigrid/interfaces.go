package multigrid

import (
	"github.com/notargets/gomultigrid/utils"
)

// Basis is the discretization space of one level. The hierarchy clones the base basis and
// derives every finer level from its predecessor; the caller's basis is never mutated.
type Basis interface {
	Size() int
	Clone() Basis
	DegreeElevate(n int) error
	UniformRefine() error
}

// Coarsenable bases can undo one UniformRefine and report the nested transfer matrix,
// with rows indexing the original (fine) space and columns the coarsened one.
type Coarsenable interface {
	UniformCoarsenWithTransfer() (utils.CSR, error)
}

// Partitionable bases know their own subdomain structure (patches and interfaces).
type Partitionable interface {
	Partition() (Partition, error)
}

// Assembler builds the operator and right hand side for a basis.
type Assembler interface {
	Assemble(b Basis) (A utils.CSR, rhs []float64, err error)
}

// MassAssembler provides the mass operators used by degree (p) transfers.
type MassAssembler interface {
	Mass(b Basis) (utils.CSR, error)
	MassVector(b Basis) ([]float64, error)
	// MixedMass has rows indexing fine and columns indexing coarse basis functions.
	MixedMass(fine, coarse Basis) (utils.CSR, error)
}

// CoarseFactorizer is the pluggable direct solver backend of the coarsest level.
type CoarseFactorizer interface {
	Analyze(A utils.CSR) error
	Factorize(A utils.CSR) error
	Solve(dst, rhs []float64) error
}

// ExternalSmoother is an opaque, externally constructed smoother that updates x in place.
type ExternalSmoother interface {
	Step(rhs, x []float64)
}

// ExternalSmootherFactory builds the external smoother of one level.
type ExternalSmootherFactory func(level int, A utils.CSR, b Basis) (ExternalSmoother, error)

// Partitioner splits the unknowns of an operator into subdomains and an interface.
type Partitioner interface {
	Partition(A utils.CSR) (Partition, error)
}
