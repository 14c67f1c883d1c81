package multigrid

import (
	"fmt"
	"log"
	"time"

	"github.com/notargets/gomultigrid/utils"
)

// Level is one entry of the hierarchy, index 0 being the coarsest.
type Level struct {
	Index    int
	Tag      CoarseningType // transition from Index-1 to Index, unused on level 0
	Basis    Basis
	A        utils.CSR
	Transfer Transfer // to level Index-1, nil on level 0
	Smoother SmootherType
	smoother Smoother
}

func (l *Level) Size() int { return l.Basis.Size() }

// P returns the prolongation matrix to this level, see Transfer for what it holds under a
// Galerkin degree transfer. Use Transfer.Prolongate to apply the operator.
func (l *Level) P() (P utils.CSR) {
	if l.Transfer != nil {
		P = l.Transfer.P()
	}
	return
}

// R is the restriction counterpart of P.
func (l *Level) R() (R utils.CSR) {
	if l.Transfer != nil {
		R = l.Transfer.R()
	}
	return
}

type SetupTimings struct {
	Assembly, Transfer, Galerkin, Smoother, Coarse, Total time.Duration
}

func (st SetupTimings) String() string {
	return fmt.Sprintf("assembly %v, transfer %v, galerkin %v, smoother %v, coarse %v, total %v",
		st.Assembly, st.Transfer, st.Galerkin, st.Smoother, st.Coarse, st.Total)
}

// Hierarchy owns every level, its transfers and smoother state and the coarse factorization.
// It is immutable after Setup and may be shared by concurrent solves.
type Hierarchy struct {
	cfg     *SolverConfig
	levels  []*Level
	coarse  *coarseSolver
	rhs     []float64
	Timings SetupTimings
	log     *log.Logger
}

// Setup builds numLevels levels from a clone of base, finer levels being derived by the
// schedule, and prepares everything the cycle needs. The caller's basis is not modified.
func Setup(base Basis, asm Assembler, cfg *SolverConfig) (h *Hierarchy, err error) {
	var (
		start = time.Now()
		mark  = start
	)
	if err = cfg.Validate(); err != nil {
		return
	}
	if base == nil || asm == nil {
		return nil, fmt.Errorf("%w: setup needs a basis and an assembler", ErrConfiguration)
	}
	h = &Hierarchy{
		cfg:    cfg,
		levels: make([]*Level, cfg.NumLevels),
		log:    cfg.logger(),
	}
	lap := func(d *time.Duration) {
		now := time.Now()
		*d = now.Sub(mark)
		mark = now
	}
	if err = h.buildBases(base); err != nil {
		return nil, err
	}
	if err = h.assemble(asm); err != nil {
		return nil, err
	}
	lap(&h.Timings.Assembly)
	if err = h.buildTransfers(asm); err != nil {
		return nil, err
	}
	lap(&h.Timings.Transfer)
	h.project()
	lap(&h.Timings.Galerkin)
	if err = h.buildSmoothers(); err != nil {
		return nil, err
	}
	lap(&h.Timings.Smoother)
	if h.coarse, err = cfg.newCoarseSolver(h.levels[0].A); err != nil {
		return nil, err
	}
	lap(&h.Timings.Coarse)
	h.Timings.Total = time.Since(start)
	h.logSummary()
	return
}

func (h *Hierarchy) buildBases(base Basis) error {
	b := base.Clone()
	h.levels[0] = &Level{Index: 0, Basis: b}
	for k := 1; k < h.cfg.NumLevels; k++ {
		var (
			tag = h.cfg.Schedule[k-1]
			err error
		)
		b = b.Clone()
		if tag.IsDegree() {
			err = b.DegreeElevate(h.cfg.degreeStep(k))
		}
		if err == nil && tag != PCoarsen {
			err = b.UniformRefine()
		}
		if err != nil {
			return fmt.Errorf("deriving level %d (%v): %w", k, tag, err)
		}
		h.levels[k] = &Level{Index: k, Tag: tag, Basis: b}
	}
	return nil
}

// assembledDirectly reports whether level k gets its operator from the assembler rather than
// from Galerkin projection of the level above.
func (h *Hierarchy) assembledDirectly(k int) bool {
	cfg := h.cfg
	return cfg.CoarseOperator == DirectOperator || k == cfg.NumLevels-1 ||
		cfg.Schedule[k].IsDegree() || cfg.directlyAssembled(k)
}

func (h *Hierarchy) assemble(asm Assembler) error {
	fine := h.cfg.NumLevels - 1
	return utils.ParallelFor(h.cfg.NumLevels, h.cfg.Parallelism, func(k int) error {
		if !h.assembledDirectly(k) {
			return nil
		}
		lvl := h.levels[k]
		A, rhs, err := asm.Assemble(lvl.Basis)
		if err != nil {
			return fmt.Errorf("assembling level %d: %w", k, err)
		}
		if nr, nc := A.Dims(); nr != nc || nr != lvl.Size() {
			return fmt.Errorf("%w: level %d operator is %dx%d for %d unknowns",
				ErrConfiguration, k, nr, nc, lvl.Size())
		}
		lvl.A = A
		if k == fine {
			if len(rhs) != lvl.Size() {
				return fmt.Errorf("%w: right hand side of length %d for %d unknowns",
					ErrConfiguration, len(rhs), lvl.Size())
			}
			h.rhs = rhs
		}
		return nil
	})
}

func (h *Hierarchy) buildTransfers(asm Assembler) error {
	return utils.ParallelFor(h.cfg.NumLevels-1, h.cfg.Parallelism, func(k int) (err error) {
		var (
			fine, coarse = h.levels[k+1], h.levels[k]
		)
		if fine.Transfer, err = h.cfg.buildTransfer(fine.Tag, fine.Basis, coarse.Basis, asm); err != nil {
			err = fmt.Errorf("transfer %d -> %d: %w", k+1, k, err)
		}
		return
	})
}

// project forms A_k = R A_{k+1} P from the top down for every level not assembled.
func (h *Hierarchy) project() {
	for k := h.cfg.NumLevels - 2; k >= 0; k-- {
		if h.assembledDirectly(k) {
			continue
		}
		fine := h.levels[k+1]
		A := utils.Mul3(fine.R(), fine.A, fine.P())
		A.SetReadOnly(fmt.Sprintf("RAP[%d]", k))
		h.levels[k].A = A
	}
}

func (h *Hierarchy) buildSmoothers() error {
	return utils.ParallelFor(h.cfg.NumLevels-1, h.cfg.Parallelism, func(k int) (err error) {
		lvl := h.levels[k+1]
		lvl.Smoother = h.cfg.smootherKind(lvl.Index)
		lvl.smoother, err = h.cfg.newSmoother(lvl.Index, lvl.A, lvl.Basis)
		return
	})
}

func (h *Hierarchy) logSummary() {
	for _, lvl := range h.levels {
		tag, sm := "-", "direct"
		if lvl.Index > 0 {
			tag, sm = lvl.Tag.String(), lvl.Smoother.String()
		}
		h.log.Printf("level %d: %-2s n = %d, nnz = %d, smoother = %s",
			lvl.Index, tag, lvl.Size(), lvl.A.NNZ(), sm)
	}
	h.log.Printf("setup: %v", h.Timings)
	h.log.Printf("memory: %s", utils.GetMemUsage())
}

func (h *Hierarchy) NumLevels() int { return len(h.levels) }

func (h *Hierarchy) Level(i int) *Level { return h.levels[i] }

func (h *Hierarchy) Finest() *Level { return h.levels[len(h.levels)-1] }

// Size is the number of unknowns on the finest level.
func (h *Hierarchy) Size() int { return h.Finest().Size() }

func (h *Hierarchy) Config() *SolverConfig { return h.cfg }

// RHS returns a copy of the right hand side assembled on the finest level.
func (h *Hierarchy) RHS() []float64 { return append([]float64(nil), h.rhs...) }
