package multigrid

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// CoarseningType tags how a level differs from the next coarser one.
type CoarseningType uint8

const (
	PCoarsen  CoarseningType = iota // degree elevated by one
	HCoarsen                        // mesh uniformly refined
	HPCoarsen                       // both
)

var coarseningNames = []string{"p", "h", "hp"}

func (c CoarseningType) String() string {
	if int(c) < len(coarseningNames) {
		return coarseningNames[c]
	}
	return fmt.Sprintf("CoarseningType(%d)", c)
}

// IsDegree reports whether the transition changes the polynomial degree, and so uses a
// mass based transfer and the p cycle multiplicity.
func (c CoarseningType) IsDegree() bool { return c != HCoarsen }

type SmootherType uint8

const (
	GaussSeidel SmootherType = iota
	ILUT
	BlockILUT // subdomain ILUT with a Schur complement interface block
	External
)

var smootherNames = []string{"gs", "ilut", "block", "external"}

func (s SmootherType) String() string {
	if int(s) < len(smootherNames) {
		return smootherNames[s]
	}
	return fmt.Sprintf("SmootherType(%d)", s)
}

type TransferMode uint8

const (
	LumpedTransfer   TransferMode = iota // lumped mass, R = P^T
	GalerkinTransfer                     // consistent mass solved by CG
)

var transferNames = []string{"lumped", "galerkin"}

func (t TransferMode) String() string {
	if int(t) < len(transferNames) {
		return transferNames[t]
	}
	return fmt.Sprintf("TransferMode(%d)", t)
}

// RestrictionMode picks the Galerkin degree restriction.
type RestrictionMode uint8

const (
	ProjectionRestriction RestrictionMode = iota // r_c = M_c^-1 Pm^T r_f, the coarse L2 projection
	TransposeRestriction                         // r_c = Pm^T M_f^-1 r_f, the transpose of prolongation
)

var restrictionNames = []string{"projection", "transpose"}

func (r RestrictionMode) String() string {
	if int(r) < len(restrictionNames) {
		return restrictionNames[r]
	}
	return fmt.Sprintf("RestrictionMode(%d)", r)
}

type CoarseOperatorMode uint8

const (
	DirectOperator   CoarseOperatorMode = iota // every level assembled
	GalerkinOperator                           // h levels obtained as R*A*P
)

var coarseOperatorNames = []string{"direct", "galerkin"}

func (c CoarseOperatorMode) String() string {
	if int(c) < len(coarseOperatorNames) {
		return coarseOperatorNames[c]
	}
	return fmt.Sprintf("CoarseOperatorMode(%d)", c)
}

// CorrectionSign fixes the pairing of residual and coarse grid correction.
type CorrectionSign uint8

const (
	SubtractCorrection CorrectionSign = iota // d = A*x - b, x -= P*e
	AddCorrection                            // d = b - A*x, x += P*e
)

var correctionNames = []string{"subtract", "add"}

func (c CorrectionSign) String() string {
	if int(c) < len(correctionNames) {
		return correctionNames[c]
	}
	return fmt.Sprintf("CorrectionSign(%d)", c)
}

type Ordering uint8

const (
	RCMOrdering Ordering = iota
	NaturalOrdering
)

var orderingNames = []string{"rcm", "natural"}

func (o Ordering) String() string {
	if int(o) < len(orderingNames) {
		return orderingNames[o]
	}
	return fmt.Sprintf("Ordering(%d)", o)
}

func parseEnum(names []string, text []byte, kind string) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range names {
		if s == name {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q, want one of %v", ErrConfiguration, kind, s, names)
}

func (c CoarseningType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c *CoarseningType) UnmarshalText(text []byte) error {
	v, err := parseEnum(coarseningNames, text, "coarsening")
	*c = CoarseningType(v)
	return err
}
func (s SmootherType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *SmootherType) UnmarshalText(text []byte) error {
	v, err := parseEnum(smootherNames, text, "smoother")
	*s = SmootherType(v)
	return err
}
func (t TransferMode) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
func (t *TransferMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(transferNames, text, "transfer mode")
	*t = TransferMode(v)
	return err
}
func (r RestrictionMode) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r *RestrictionMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(restrictionNames, text, "restriction mode")
	*r = RestrictionMode(v)
	return err
}
func (c CoarseOperatorMode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c *CoarseOperatorMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(coarseOperatorNames, text, "coarse operator mode")
	*c = CoarseOperatorMode(v)
	return err
}
func (c CorrectionSign) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (c *CorrectionSign) UnmarshalText(text []byte) error {
	v, err := parseEnum(correctionNames, text, "correction sign")
	*c = CorrectionSign(v)
	return err
}
func (o Ordering) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o *Ordering) UnmarshalText(text []byte) error {
	v, err := parseEnum(orderingNames, text, "ordering")
	*o = Ordering(v)
	return err
}

// ParseSchedule reads a comma separated list of coarsening tags such as "p,h,h".
func ParseSchedule(s string) (sched []CoarseningType, err error) {
	if strings.TrimSpace(s) == "" {
		return
	}
	for _, field := range strings.Split(s, ",") {
		var c CoarseningType
		if err = c.UnmarshalText([]byte(field)); err != nil {
			return nil, err
		}
		sched = append(sched, c)
	}
	return
}

type ILUTOptions struct {
	DropTol    float64  `json:"DropTol"`    // relative to the row 2-norm
	FillFactor float64  `json:"FillFactor"` // kept entries per side ~ FillFactor*nnz(A)/n
	Ordering   Ordering `json:"Ordering"`
}

// SolverConfig is the complete, immutable description of a multigrid solver. It is read
// by pointer and never modified after Setup.
type SolverConfig struct {
	NumLevels int              `json:"NumLevels"`
	Schedule  []CoarseningType `json:"Schedule"` // Schedule[k] derives level k+1 from level k
	// DirectProjection > 0 makes the finest transition raise the degree by that much in one
	// step, so the fine operator is projected straight onto a low degree level. Factorizing
	// smoothers then run on the finest level only.
	DirectProjection int `json:"DirectProjection"`

	Smoother          SmootherType `json:"Smoother"`
	HLevelGaussSeidel bool         `json:"HLevelGaussSeidel"` // factorizing smoothers fall back to GS on h levels of a p-topped hierarchy
	PreSmooth         int          `json:"PreSmooth"`
	PostSmooth        int          `json:"PostSmooth"`
	ReversePostSweep  bool         `json:"ReversePostSweep"`
	CycleP            int          `json:"CycleP"` // 1 = V, 2 = W across p transitions
	CycleH            int          `json:"CycleH"` // 1 = V, 2 = W across h transitions

	Transfer       TransferMode       `json:"Transfer"`
	Restriction    RestrictionMode    `json:"Restriction"` // Galerkin transfer only
	CoarseOperator CoarseOperatorMode `json:"CoarseOperator"`
	DirectAssembly []int              `json:"DirectAssembly"` // levels always assembled directly
	Correction     CorrectionSign     `json:"Correction"`

	ILUT             ILUTOptions `json:"ILUT"`
	NumSubdomains    int         `json:"NumSubdomains"` // built-in partitioner, used when the basis has no patches
	MassSolveTol     float64     `json:"MassSolveTol"`
	MassSolveMaxIter int         `json:"MassSolveMaxIter"`

	Tolerance     float64 `json:"Tolerance"`
	MaxIterations int     `json:"MaxIterations"`
	Parallelism   int     `json:"Parallelism"` // goroutines used during setup, <= 0 means GOMAXPROCS

	Logger              *log.Logger             `json:"-"`
	External            ExternalSmootherFactory `json:"-"`
	Partitioner         Partitioner             `json:"-"`
	NewCoarseFactorizer func() CoarseFactorizer `json:"-"`
}

// DefaultConfig returns a two level h V(1,1) cycle with Gauss-Seidel smoothing.
func DefaultConfig() *SolverConfig {
	return &SolverConfig{
		NumLevels:  2,
		Schedule:   []CoarseningType{HCoarsen},
		Smoother:   GaussSeidel,
		PreSmooth:  1,
		PostSmooth: 1,
		CycleP:     1,
		CycleH:     1,
		ILUT: ILUTOptions{
			DropTol:    1e-12,
			FillFactor: 1,
			Ordering:   RCMOrdering,
		},
		NumSubdomains: 2,
		MassSolveTol:  1e-12,
		Tolerance:     1e-8,
		MaxIterations: 100,
	}
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks the configuration without touching any operator.
func (cfg *SolverConfig) Validate() error {
	switch {
	case cfg == nil:
		return configErrorf("nil config")
	case cfg.NumLevels < 1:
		return configErrorf("NumLevels = %d, need at least 1", cfg.NumLevels)
	case len(cfg.Schedule) != cfg.NumLevels-1:
		return configErrorf("schedule has %d entries, NumLevels = %d needs %d",
			len(cfg.Schedule), cfg.NumLevels, cfg.NumLevels-1)
	case cfg.DirectProjection < 0:
		return configErrorf("DirectProjection = %d", cfg.DirectProjection)
	case cfg.DirectProjection > 0 && (cfg.NumLevels < 2 || !cfg.Schedule[len(cfg.Schedule)-1].IsDegree()):
		return configErrorf("DirectProjection needs a degree change as the finest transition, have %v", cfg.Schedule)
	case cfg.PreSmooth < 0 || cfg.PostSmooth < 0:
		return configErrorf("negative smoothing count: pre = %d, post = %d", cfg.PreSmooth, cfg.PostSmooth)
	case cfg.CycleP < 1 || cfg.CycleP > 2 || cfg.CycleH < 1 || cfg.CycleH > 2:
		return configErrorf("cycle multiplicity must be 1 (V) or 2 (W), have p = %d, h = %d", cfg.CycleP, cfg.CycleH)
	case cfg.Smoother > External:
		return configErrorf("unknown smoother %v", cfg.Smoother)
	case cfg.Smoother == External && cfg.External == nil:
		return configErrorf("external smoother selected without a factory")
	case cfg.Transfer > GalerkinTransfer:
		return configErrorf("unknown transfer mode %v", cfg.Transfer)
	case cfg.Restriction > TransposeRestriction:
		return configErrorf("unknown restriction mode %v", cfg.Restriction)
	case cfg.CoarseOperator > GalerkinOperator:
		return configErrorf("unknown coarse operator mode %v", cfg.CoarseOperator)
	case cfg.Correction > AddCorrection:
		return configErrorf("unknown correction sign %v", cfg.Correction)
	case cfg.ILUT.DropTol < 0 || cfg.ILUT.FillFactor <= 0:
		return configErrorf("ILUT drop tolerance %v and fill factor %v", cfg.ILUT.DropTol, cfg.ILUT.FillFactor)
	case cfg.MassSolveTol <= 0 || cfg.MassSolveTol >= 1:
		return configErrorf("mass solve tolerance %v must be in (0,1)", cfg.MassSolveTol)
	case cfg.Tolerance <= 0 || cfg.Tolerance >= 1:
		return configErrorf("tolerance %v must be in (0,1)", cfg.Tolerance)
	case cfg.MaxIterations < 1:
		return configErrorf("MaxIterations = %d", cfg.MaxIterations)
	}
	for _, c := range cfg.Schedule {
		if c > HPCoarsen {
			return configErrorf("unknown coarsening tag %v", c)
		}
	}
	for _, l := range cfg.DirectAssembly {
		if l < 0 || l >= cfg.NumLevels {
			return configErrorf("DirectAssembly level %d outside [0,%d)", l, cfg.NumLevels)
		}
	}
	return nil
}

func (cfg *SolverConfig) logger() *log.Logger {
	if cfg.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return cfg.Logger
}

// multiplicity returns how many times the coarse level below a transition is visited.
func (cfg *SolverConfig) multiplicity(c CoarseningType) int {
	if c.IsDegree() {
		return cfg.CycleP
	}
	return cfg.CycleH
}

func (cfg *SolverConfig) directlyAssembled(level int) bool {
	for _, l := range cfg.DirectAssembly {
		if l == level {
			return true
		}
	}
	return false
}

// degreeStep is the degree elevation that derives level k from level k-1.
func (cfg *SolverConfig) degreeStep(k int) int {
	if cfg.DirectProjection > 0 && k == cfg.NumLevels-1 {
		return cfg.DirectProjection
	}
	return 1
}
