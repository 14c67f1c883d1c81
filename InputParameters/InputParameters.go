package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/gomultigrid/multigrid"
	"github.com/notargets/gomultigrid/multigrid/metispart"
)

// Parameters obtained from the YAML input file
type InputParametersMG struct {
	Title           string                  `yaml:"Title"`
	XMin            float64                 `yaml:"XMin"`
	XMax            float64                 `yaml:"XMax"`
	K               int                     `yaml:"K"`               // Elements on the coarsest level
	PolynomialOrder int                     `yaml:"PolynomialOrder"` // Degree on the coarsest level
	NPatch          int                     `yaml:"NPatch"`          // Subdomain patches for the block smoother
	Kappa           float64                 `yaml:"Kappa"`
	Sigma           float64                 `yaml:"Sigma"`
	Partitioner     string                  `yaml:"Partitioner"`     // "patch", "contiguous" or "metis"
	PCG             bool                    `yaml:"PCG"`             // Use the cycle as a CG preconditioner
	Solver          *multigrid.SolverConfig `yaml:"Solver"`
}

func NewInputParametersMG() *InputParametersMG {
	return &InputParametersMG{
		Title:           "Poisson",
		XMax:            1,
		K:               4,
		PolynomialOrder: 1,
		NPatch:          1,
		Kappa:           1,
		Partitioner:     "patch",
		Solver:          multigrid.DefaultConfig(),
	}
}

// Parse overlays the YAML input on the current values, so omitted keys keep their defaults.
func (ip *InputParametersMG) Parse(data []byte) error {
	if ip.Solver == nil {
		ip.Solver = multigrid.DefaultConfig()
	}
	return yaml.Unmarshal(data, ip)
}

// Config returns the solver configuration with the chosen partitioner attached.
func (ip *InputParametersMG) Config() (cfg *multigrid.SolverConfig, err error) {
	c := *ip.Solver
	cfg = &c
	switch strings.ToLower(ip.Partitioner) {
	case "", "patch":
	case "contiguous":
		cfg.Partitioner = multigrid.ContiguousPartitioner{NumParts: cfg.NumSubdomains}
	case "metis":
		cfg.Partitioner = metispart.New(int32(cfg.NumSubdomains))
	default:
		return nil, fmt.Errorf("unknown partitioner %q, expected patch, contiguous or metis", ip.Partitioner)
	}
	err = cfg.Validate()
	return
}

func (ip *InputParametersMG) Print() {
	sv := ip.Solver
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%8.5f,%8.5f]\t= Domain\n", ip.XMin, ip.XMax)
	fmt.Printf("[%d]\t\t\t\t= Coarse Elements\n", ip.K)
	fmt.Printf("[%d]\t\t\t\t= Coarse Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("%8.5f\t\t= Kappa\n", ip.Kappa)
	fmt.Printf("%8.5f\t\t= Sigma\n", ip.Sigma)
	if sv == nil {
		return
	}
	sched := make([]string, len(sv.Schedule))
	for i, c := range sv.Schedule {
		sched[i] = c.String()
	}
	fmt.Printf("[%d]\t\t\t\t= Levels\n", sv.NumLevels)
	fmt.Printf("[%s]\t\t\t= Schedule\n", strings.Join(sched, ","))
	fmt.Printf("[%s]\t\t\t\t= Smoother\n", sv.Smoother)
	fmt.Printf("[%d,%d]\t\t\t\t= Pre/Post Smoothing\n", sv.PreSmooth, sv.PostSmooth)
	fmt.Printf("[%d,%d]\t\t\t\t= Cycle p/h\n", sv.CycleP, sv.CycleH)
	fmt.Printf("[%s]\t\t\t= Transfer\n", sv.Transfer)
	if sv.Transfer == multigrid.GalerkinTransfer {
		fmt.Printf("[%s]\t\t\t= Restriction\n", sv.Restriction)
	}
	if sv.DirectProjection > 0 {
		fmt.Printf("[%d]\t\t\t\t= Direct Projection Degree Step\n", sv.DirectProjection)
	}
	fmt.Printf("[%s]\t\t\t= Coarse Operator\n", sv.CoarseOperator)
	fmt.Printf("[%s]\t\t\t= Partitioner\n", ip.Partitioner)
	fmt.Printf("%8.2e\t\t= Tolerance\n", sv.Tolerance)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", sv.MaxIterations)
	fmt.Printf("[%v]\t\t\t\t= PCG\n", ip.PCG)
}
